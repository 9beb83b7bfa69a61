// Package disruption defines the data model shared by every stage of the
// deliberation pipeline: the payload handed to each domain agent, the
// response an agent returns, and the per-phase collation of those
// responses. These are plain value types — no behavior beyond validation
// and pure derived queries.
package disruption

import (
	"regexp"
	"strings"
	"time"
)

// Phase identifies which round of the three-phase pipeline a payload or
// collation belongs to.
type Phase string

const (
	PhaseInitial  Phase = "initial"
	PhaseRevision Phase = "revision"
)

// IsValid reports whether p is one of the two fan-out phases.
func (p Phase) IsValid() bool {
	return p == PhaseInitial || p == PhaseRevision
}

// AgentName identifies one of the seven fixed domain agents.
type AgentName string

const (
	AgentCrewCompliance  AgentName = "crew_compliance"
	AgentMaintenance     AgentName = "maintenance"
	AgentRegulatory      AgentName = "regulatory"
	AgentNetwork         AgentName = "network"
	AgentGuestExperience AgentName = "guest_experience"
	AgentCargo           AgentName = "cargo"
	AgentFinance         AgentName = "finance"

	// AgentArbitrator is not part of the seven-agent registry; it is the
	// agent_name recorded on the arbitrator's own response representation.
	AgentArbitrator AgentName = "arbitrator"
)

// AgentClass partitions the fixed registry into Safety (may emit binding
// constraints) and Business (may never emit binding constraints).
type AgentClass string

const (
	ClassSafety   AgentClass = "safety"
	ClassBusiness AgentClass = "business"
)

// SafetyAgents and BusinessAgents are the two partitions named in spec §4.1.
// Order is insignificant; both are closed sets.
var SafetyAgents = []AgentName{AgentCrewCompliance, AgentMaintenance, AgentRegulatory}
var BusinessAgents = []AgentName{AgentNetwork, AgentGuestExperience, AgentCargo, AgentFinance}

// AllAgents is the complete fixed seven-name registry, safety agents first
// so priority tie-breaks (crew_compliance > maintenance > regulatory) read
// naturally off the slice.
var AllAgents = append(append([]AgentName{}, SafetyAgents...), BusinessAgents...)

// ClassOf returns the class of a registered agent name, or "" if name is
// not one of the seven fixed agents.
func ClassOf(name AgentName) AgentClass {
	for _, a := range SafetyAgents {
		if a == name {
			return ClassSafety
		}
	}
	for _, a := range BusinessAgents {
		if a == name {
			return ClassBusiness
		}
	}
	return ""
}

// IsSafety reports whether name is one of the three Safety-class agents.
func IsSafety(name AgentName) bool { return ClassOf(name) == ClassSafety }

// ResponseStatus is the closed status enum of an AgentResponse.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusTimeout ResponseStatus = "timeout"
	StatusError   ResponseStatus = "error"
)

var flightNumberRe = regexp.MustCompile(`^EY\d{3,4}$`)

// FlightInfo is the structured flight extraction an agent derives from the
// free-text prompt.
type FlightInfo struct {
	FlightNumber    string `json:"flight_number"`
	Date            string `json:"date"`
	DisruptionEvent string `json:"disruption_event"`
}

// Validate checks the three FlightInfo field constraints from spec §3.1.
// Relative-date resolution is the agent's responsibility; this only checks
// the resulting string is calendar-date shaped.
func (f FlightInfo) Validate() error {
	normalized := strings.ToUpper(strings.TrimSpace(f.FlightNumber))
	if !flightNumberRe.MatchString(normalized) {
		return &ValidationError{Field: "flight_number", Reason: "must match ^EY\\d{3,4}$"}
	}
	if _, err := time.Parse("2006-01-02", f.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be ISO-8601 calendar date (YYYY-MM-DD)"}
	}
	if strings.TrimSpace(f.DisruptionEvent) == "" {
		return &ValidationError{Field: "disruption_event", Reason: "must not be empty"}
	}
	return nil
}

// NormalizedFlightNumber returns the flight number upper-cased and trimmed.
func (f FlightInfo) NormalizedFlightNumber() string {
	return strings.ToUpper(strings.TrimSpace(f.FlightNumber))
}

// DisruptionPayload is the input handed to one agent for one phase.
type DisruptionPayload struct {
	UserPrompt           string                     `json:"user_prompt"`
	Phase                Phase                      `json:"phase"`
	OtherRecommendations map[AgentName]AgentResponse `json:"other_recommendations,omitempty"`
}

// Validate enforces the payload invariants from spec §3.1: the prompt must
// be substantial, the phase must be one of the two fan-out phases, and
// OtherRecommendations must be present iff phase is revision.
func (p DisruptionPayload) Validate() error {
	if len(strings.TrimSpace(p.UserPrompt)) < MinPromptLength {
		return &ValidationError{Field: "user_prompt", Reason: "must be at least 10 characters after trimming"}
	}
	if !p.Phase.IsValid() {
		return &ValidationError{Field: "phase", Reason: "must be initial or revision"}
	}
	switch p.Phase {
	case PhaseInitial:
		if len(p.OtherRecommendations) != 0 {
			return &ValidationError{Field: "other_recommendations", Reason: "forbidden when phase is initial"}
		}
	case PhaseRevision:
		if len(p.OtherRecommendations) == 0 {
			return &ValidationError{Field: "other_recommendations", Reason: "required when phase is revision"}
		}
	}
	return nil
}

// MinPromptLength is the minimum number of non-whitespace characters a user
// prompt must contain, per spec §6.
const MinPromptLength = 10

// AgentResponse is the output of one agent in one phase.
type AgentResponse struct {
	AgentName          AgentName      `json:"agent_name"`
	Recommendation     string         `json:"recommendation"`
	Confidence         float64        `json:"confidence"`
	BindingConstraints []string       `json:"binding_constraints"`
	Reasoning          string         `json:"reasoning"`
	DataSources        []string       `json:"data_sources,omitempty"`
	ExtractedFlightInfo *FlightInfo   `json:"extracted_flight_info,omitempty"`
	Status             ResponseStatus `json:"status"`
	Error              string         `json:"error,omitempty"`
	DurationSeconds    float64        `json:"duration_seconds"`
	Timestamp          time.Time      `json:"timestamp"`
}

// ValidateInvariants enforces the cross-field invariants from spec §3.2 that
// are checked on ingest rather than at construction: a business-class
// agent's binding constraints are always empty, and a non-success response
// always carries an error message.
func (r AgentResponse) ValidateInvariants() error {
	if ClassOf(r.AgentName) == ClassBusiness && len(r.BindingConstraints) != 0 {
		return &ValidationError{Field: "binding_constraints", Reason: "business-class agents must never emit binding constraints"}
	}
	if r.Status != StatusSuccess && strings.TrimSpace(r.Error) == "" {
		return &ValidationError{Field: "error", Reason: "must be present when status is not success"}
	}
	if r.Status == StatusSuccess && strings.TrimSpace(r.Error) != "" {
		return &ValidationError{Field: "error", Reason: "must be empty when status is success"}
	}
	return nil
}

// Collation is one phase's aggregated result.
type Collation struct {
	Phase           Phase                      `json:"phase"`
	Responses       map[AgentName]AgentResponse `json:"responses"`
	Timestamp       time.Time                  `json:"timestamp"`
	DurationSeconds float64                    `json:"duration_seconds"`
}

// Successful returns the subset of responses with status success.
func (c Collation) Successful() map[AgentName]AgentResponse {
	out := make(map[AgentName]AgentResponse)
	for name, r := range c.Responses {
		if r.Status == StatusSuccess {
			out[name] = r
		}
	}
	return out
}

// Failed returns the subset of responses with status timeout or error.
func (c Collation) Failed() map[AgentName]AgentResponse {
	out := make(map[AgentName]AgentResponse)
	for name, r := range c.Responses {
		if r.Status != StatusSuccess {
			out[name] = r
		}
	}
	return out
}

// Count returns the total number of responses in the collation.
func (c Collation) Count() int { return len(c.Responses) }

// FailedSafetyAgents returns the names of Safety-class agents whose
// response status is not success — the predicate the PhaseRunner's
// safety-halt check inspects.
func (c Collation) FailedSafetyAgents() []AgentName {
	var out []AgentName
	for _, name := range SafetyAgents {
		if r, ok := c.Responses[name]; ok && r.Status != StatusSuccess {
			out = append(out, name)
		}
	}
	return out
}

// ValidationError reports a single data-model constraint violation. It
// mirrors the teacher config package's wrapper-error shape so callers can
// use errors.As uniformly across config and domain validation failures.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "disruption: field '" + e.Field + "': " + e.Reason
}
