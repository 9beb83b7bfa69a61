package disruption

// RecoveryStep is one node of a recovery plan's dependency graph.
type RecoveryStep struct {
	StepNumber         int            `json:"step_number"`
	StepName           string         `json:"step_name"`
	Description        string         `json:"description"`
	ResponsibleAgent    string         `json:"responsible_agent"`
	ActionType         string         `json:"action_type"`
	SuccessCriteria    string         `json:"success_criteria"`
	Dependencies       []int          `json:"dependencies,omitempty"`
	EstimatedDuration  string         `json:"estimated_duration"`
	AutomationPossible bool           `json:"automation_possible"`
	Parameters         map[string]any `json:"parameters,omitempty"`
}

// RecoveryPlan is the step graph for one candidate solution.
type RecoveryPlan struct {
	SolutionID              int            `json:"solution_id"`
	Steps                   []RecoveryStep `json:"steps"`
	CriticalPath             []int          `json:"critical_path,omitempty"`
	ContingencyPlans         []string       `json:"contingency_plans,omitempty"`
	EstimatedTotalDuration   string         `json:"estimated_total_duration"`
}

// TotalSteps returns len(Steps), the derived field named in spec §3.1.
func (p RecoveryPlan) TotalSteps() int { return len(p.Steps) }

// RecoverySolution is one ranked candidate option.
type RecoverySolution struct {
	SolutionID         int      `json:"solution_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Recommendations    []string `json:"recommendations"`
	SafetyCompliance   string   `json:"safety_compliance"`
	PassengerImpact    string   `json:"passenger_impact"`
	FinancialImpact    string   `json:"financial_impact"`
	NetworkImpact      string   `json:"network_impact"`
	SafetyScore        float64  `json:"safety_score"`
	CostScore          float64  `json:"cost_score"`
	PassengerScore     float64  `json:"passenger_score"`
	NetworkScore       float64  `json:"network_score"`
	CompositeScore     float64  `json:"composite_score"`
	Pros               []string `json:"pros,omitempty"`
	Cons               []string `json:"cons,omitempty"`
	Risks              []string `json:"risks,omitempty"`
	Confidence         float64  `json:"confidence"`
	EstimatedDuration  string   `json:"estimated_duration"`
	RecoveryPlan       RecoveryPlan `json:"recovery_plan"`
}

// Conflict is a record of an incompatibility detected between two agents'
// recommendations during arbitration step 2.
type Conflict struct {
	AgentsInvolved []AgentName `json:"agents_involved"`
	ConflictType   string      `json:"conflict_type"`
	Description    string      `json:"description"`
}

// ConflictResolution records how a Conflict was resolved.
type ConflictResolution struct {
	Conflict  Conflict `json:"conflict"`
	Resolution string  `json:"resolution"`
	Rationale  string  `json:"rationale"`
}

// SafetyOverride records a case where a Safety-class recommendation
// overrode a Business-class one (the safety_vs_business conflict class).
type SafetyOverride struct {
	SafetyAgent   AgentName `json:"safety_agent"`
	BusinessAgent AgentName `json:"business_agent"`
	Constraint    string    `json:"constraint"`
}

// ArbitratorOutput is the arbitration result.
type ArbitratorOutput struct {
	SolutionOptions        []RecoverySolution    `json:"solution_options"`
	RecommendedSolutionID  int                   `json:"recommended_solution_id"`
	ConflictsIdentified    []Conflict            `json:"conflicts_identified,omitempty"`
	ConflictResolutions    []ConflictResolution  `json:"conflict_resolutions,omitempty"`
	SafetyOverrides        []SafetyOverride      `json:"safety_overrides,omitempty"`

	// Backward-compat projection (spec §3.1, §4.3 Step 7), copied from
	// SolutionOptions[0].
	FinalDecision   string   `json:"final_decision"`
	Recommendations []string `json:"recommendations"`
	Justification   string   `json:"justification"`
	Reasoning       string   `json:"reasoning"`
	Confidence      float64  `json:"confidence"`
}

// FinalStatus is the closed status enum of FinalOutput.
type FinalStatus string

const (
	FinalStatusSuccess FinalStatus = "success"
	FinalStatusPartial FinalStatus = "partial"
	FinalStatusFailed  FinalStatus = "failed"
)

// AuditTrail preserves every phase that actually executed, in chronological
// order. Per spec §3.2, it is never pruned: a safety halt in phase 1 leaves
// Phase2Revision and Phase3Arbitration nil, and a nil phase is omitted
// from the JSON encoding.
type AuditTrail struct {
	Phase1Initial      *Collation        `json:"phase1_initial,omitempty"`
	Phase2Revision     *Collation        `json:"phase2_revision,omitempty"`
	Phase3Arbitration  *ArbitratorOutput `json:"phase3_arbitration,omitempty"`
}

// SafetyHaltInfo names the phase and the Safety-class agents whose failure
// aborted the pipeline.
type SafetyHaltInfo struct {
	Phase        Phase       `json:"phase"`
	FailedAgents []AgentName `json:"failed_agents"`
}

// FinalOutput is returned by Orchestrator.Handle.
type FinalOutput struct {
	Status FinalStatus `json:"status"`
	ArbitratorOutput
	AuditTrail            AuditTrail `json:"audit_trail"`
	TotalDurationSeconds  float64    `json:"total_duration_seconds"`

	// DisruptionID is an additive correlation identifier (SPEC_FULL §4.5),
	// not named by spec.md; it does not change any spec.md field's meaning.
	DisruptionID string `json:"disruption_id,omitempty"`

	// Error carries a short machine-readable error kind (spec §7) when
	// Status is failed due to a hard stop (prompt_invalid, safety_halt) or
	// partial because arbitration fell back to the conservative solution
	// (arbitrator_fallback). Empty otherwise.
	Error string `json:"error,omitempty"`

	// SafetyHalt is present iff Error is "safety_halt"; it names the phase
	// and agents behind the halt so callers need not dig through the audit
	// trail for them.
	SafetyHalt *SafetyHaltInfo `json:"safety_halt,omitempty"`
}
