package arbitration

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// stance is the coarse action a recommendation is pushing for. Extracting
// it from free text is necessarily heuristic; see classifyStance.
type stance string

const (
	stanceCancel     stance = "cancel"
	stanceDelay      stance = "delay"
	stanceDivert     stance = "divert"
	stanceReroute    stance = "reroute"
	stanceCrewSwap   stance = "crew_swap"
	stanceMaintHold  stance = "maintenance_hold"
	stanceProceed    stance = "proceed"
	stanceOther      stance = "other"
)

// conservatism ranks each stance by how cautious it is, most conservative
// first. It is the first criterion for resolving safety_vs_safety
// conflicts (spec §4.3 step 2).
var conservatism = map[stance]int{
	stanceCancel:    6,
	stanceMaintHold: 5,
	stanceDelay:     4,
	stanceDivert:    3,
	stanceCrewSwap:  2,
	stanceReroute:   2,
	stanceOther:     1,
	stanceProceed:   0,
}

// stanceKeywords is checked in order; the first match wins. Order matters:
// more specific phrases are listed before the generic ones they contain.
var stanceKeywords = []struct {
	stance   stance
	keywords []string
}{
	{stanceCancel, []string{"cancel"}},
	{stanceMaintHold, []string{"ground the aircraft", "maintenance hold", "aog", "do not release"}},
	{stanceCrewSwap, []string{"swap crew", "crew swap", "replace crew", "new crew", "reserve crew"}},
	{stanceDivert, []string{"divert"}},
	{stanceDelay, []string{"delay", "hold departure", "hold the flight"}},
	{stanceReroute, []string{"reroute", "re-route", "alternate routing", "rebook"}},
	{stanceProceed, []string{"proceed as scheduled", "no action needed", "continue as planned", "dispatch as scheduled"}},
}

// classifyStance extracts a coarse stance from an agent response's
// recommendation and reasoning text. Unmatched text is stanceOther rather
// than stanceProceed: "other" means "we can't tell", which must not be
// silently treated as the most permissive stance.
func classifyStance(resp disruption.AgentResponse) stance {
	text := strings.ToLower(resp.Recommendation + " " + resp.Reasoning)
	for _, entry := range stanceKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.stance
			}
		}
	}
	return stanceOther
}

// safetyPriority is the fixed tie-break order for safety_vs_safety
// conflicts named in spec §4.3 step 2: crew_compliance > maintenance >
// regulatory.
var safetyPriority = map[disruption.AgentName]int{
	disruption.AgentCrewCompliance: 3,
	disruption.AgentMaintenance:    2,
	disruption.AgentRegulatory:     1,
}

// classifyConflicts implements step 2. It pairwise-compares every pair of
// successful agent responses whose stances differ and are both
// meaningfully classified (neither stanceOther), classifies the pair by
// the two agents' classes, and records a resolution. safety_vs_business
// conflicts always resolve in favour of the Safety agent; safety_vs_safety
// conflicts resolve by conservatism first, then response confidence, then
// the fixed agent-priority tie-break; business_vs_business conflicts are
// recorded with no override.
func classifyConflicts(collation disruption.Collation) ([]disruption.Conflict, []disruption.ConflictResolution, []disruption.SafetyOverride) {
	successful := collation.Successful()

	var conflicts []disruption.Conflict
	var resolutions []disruption.ConflictResolution
	var overrides []disruption.SafetyOverride

	names := disruption.AllAgents
	for i := 0; i < len(names); i++ {
		a, ok := successful[names[i]]
		if !ok {
			continue
		}
		stanceA := classifyStance(a)
		if stanceA == stanceOther {
			continue
		}
		for j := i + 1; j < len(names); j++ {
			b, ok := successful[names[j]]
			if !ok {
				continue
			}
			stanceB := classifyStance(b)
			if stanceB == stanceOther || stanceA == stanceB {
				continue
			}

			classA, classB := disruption.ClassOf(a.AgentName), disruption.ClassOf(b.AgentName)
			conflict := disruption.Conflict{
				AgentsInvolved: []disruption.AgentName{a.AgentName, b.AgentName},
				Description:    fmt.Sprintf("%s recommends %q while %s recommends %q", a.AgentName, stanceA, b.AgentName, stanceB),
			}

			switch {
			case classA == disruption.ClassSafety && classB == disruption.ClassBusiness:
				conflict.ConflictType = "safety_vs_business"
				conflicts = append(conflicts, conflict)
				resolutions = append(resolutions, resolveSafetyVsBusiness(conflict, a.AgentName, b.AgentName))
				overrides = append(overrides, disruption.SafetyOverride{SafetyAgent: a.AgentName, BusinessAgent: b.AgentName, Constraint: stanceRationale(stanceA)})

			case classA == disruption.ClassBusiness && classB == disruption.ClassSafety:
				conflict.ConflictType = "safety_vs_business"
				conflicts = append(conflicts, conflict)
				resolutions = append(resolutions, resolveSafetyVsBusiness(conflict, b.AgentName, a.AgentName))
				overrides = append(overrides, disruption.SafetyOverride{SafetyAgent: b.AgentName, BusinessAgent: a.AgentName, Constraint: stanceRationale(stanceB)})

			case classA == disruption.ClassSafety && classB == disruption.ClassSafety:
				conflict.ConflictType = "safety_vs_safety"
				conflicts = append(conflicts, conflict)
				resolutions = append(resolutions, resolveSafetyVsSafety(conflict, a, stanceA, b, stanceB))

			default:
				conflict.ConflictType = "business_vs_business"
				conflicts = append(conflicts, conflict)
				resolutions = append(resolutions, disruption.ConflictResolution{
					Conflict:   conflict,
					Resolution: "no override; both recommendations carried forward and reflected in the scored solution portfolio",
					Rationale:  "business_vs_business conflicts are trade-offs, not correctness disputes",
				})
			}
		}
	}

	return conflicts, resolutions, overrides
}

func resolveSafetyVsBusiness(conflict disruption.Conflict, safetyAgent, businessAgent disruption.AgentName) disruption.ConflictResolution {
	return disruption.ConflictResolution{
		Conflict:   conflict,
		Resolution: fmt.Sprintf("%s overrides %s", safetyAgent, businessAgent),
		Rationale:  "Safety-class recommendations always take precedence over Business-class recommendations",
	}
}

func resolveSafetyVsSafety(conflict disruption.Conflict, a disruption.AgentResponse, stanceA stance, b disruption.AgentResponse, stanceB stance) disruption.ConflictResolution {
	winner, rationale := a.AgentName, ""
	switch {
	case conservatism[stanceA] != conservatism[stanceB]:
		if conservatism[stanceA] < conservatism[stanceB] {
			winner = b.AgentName
		}
		rationale = "the more conservative recommendation is preferred between two Safety agents"
	case a.Confidence != b.Confidence:
		if a.Confidence < b.Confidence {
			winner = b.AgentName
		}
		rationale = "tie broken by higher reported confidence"
	default:
		if safetyPriority[b.AgentName] > safetyPriority[a.AgentName] {
			winner = b.AgentName
		}
		rationale = "tie broken by fixed agent priority: crew_compliance > maintenance > regulatory"
	}
	return disruption.ConflictResolution{
		Conflict:   conflict,
		Resolution: fmt.Sprintf("%s's recommendation is followed", winner),
		Rationale:  rationale,
	}
}

func stanceRationale(s stance) string {
	return fmt.Sprintf("safety stance %q takes precedence", s)
}
