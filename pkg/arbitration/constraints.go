package arbitration

import (
	"strings"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// extractConstraints implements step 1: gather every binding constraint
// attached to a successful Safety-class response (spec §4.3 step 1). Order
// is deterministic (SafetyAgents order) and duplicates are kept — a
// repeated constraint text from two agents is simply checked twice by
// filterByConstraints, which does not change its outcome.
func extractConstraints(collation disruption.Collation) []string {
	var constraints []string
	for _, name := range disruption.SafetyAgents {
		resp, ok := collation.Responses[name]
		if !ok || resp.Status != disruption.StatusSuccess {
			continue
		}
		for _, c := range resp.BindingConstraints {
			c = strings.TrimSpace(c)
			if c != "" {
				constraints = append(constraints, c)
			}
		}
	}
	return constraints
}

// ConstraintChecker decides whether a drafted solution satisfies a single
// binding constraint string. It resolves the open question left by spec §9
// ("the exact semantics of satisfies(solution, constraint) are
// implementation-defined").
type ConstraintChecker interface {
	Satisfies(solution disruption.RecoverySolution, constraint string) bool
}

// negationPrefixes are phrases that turn a constraint into a prohibition
// rather than a requirement. Each is matched with its trailing space, and
// none is a prefix of another ("no " does not match "not ..."), so the
// order of the list does not change which prefix matches.
var negationPrefixes = []string{"must not ", "should not ", "never ", "no ", "not "}

// SubstringConstraintChecker is the "safe default" string-matching checker
// named in spec §9. A constraint beginning with a negation prefix is
// satisfied when its remainder does NOT appear (case-insensitively) in the
// solution's text; otherwise the constraint is satisfied when its full
// text DOES appear. This is intentionally simple: it trades precision for
// being auditable by a human reading the constraint and the solution text
// side by side.
type SubstringConstraintChecker struct{}

func (SubstringConstraintChecker) Satisfies(solution disruption.RecoverySolution, constraint string) bool {
	haystack := strings.ToLower(solutionText(solution))
	needle := strings.ToLower(strings.TrimSpace(constraint))
	if needle == "" {
		return true
	}

	for _, prefix := range negationPrefixes {
		if strings.HasPrefix(needle, prefix) {
			forbidden := strings.TrimSpace(strings.TrimPrefix(needle, prefix))
			if forbidden == "" {
				return true
			}
			return !strings.Contains(haystack, forbidden)
		}
	}
	return strings.Contains(haystack, needle)
}

// solutionText concatenates every human-readable field of a solution so a
// ConstraintChecker can search it as one body of text.
func solutionText(solution disruption.RecoverySolution) string {
	var b strings.Builder
	b.WriteString(solution.Title)
	b.WriteString(" ")
	b.WriteString(solution.Description)
	b.WriteString(" ")
	for _, r := range solution.Recommendations {
		b.WriteString(r)
		b.WriteString(" ")
	}
	for _, step := range solution.RecoveryPlan.Steps {
		b.WriteString(step.StepName)
		b.WriteString(" ")
		b.WriteString(step.Description)
		b.WriteString(" ")
	}
	return b.String()
}
