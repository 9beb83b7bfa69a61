package arbitration

import (
	"sort"
	"strings"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// filterByConstraints implements step 5: drop every drafted solution that
// fails to satisfy any extracted binding constraint. Order of the
// survivors is preserved from drafted.
func filterByConstraints(drafted []disruption.RecoverySolution, constraints []string, checker ConstraintChecker) []disruption.RecoverySolution {
	var surviving []disruption.RecoverySolution
	for _, sol := range drafted {
		ok := true
		for _, c := range constraints {
			if !checker.Satisfies(sol, c) {
				ok = false
				break
			}
		}
		if ok {
			surviving = append(surviving, sol)
		}
	}
	return surviving
}

// rank implements step 6: sort by composite_score descending, tie-break by
// safety_score descending then by the lower (pre-rank) solution_id, keep
// at most max, and renumber solution_id 1..N in rank order.
func rank(surviving []disruption.RecoverySolution, max int) []disruption.RecoverySolution {
	sorted := make([]disruption.RecoverySolution, len(surviving))
	copy(sorted, surviving)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.SafetyScore != b.SafetyScore {
			return a.SafetyScore > b.SafetyScore
		}
		return a.SolutionID < b.SolutionID
	})

	if len(sorted) > max {
		sorted = sorted[:max]
	}
	for i := range sorted {
		sorted[i].SolutionID = i + 1
		sorted[i].RecoveryPlan.SolutionID = i + 1
	}
	return sorted
}

// projectBackwardCompat implements step 7: copy the recommended (first
// ranked) solution's fields into ArbitratorOutput's flat backward-compat
// fields (spec §3.1, §4.3 step 7). A no-op if SolutionOptions is empty.
func projectBackwardCompat(out *disruption.ArbitratorOutput) {
	if len(out.SolutionOptions) == 0 {
		return
	}
	top := out.SolutionOptions[0]
	out.FinalDecision = top.Title
	out.Recommendations = top.Recommendations
	out.Justification = strings.TrimSpace(strings.Join(append([]string{top.Description}, top.Pros...), " "))
	out.Reasoning = top.Description
	out.Confidence = top.Confidence
}
