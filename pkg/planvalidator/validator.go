// Package planvalidator implements RecoveryPlanValidator: a pure,
// dependency-free function that checks a disruption.RecoveryPlan's step
// graph is well-formed (spec §4.4). It is deliberately decoupled from the
// arbitrator that produces plans, so it can be fuzzed and reused
// independently (spec §9).
package planvalidator

import (
	"fmt"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// Violation is a single defect found in a RecoveryPlan.
type Violation struct {
	Kind    string
	Detail  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Violation kinds, named rather than typed as a closed enum since callers
// only ever print or count them.
const (
	KindDuplicateStepNumber   = "duplicate_step_number"
	KindNonContiguousNumbers  = "non_contiguous_step_numbers"
	KindSelfDependency        = "self_dependency"
	KindUnknownDependency     = "unknown_dependency"
	KindCycle                 = "cycle"
	KindUnknownCriticalPath   = "unknown_critical_path_step"
	KindEmptyRequiredField    = "empty_required_field"
)

// Validate checks plan against every rule in spec §4.4 and returns the
// full list of violations found (nil/empty if the plan is well-formed).
// It never stops at the first violation — the arbitrator drops the
// solution either way, but a complete list is more useful for logging and
// for fuzzing.
func Validate(plan disruption.RecoveryPlan) []Violation {
	var violations []Violation

	stepByNumber := make(map[int]disruption.RecoveryStep)
	seen := make(map[int]bool)
	for _, step := range plan.Steps {
		if seen[step.StepNumber] {
			violations = append(violations, Violation{KindDuplicateStepNumber, fmt.Sprintf("step_number %d appears more than once", step.StepNumber)})
			continue
		}
		seen[step.StepNumber] = true
		stepByNumber[step.StepNumber] = step
	}

	total := len(plan.Steps)
	for n := 1; n <= total; n++ {
		if !seen[n] {
			violations = append(violations, Violation{KindNonContiguousNumbers, fmt.Sprintf("missing step_number %d in a plan of %d steps", n, total)})
		}
	}
	for n := range seen {
		if n < 1 || n > total {
			violations = append(violations, Violation{KindNonContiguousNumbers, fmt.Sprintf("step_number %d falls outside 1..%d", n, total)})
		}
	}

	for _, step := range plan.Steps {
		violations = append(violations, validateRequiredFields(step)...)

		for _, dep := range step.Dependencies {
			if dep == step.StepNumber {
				violations = append(violations, Violation{KindSelfDependency, fmt.Sprintf("step %d depends on itself", step.StepNumber)})
				continue
			}
			if _, ok := stepByNumber[dep]; !ok {
				violations = append(violations, Violation{KindUnknownDependency, fmt.Sprintf("step %d depends on non-existent step %d", step.StepNumber, dep)})
			}
		}
	}

	for _, cyc := range findCycles(plan.Steps) {
		violations = append(violations, Violation{KindCycle, fmt.Sprintf("cycle through steps %v", cyc)})
	}

	for _, n := range plan.CriticalPath {
		if _, ok := stepByNumber[n]; !ok {
			violations = append(violations, Violation{KindUnknownCriticalPath, fmt.Sprintf("critical_path references non-existent step %d", n)})
		}
	}

	return violations
}

func validateRequiredFields(step disruption.RecoveryStep) []Violation {
	var violations []Violation
	required := map[string]string{
		"step_name":         step.StepName,
		"description":       step.Description,
		"responsible_agent": step.ResponsibleAgent,
		"action_type":       step.ActionType,
		"success_criteria":  step.SuccessCriteria,
		"estimated_duration": step.EstimatedDuration,
	}
	for field, value := range required {
		if value == "" {
			violations = append(violations, Violation{KindEmptyRequiredField, fmt.Sprintf("step %d: %s is empty", step.StepNumber, field)})
		}
	}
	return violations
}

// colour used by the DFS cycle detector below.
type colour int

const (
	white colour = iota
	grey
	black
)

// findCycles performs a standard DFS-with-colouring cycle detection over
// the dependency graph (spec §4.4), adapted from the resource-dependency
// cycle finder in the retrieved pack's graph analyzer (three-colour DFS:
// white = unvisited, grey = on the current recursion stack, black = fully
// explored; a grey→grey edge is a cycle).
func findCycles(steps []disruption.RecoveryStep) [][]int {
	byNumber := make(map[int]disruption.RecoveryStep, len(steps))
	for _, s := range steps {
		byNumber[s.StepNumber] = s
	}

	colours := make(map[int]colour, len(steps))
	var stack []int
	var cycles [][]int

	var visit func(n int)
	visit = func(n int) {
		colours[n] = grey
		stack = append(stack, n)

		for _, dep := range byNumber[n].Dependencies {
			if _, ok := byNumber[dep]; !ok {
				continue // unknown dependency; reported separately
			}
			switch colours[dep] {
			case white:
				visit(dep)
			case grey:
				cycles = append(cycles, cyclePath(stack, dep))
			case black:
				// already fully explored, no cycle through here
			}
		}

		stack = stack[:len(stack)-1]
		colours[n] = black
	}

	for _, s := range steps {
		if colours[s.StepNumber] == white {
			visit(s.StepNumber)
		}
	}
	return cycles
}

// cyclePath extracts the portion of stack from the first occurrence of
// target to the end, representing the cycle just closed.
func cyclePath(stack []int, target int) []int {
	for i, n := range stack {
		if n == target {
			out := make([]int, len(stack)-i)
			copy(out, stack[i:])
			return out
		}
	}
	return nil
}
