// Package arbitration implements the Arbitrator: the seven-sub-step
// algorithm from spec §4.3 that turns a revision-phase Collation into a
// ranked, safety-filtered set of RecoverySolutions.
//
// The package is organised by sub-step: constraints.go (step 1),
// conflicts.go (step 2), seed.go (step 3), draft.go (step 4), rank.go
// (steps 5-7). arbitrator.go wires them together behind Arbitrate and
// owns the failure-never-propagates guarantee.
package arbitration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// Weights is the convex combination used to compute a solution's
// composite score (spec §3.2, §9 "arbitrary arbitrator weights").
type Weights struct {
	Safety     float64
	Cost       float64
	Passenger  float64
	Network    float64
}

// DefaultWeights returns the 40/20/20/20 split named throughout spec.md.
func DefaultWeights() Weights {
	return Weights{Safety: 0.4, Cost: 0.2, Passenger: 0.2, Network: 0.2}
}

// Sum returns the total of the four weights, used to validate the convex
// combination constraint (must sum to 1.0 ± 1e-6, per spec §6).
func (w Weights) Sum() float64 {
	return w.Safety + w.Cost + w.Passenger + w.Network
}

// ErrDegradedArbitrationDisabled is returned (wrapped in FallbackError) when
// Arbitrate is invoked over a collation with failed Safety agents while the
// degraded-arbitration flag is off (spec §4.3 step 1). In normal operation
// the Orchestrator never reaches this: a Safety failure already triggers a
// phase-2 safety halt before the Arbitrator is invoked. The check exists so
// Arbitrate is safe to call in isolation (e.g. by tests or a future host)
// without relying on that external invariant.
var ErrDegradedArbitrationDisabled = errors.New("arbitration: safety agent failed and degraded arbitration is disabled")

// FallbackError wraps whatever internal condition forced the conservative
// fallback (spec §4.3 "Failure semantics"). Its presence tells the
// Orchestrator to mark FinalOutput.Status as partial.
type FallbackError struct {
	Reason string
	Err    error
}

func (e *FallbackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("arbitration fallback (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("arbitration fallback: %s", e.Reason)
}

func (e *FallbackError) Unwrap() error { return e.Err }

// Arbitrator consumes a phase-2 Collation and produces a ranked,
// constraint-filtered ArbitratorOutput.
type Arbitrator struct {
	Weights              Weights
	MaxSolutions         int
	DegradedArbitration  bool
	ConstraintChecker    ConstraintChecker
}

// NewArbitrator builds an Arbitrator with the given weights, solution cap,
// degraded-arbitration flag, and constraint checker. A nil checker falls
// back to SubstringConstraintChecker, the "safe default" named in spec §9.
func NewArbitrator(weights Weights, maxSolutions int, degraded bool, checker ConstraintChecker) *Arbitrator {
	if checker == nil {
		checker = SubstringConstraintChecker{}
	}
	if maxSolutions < 1 || maxSolutions > 3 {
		maxSolutions = 3
	}
	return &Arbitrator{
		Weights:             weights,
		MaxSolutions:        maxSolutions,
		DegradedArbitration: degraded,
		ConstraintChecker:   checker,
	}
}

// Arbitrate runs the full seven-step algorithm. It never panics or returns
// a bare error from an internal failure — any such failure is converted
// into the conservative fallback solution, and the returned error (always
// a *FallbackError in that case) tells the caller arbitration degraded.
func (a *Arbitrator) Arbitrate(ctx context.Context, collation disruption.Collation) (out disruption.ArbitratorOutput, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("arbitration: recovered from panic, emitting fallback", "panic", rec)
			out = a.conservativeFallback()
			err = &FallbackError{Reason: "internal panic", Err: fmt.Errorf("%v", rec)}
		}
	}()

	if failed := collation.FailedSafetyAgents(); len(failed) > 0 && !a.DegradedArbitration {
		return a.conservativeFallback(), &FallbackError{Reason: "safety agent failed", Err: ErrDegradedArbitrationDisabled}
	}

	// Step 1: constraint extraction.
	constraints := extractConstraints(collation)

	// Step 2: conflict classification.
	conflicts, resolutions, overrides := classifyConflicts(collation)

	// Step 3: solution seeding.
	strategies := seedStrategies(collation)

	// Step 4: per-solution drafting.
	var drafted []disruption.RecoverySolution
	for i, strat := range strategies {
		sol, ok := draftSolution(i+1, strat, collation, a.Weights, conflicts)
		if !ok {
			continue // drafting failure for this seed; drop and continue (spec §4.3 failure semantics)
		}
		drafted = append(drafted, sol)
	}

	// Step 5: constraint filtering.
	surviving := filterByConstraints(drafted, constraints, a.ConstraintChecker)
	if len(surviving) == 0 {
		fallback := a.conservativeFallback()
		fallback.ConflictsIdentified = conflicts
		fallback.ConflictResolutions = resolutions
		fallback.SafetyOverrides = overrides
		return fallback, &FallbackError{Reason: "no solution satisfies all binding constraints"}
	}

	// Step 6: ranking.
	ranked := rank(surviving, a.MaxSolutions)

	out = disruption.ArbitratorOutput{
		SolutionOptions:       ranked,
		RecommendedSolutionID: 1,
		ConflictsIdentified:   conflicts,
		ConflictResolutions:   resolutions,
		SafetyOverrides:       overrides,
	}
	// Step 7: backward-compat projection.
	projectBackwardCompat(&out)
	return out, nil
}

// conservativeFallback builds the single-option, confidence-0 fallback
// described in spec §4.3 step 5 and §9.
func (a *Arbitrator) conservativeFallback() disruption.ArbitratorOutput {
	solution := disruption.RecoverySolution{
		SolutionID:      1,
		Title:           "Escalate to duty officer",
		Description:     "No candidate recovery solution could be constructed or satisfied every binding safety constraint. Escalating to a human duty officer for manual review.",
		Recommendations: []string{"Escalate to duty officer for manual review"},
		Confidence:      0,
		EstimatedDuration: "unknown",
		RecoveryPlan: disruption.RecoveryPlan{
			SolutionID: 1,
			Steps: []disruption.RecoveryStep{
				{
					StepNumber:         1,
					StepName:           "Escalate to duty officer",
					Description:        "Hand the disruption off to a human duty officer; no automated recovery plan satisfies all binding constraints.",
					ResponsibleAgent:   "duty_officer",
					ActionType:         "manual_escalation",
					SuccessCriteria:    "duty officer acknowledges and takes ownership",
					EstimatedDuration:  "unknown",
					AutomationPossible: false,
				},
			},
			EstimatedTotalDuration: "unknown",
		},
	}
	out := disruption.ArbitratorOutput{
		SolutionOptions:       []disruption.RecoverySolution{solution},
		RecommendedSolutionID: 1,
	}
	projectBackwardCompat(&out)
	return out
}
