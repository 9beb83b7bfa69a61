// Package orchestrator drives the three-phase deliberation pipeline:
// initial fan-out, revision fan-out, arbitration. It owns the audit trail,
// maps halt and fallback conditions to the final status, and packages the
// result. It is stateless across calls; every entity it creates lives for
// one disruption and is returned to the caller.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/skyrecover/pkg/arbitration"
	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
	"github.com/codeready-toolchain/skyrecover/pkg/masking"
	"github.com/codeready-toolchain/skyrecover/pkg/orchestration"
)

// Error kinds surfaced in FinalOutput.Error. Hosts branch on these when
// mapping a FinalOutput onto their transport (e.g. prompt_invalid -> 400).
const (
	ErrKindPromptInvalid      = "prompt_invalid"
	ErrKindSafetyHalt         = "safety_halt"
	ErrKindArbitratorFallback = "arbitrator_fallback"
)

// Orchestrator drives the three phases in order and assembles the final
// output with its full audit trail.
type Orchestrator struct {
	runner     *orchestration.PhaseRunner
	arbitrator *arbitration.Arbitrator
	timeouts   orchestration.Timeouts
	masker     *masking.Service
}

// New builds an Orchestrator. masker may be nil; log lines then carry the
// prompt unmasked.
func New(runner *orchestration.PhaseRunner, arb *arbitration.Arbitrator, timeouts orchestration.Timeouts, masker *masking.Service) *Orchestrator {
	return &Orchestrator{
		runner:     runner,
		arbitrator: arb,
		timeouts:   timeouts,
		masker:     masker,
	}
}

// Handle is the core's single external operation: natural-language
// disruption description in, ranked recovery options with a complete audit
// trail out. It always returns a FinalOutput, never an error — status is
// the first signal, and the audit trail preserves every phase that did
// execute.
func (o *Orchestrator) Handle(ctx context.Context, userPrompt string) disruption.FinalOutput {
	start := time.Now()
	id := uuid.NewString()
	log := slog.With("disruption_id", id)

	log.Info("disruption received", "prompt", o.maskForLog(userPrompt))

	if countNonWhitespace(userPrompt) < disruption.MinPromptLength {
		log.Warn("prompt rejected", "reason", ErrKindPromptInvalid)
		return disruption.FinalOutput{
			Status:               disruption.FinalStatusFailed,
			Error:                ErrKindPromptInvalid,
			DisruptionID:         id,
			TotalDurationSeconds: time.Since(start).Seconds(),
		}
	}

	// Phase 1: initial fan-out.
	c1, err := o.runner.Run(ctx, disruption.PhaseInitial, userPrompt, nil)
	if halted, out := o.checkHalt(err, start, id, c1, nil); halted {
		return out
	}

	// Phase 2: revision fan-out with the full phase-1 collation.
	c2, err := o.runner.Run(ctx, disruption.PhaseRevision, userPrompt, c1)
	if halted, out := o.checkHalt(err, start, id, c1, c2); halted {
		return out
	}

	// Phase 3: single arbitrator call under its own wall-clock deadline.
	arbCtx, cancel := context.WithTimeout(ctx, o.timeouts.Arbitrator)
	arbOut, arbErr := o.arbitrator.Arbitrate(arbCtx, *c2)
	cancel()

	status := disruption.FinalStatusSuccess
	errKind := ""
	if arbErr != nil {
		// The arbitrator never propagates internal failures; a non-nil
		// error here is always the fallback marker.
		log.Warn("arbitration degraded to conservative fallback", "error", arbErr)
		status = disruption.FinalStatusPartial
		errKind = ErrKindArbitratorFallback
	} else if len(c1.Failed()) > 0 || len(c2.Failed()) > 0 {
		status = disruption.FinalStatusPartial
	}

	out := disruption.FinalOutput{
		Status:           status,
		Error:            errKind,
		ArbitratorOutput: arbOut,
		AuditTrail: disruption.AuditTrail{
			Phase1Initial:     c1,
			Phase2Revision:    c2,
			Phase3Arbitration: &arbOut,
		},
		TotalDurationSeconds: time.Since(start).Seconds(),
		DisruptionID:         id,
	}
	log.Info("disruption handled",
		"status", out.Status,
		"solutions", len(out.SolutionOptions),
		"total_duration_seconds", out.TotalDurationSeconds)
	return out
}

// checkHalt maps a PhaseRunner error to the failed FinalOutput carrying
// whatever partial audit trail exists. halted is false when err is nil.
func (o *Orchestrator) checkHalt(err error, start time.Time, id string, c1, c2 *disruption.Collation) (bool, disruption.FinalOutput) {
	if err == nil {
		return false, disruption.FinalOutput{}
	}

	var haltInfo *disruption.SafetyHaltInfo
	var halt *orchestration.SafetyHaltError
	if errors.As(err, &halt) {
		haltInfo = &disruption.SafetyHaltInfo{Phase: halt.Phase, FailedAgents: halt.FailedAgents}
	} else {
		// Only invalid-phase misuse reaches here; treat it like a halt with
		// no named agents rather than panicking in production.
		slog.Error("phase runner failed", "disruption_id", id, "error", err)
	}

	slog.Warn("safety halt, aborting remaining phases",
		"disruption_id", id, "error", err)
	return true, disruption.FinalOutput{
		Status:     disruption.FinalStatusFailed,
		Error:      ErrKindSafetyHalt,
		SafetyHalt: haltInfo,
		AuditTrail: disruption.AuditTrail{
			Phase1Initial:  c1,
			Phase2Revision: c2,
		},
		TotalDurationSeconds: time.Since(start).Seconds(),
		DisruptionID:         id,
	}
}

func (o *Orchestrator) maskForLog(s string) string {
	if o.masker == nil {
		return s
	}
	return o.masker.Mask(s)
}

// countNonWhitespace counts the prompt's non-whitespace runes — the input
// check counts characters that carry content, not padding.
func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
