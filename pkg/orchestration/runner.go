package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/skyrecover/pkg/agent"
	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// PhaseRunner fans one phase's work out to the fixed seven-agent registry
// in parallel, applies per-agent deadlines, and enforces the safety-halt
// policy (spec §4.2). Generalises the teacher's
// pkg/agent/orchestrator.SubAgentRunner push-based dispatch model into a
// fixed-size fan-out with a hard barrier between phases.
type PhaseRunner struct {
	registry  *agent.Registry
	timeouts  Timeouts
	augmenter PromptAugmenter
	collator  Collator
}

// NewPhaseRunner builds a PhaseRunner over the given agent registry and
// timeout table.
func NewPhaseRunner(registry *agent.Registry, timeouts Timeouts) *PhaseRunner {
	return &PhaseRunner{registry: registry, timeouts: timeouts}
}

type agentResult struct {
	name disruption.AgentName
	resp disruption.AgentResponse
}

// Run executes one phase: every agent in disruption.AllAgents is invoked
// concurrently, each under its own deadline; Run blocks until every agent
// has returned or been reaped (spec §5 "barrier semantics"). prior must be
// non-nil iff phase is revision.
//
// An invalid phase or a revision call without prior returns a nil
// Collation and an error before any agent runs. Past those checks, Run
// always returns a non-nil Collation, even when it also returns a
// non-nil error — callers that only care about the happy path can ignore
// the error, but the Orchestrator needs the partial collation for the
// audit trail on a safety halt (spec §4.2 step 5, §7).
func (r *PhaseRunner) Run(ctx context.Context, phase disruption.Phase, prompt string, prior *disruption.Collation) (*disruption.Collation, error) {
	if !phase.IsValid() {
		return nil, fmt.Errorf("orchestration: invalid phase %q", phase)
	}
	if phase == disruption.PhaseRevision && prior == nil {
		return nil, fmt.Errorf("orchestration: revision phase requires a prior collation")
	}

	start := time.Now()
	payload := r.augmenter.BuildPayload(phase, prompt, prior)

	// phaseCtx is cancelled either by the caller or by the best-effort
	// safety-halt optimisation below; every per-agent context derives from
	// it so cancelling it reaches every still-running agent at its next
	// suspension point (spec §5).
	phaseCtx, cancelPhase := context.WithCancel(ctx)
	defer cancelPhase()

	resultsCh := make(chan agentResult, len(disruption.AllAgents))
	var wg sync.WaitGroup
	for _, name := range disruption.AllAgents {
		name := name
		client, ok := r.registry.Get(name)
		if !ok {
			// Unreachable given agent.NewRegistry's validation, but guarded
			// defensively rather than assumed.
			resultsCh <- agentResult{name: name, resp: disruption.AgentResponse{
				AgentName: name, Status: disruption.StatusError,
				Error: "agent not present in registry", Timestamp: time.Now().UTC(),
			}}
			continue
		}
		class := disruption.ClassOf(name)
		deadline := r.timeouts.ForAgent(phase, class)

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := r.invokeOne(phaseCtx, client, name, payload, deadline)
			resultsCh <- agentResult{name: name, resp: resp}
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	responses := make(map[disruption.AgentName]disruption.AgentResponse, len(disruption.AllAgents))
	for res := range resultsCh {
		responses[res.name] = res.resp
		if disruption.IsSafety(res.name) && res.resp.Status != disruption.StatusSuccess {
			// Best-effort: stop wasting budget on business agents once a
			// safety halt is already certain. Correctness does not depend
			// on this firing (spec §5).
			cancelPhase()
		}
	}

	collation := r.collator.Collate(phase, responses, start)

	if failed := collation.FailedSafetyAgents(); len(failed) > 0 {
		slog.Warn("orchestration: safety halt", "phase", phase, "failed_agents", failed)
		return collation, &SafetyHaltError{Phase: phase, FailedAgents: failed, Partial: *collation}
	}

	slog.Info("orchestration: phase complete",
		"phase", phase, "duration_seconds", collation.DurationSeconds,
		"failed_count", len(collation.Failed()))
	return collation, nil
}

// invokeOne wraps a single agent call with the timeout/error guard from
// spec §4.2 step 3. It never returns an error — every outcome, including a
// panic inside client.Analyse, becomes an AgentResponse.
func (r *PhaseRunner) invokeOne(
	ctx context.Context,
	client agent.Client,
	name disruption.AgentName,
	payload disruption.DisruptionPayload,
	deadline time.Duration,
) disruption.AgentResponse {
	start := time.Now()
	agentCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type outcome struct {
		resp disruption.AgentResponse
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("agent %s panicked: %v", name, rec)}
			}
		}()
		resp, err := client.Analyse(agentCtx, payload)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return disruption.AgentResponse{
				AgentName: name, Status: disruption.StatusError, Error: o.err.Error(),
				Confidence: 0, DurationSeconds: time.Since(start).Seconds(), Timestamp: time.Now().UTC(),
			}
		}
		resp := o.resp
		resp.AgentName = name
		if !disruption.IsSafety(name) && len(resp.BindingConstraints) > 0 {
			// Only Safety-class agents may bind constraints; anything a
			// business agent claims is stripped on ingest.
			slog.Warn("orchestration: dropping binding constraints from business agent",
				"agent", name, "count", len(resp.BindingConstraints))
			resp.BindingConstraints = nil
		}
		return resp
	case <-agentCtx.Done():
		// The goroutine above may still be running; it has been signalled
		// via agentCtx and is expected to return at its next suspension
		// point. Drain its result asynchronously so it never blocks
		// forever trying to send on done (spec §5 "isolated... discarded").
		go func() { <-done }()

		if agentCtx.Err() == context.DeadlineExceeded {
			return disruption.AgentResponse{
				AgentName: name, Status: disruption.StatusTimeout,
				Error:           fmt.Sprintf("deadline exceeded at %.0fs", deadline.Seconds()),
				Confidence:      0,
				DurationSeconds: deadline.Seconds(),
				Timestamp:       time.Now().UTC(),
			}
		}
		return disruption.AgentResponse{
			AgentName: name, Status: disruption.StatusError,
			Error:           fmt.Sprintf("cancelled: %v", agentCtx.Err()),
			Confidence:      0,
			DurationSeconds: time.Since(start).Seconds(),
			Timestamp:       time.Now().UTC(),
		}
	}
}
