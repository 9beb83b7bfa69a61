// Package orchestration implements the PhaseRunner and Collator: fanning
// one phase's work out to the fixed seven-agent registry in parallel,
// applying per-agent deadlines, enforcing the safety-halt policy, and
// assembling the results into a disruption.Collation.
//
// This generalises the teacher's pkg/agent/orchestrator.SubAgentRunner —
// which dynamically dispatches an unbounded number of sub-agents at an
// LLM's discretion — into a fixed fan-out with a hard barrier: every
// agent in phase k returns or is reaped before phase k+1 starts.
package orchestration

import (
	"fmt"
	"time"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// Timeouts holds the per-phase, per-class agent deadlines from spec §4.2.
// Phase 2's per-agent timeout is always Phase 1's value for that agent's
// class plus RevisionExtra, never configured independently — this mirrors
// the spec's "(Phase-1 value + 30s)" rule exactly rather than exposing a
// second knob that could silently drift from it.
type Timeouts struct {
	Phase1Safety   time.Duration
	Phase1Business time.Duration
	RevisionExtra  time.Duration
	Arbitrator     time.Duration
}

// DefaultTimeouts returns the defaults named in spec §4.2: 60s/45s for
// phase 1 safety/business agents, +30s for phase 2, 60s for the
// arbitrator.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Phase1Safety:   60 * time.Second,
		Phase1Business: 45 * time.Second,
		RevisionExtra:  30 * time.Second,
		Arbitrator:     60 * time.Second,
	}
}

// ForAgent returns the deadline for one agent in one phase.
func (t Timeouts) ForAgent(phase disruption.Phase, class disruption.AgentClass) time.Duration {
	base := t.Phase1Business
	if class == disruption.ClassSafety {
		base = t.Phase1Safety
	}
	if phase == disruption.PhaseRevision {
		base += t.RevisionExtra
	}
	return base
}

// MaxPossibleWait returns the largest single per-agent deadline across
// both fan-out phases plus the arbitrator timeout — the bound referenced
// by testable property 1 in spec §8 (Handle terminates within
// max(per-agent-timeout) + arbitrator-timeout + O(1)).
func (t Timeouts) MaxPossibleWait() time.Duration {
	max := t.ForAgent(disruption.PhaseRevision, disruption.ClassSafety)
	if biz := t.ForAgent(disruption.PhaseRevision, disruption.ClassBusiness); biz > max {
		max = biz
	}
	return max + t.Arbitrator
}

// SafetyHaltError is raised by PhaseRunner.Run when one or more
// Safety-class agents fail in the phase just completed. It carries the
// partial Collation so the Orchestrator can still record it in the audit
// trail, per spec §4.2 step 5 and §7.
type SafetyHaltError struct {
	Phase         disruption.Phase
	FailedAgents  []disruption.AgentName
	Partial       disruption.Collation
}

func (e *SafetyHaltError) Error() string {
	return fmt.Sprintf("safety halt in phase %s: agent(s) %v failed", e.Phase, e.FailedAgents)
}
