package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/skyrecover/pkg/agent"
	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

func TestHandle_TerminatesWithinTimeoutBound(t *testing.T) {
	// Every agent ignores its deadline by sleeping far past it; Handle must
	// still return within the configured bound, not wait the sleeps out.
	clients := map[disruption.AgentName]agent.Client{}
	for _, name := range disruption.AllAgents {
		clients[name] = &agent.MockClient{
			Name:    name,
			Default: agent.ScriptedResponse{Delay: 30 * time.Second},
		}
	}
	o := newOrchestrator(t, clients)

	start := time.Now()
	out := o.Handle(context.Background(), validPrompt)
	elapsed := time.Since(start)

	bound := fastTimeouts().MaxPossibleWait() + time.Second
	assert.Less(t, elapsed, bound)
	assert.Equal(t, disruption.FinalStatusFailed, out.Status)
}

func TestHandle_SolutionOrderingInvariants(t *testing.T) {
	o := newOrchestrator(t, allSuccessClients())
	out := o.Handle(context.Background(), validPrompt)

	require.NotEmpty(t, out.SolutionOptions)
	require.LessOrEqual(t, len(out.SolutionOptions), 3)
	assert.Equal(t, out.SolutionOptions[0].SolutionID, out.RecommendedSolutionID)

	for i := 1; i < len(out.SolutionOptions); i++ {
		assert.GreaterOrEqual(t,
			out.SolutionOptions[i-1].CompositeScore,
			out.SolutionOptions[i].CompositeScore,
			"solution_options must be sorted by composite_score descending")
	}
	for i, sol := range out.SolutionOptions {
		assert.Equal(t, i+1, sol.SolutionID, "solution ids are renumbered 1..N in rank order")
	}
}

func TestHandle_CompositeScoreIdentity(t *testing.T) {
	o := newOrchestrator(t, allSuccessClients())
	out := o.Handle(context.Background(), validPrompt)

	for _, sol := range out.SolutionOptions {
		expected := 0.4*sol.SafetyScore + 0.2*sol.CostScore + 0.2*sol.PassengerScore + 0.2*sol.NetworkScore
		assert.InDelta(t, expected, sol.CompositeScore, 0.1)
	}
}

func TestHandle_RecoveryPlansAreValidDAGs(t *testing.T) {
	o := newOrchestrator(t, allSuccessClients())
	out := o.Handle(context.Background(), validPrompt)

	for _, sol := range out.SolutionOptions {
		plan := sol.RecoveryPlan
		seen := map[int]bool{}
		for _, step := range plan.Steps {
			assert.False(t, seen[step.StepNumber], "duplicate step number")
			seen[step.StepNumber] = true
			for _, dep := range step.Dependencies {
				assert.NotEqual(t, step.StepNumber, dep, "self-dependency")
				assert.True(t, dep >= 1 && dep <= len(plan.Steps), "dependency out of range")
			}
		}
		for n := 1; n <= plan.TotalSteps(); n++ {
			assert.True(t, seen[n], "step numbers must be contiguous 1..N")
		}
	}
}

func TestHandle_AuditTrailCompleteIffNoHalt(t *testing.T) {
	// Success path: exactly three audit entries.
	o := newOrchestrator(t, allSuccessClients())
	out := o.Handle(context.Background(), validPrompt)
	assert.NotNil(t, out.AuditTrail.Phase1Initial)
	assert.NotNil(t, out.AuditTrail.Phase2Revision)
	assert.NotNil(t, out.AuditTrail.Phase3Arbitration)

	// Phase-2 halt: phases 1 and 2 preserved, no arbitration entry.
	clients := allSuccessClients()
	clients[disruption.AgentRegulatory] = &agent.MockClient{
		Name: disruption.AgentRegulatory,
		ByPhase: map[disruption.Phase]agent.ScriptedResponse{
			disruption.PhaseInitial:  {Response: disruption.AgentResponse{Recommendation: "file ATC notice", Confidence: 0.8, Reasoning: "regulatory analysis"}},
			disruption.PhaseRevision: {Delay: 2 * time.Second},
		},
	}
	o = newOrchestrator(t, clients)
	out = o.Handle(context.Background(), validPrompt)

	assert.Equal(t, disruption.FinalStatusFailed, out.Status)
	require.NotNil(t, out.SafetyHalt)
	assert.Equal(t, disruption.PhaseRevision, out.SafetyHalt.Phase)
	assert.NotNil(t, out.AuditTrail.Phase1Initial)
	assert.NotNil(t, out.AuditTrail.Phase2Revision)
	assert.Nil(t, out.AuditTrail.Phase3Arbitration)
}

func TestHandle_CollationKeysMatchAgentNames(t *testing.T) {
	o := newOrchestrator(t, allSuccessClients())
	out := o.Handle(context.Background(), validPrompt)

	for _, collation := range []*disruption.Collation{out.AuditTrail.Phase1Initial, out.AuditTrail.Phase2Revision} {
		require.NotNil(t, collation)
		assert.Len(t, collation.Responses, len(disruption.AllAgents))
		for name, resp := range collation.Responses {
			assert.Equal(t, name, resp.AgentName)
		}
	}
}

func TestHandle_CallerCancellation(t *testing.T) {
	clients := map[disruption.AgentName]agent.Client{}
	for _, name := range disruption.AllAgents {
		clients[name] = &agent.MockClient{
			Name:    name,
			Default: agent.ScriptedResponse{Delay: 10 * time.Second},
		}
	}
	o := newOrchestrator(t, clients)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := o.Handle(ctx, validPrompt)

	assert.Less(t, time.Since(start), time.Second, "cancellation must reach in-flight agents promptly")
	assert.Equal(t, disruption.FinalStatusFailed, out.Status)
}

func TestCountNonWhitespace(t *testing.T) {
	assert.Equal(t, 7, countNonWhitespace("EY1 sick"))
	assert.Equal(t, 10, countNonWhitespace("  a b c d e f g h i j  "))
	assert.Equal(t, 0, countNonWhitespace(" \t\n"))
}
