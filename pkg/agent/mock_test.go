package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

func TestMockClient_DefaultSuccess(t *testing.T) {
	c := NewMockClient(disruption.AgentNetwork, "reroute via AUH", 0.75)
	resp, err := c.Analyse(context.Background(), disruption.DisruptionPayload{
		UserPrompt: "Flight EY123 on 2026-01-20 had a mechanical failure", Phase: disruption.PhaseInitial,
	})
	require.NoError(t, err)
	assert.Equal(t, disruption.AgentNetwork, resp.AgentName)
	assert.Equal(t, disruption.StatusSuccess, resp.Status)
	assert.Equal(t, 0.75, resp.Confidence)
}

func TestMockClient_PhaseOverride(t *testing.T) {
	c := &MockClient{
		Name: disruption.AgentRegulatory,
		ByPhase: map[disruption.Phase]ScriptedResponse{
			disruption.PhaseRevision: {Response: disruption.AgentResponse{Recommendation: "hold for audit", Confidence: 0.6}},
		},
		Default: ScriptedResponse{Response: disruption.AgentResponse{Recommendation: "no issue", Confidence: 0.9}},
	}
	resp, err := c.Analyse(context.Background(), disruption.DisruptionPayload{Phase: disruption.PhaseRevision})
	require.NoError(t, err)
	assert.Equal(t, "hold for audit", resp.Recommendation)

	resp, err = c.Analyse(context.Background(), disruption.DisruptionPayload{Phase: disruption.PhaseInitial})
	require.NoError(t, err)
	assert.Equal(t, "no issue", resp.Recommendation)
}

func TestMockClient_ErrScripted(t *testing.T) {
	c := &MockClient{Name: disruption.AgentCargo, Default: ScriptedResponse{Err: errors.New("unreachable")}}
	_, err := c.Analyse(context.Background(), disruption.DisruptionPayload{Phase: disruption.PhaseInitial})
	require.Error(t, err)
}

func TestMockClient_DelayRespectsCancellation(t *testing.T) {
	c := &MockClient{Name: disruption.AgentCargo, Default: ScriptedResponse{Delay: time.Second}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Analyse(ctx, disruption.DisruptionPayload{Phase: disruption.PhaseInitial})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
