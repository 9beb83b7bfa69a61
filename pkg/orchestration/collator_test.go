package orchestration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

func TestCollator_FixesMismatchedAgentName(t *testing.T) {
	c := Collator{}
	responses := map[disruption.AgentName]disruption.AgentResponse{
		disruption.AgentNetwork: {AgentName: "wrong-name", Status: disruption.StatusSuccess},
	}
	collation := c.Collate(disruption.PhaseInitial, responses, time.Now())
	assert.Equal(t, disruption.AgentNetwork, collation.Responses[disruption.AgentNetwork].AgentName)
}

func TestCollator_DurationIsPositive(t *testing.T) {
	c := Collator{}
	collation := c.Collate(disruption.PhaseInitial, nil, time.Now().Add(-10*time.Millisecond))
	assert.Greater(t, collation.DurationSeconds, 0.0)
}
