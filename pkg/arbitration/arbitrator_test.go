package arbitration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

func successResponse(name disruption.AgentName, recommendation, reasoning string, confidence float64, constraints ...string) disruption.AgentResponse {
	return disruption.AgentResponse{
		AgentName: name, Status: disruption.StatusSuccess,
		Recommendation: recommendation, Reasoning: reasoning, Confidence: confidence,
		BindingConstraints: constraints, Timestamp: time.Now(),
	}
}

func fullCollation() disruption.Collation {
	return disruption.Collation{
		Phase: disruption.PhaseRevision,
		Responses: map[disruption.AgentName]disruption.AgentResponse{
			disruption.AgentCrewCompliance:   successResponse(disruption.AgentCrewCompliance, "delay the flight 2 hours for crew rest", "crew is past duty limits", 0.9),
			disruption.AgentMaintenance:      successResponse(disruption.AgentMaintenance, "proceed as scheduled after inspection", "aircraft cleared", 0.8),
			disruption.AgentRegulatory:       successResponse(disruption.AgentRegulatory, "proceed as scheduled", "no regulatory blocker", 0.7),
			disruption.AgentNetwork:          successResponse(disruption.AgentNetwork, "reroute via alternate hub", "minimizes network cascade", 0.75),
			disruption.AgentGuestExperience:  successResponse(disruption.AgentGuestExperience, "rebook affected passengers", "limits passenger disruption", 0.7),
			disruption.AgentCargo:            successResponse(disruption.AgentCargo, "reroute cargo with passengers", "keeps cargo on schedule", 0.6),
			disruption.AgentFinance:          successResponse(disruption.AgentFinance, "cancel the rotation to cap costs", "lowest cost option", 0.65),
		},
	}
}

func TestArbitrate_HappyPath(t *testing.T) {
	a := NewArbitrator(DefaultWeights(), 3, false, nil)
	out, err := a.Arbitrate(context.Background(), fullCollation())
	require.NoError(t, err)
	require.NotEmpty(t, out.SolutionOptions)
	assert.LessOrEqual(t, len(out.SolutionOptions), 3)
	assert.Equal(t, 1, out.RecommendedSolutionID)

	for i, sol := range out.SolutionOptions {
		assert.Equal(t, i+1, sol.SolutionID)
		expected := DefaultWeights().Safety*sol.SafetyScore + DefaultWeights().Cost*sol.CostScore +
			DefaultWeights().Passenger*sol.PassengerScore + DefaultWeights().Network*sol.NetworkScore
		assert.InDelta(t, expected, sol.CompositeScore, 0.1)
	}
	for i := 1; i < len(out.SolutionOptions); i++ {
		assert.GreaterOrEqual(t, out.SolutionOptions[i-1].CompositeScore, out.SolutionOptions[i].CompositeScore)
	}
	assert.NotEmpty(t, out.FinalDecision)
	assert.Equal(t, out.SolutionOptions[0].Confidence, out.Confidence)
}

func TestArbitrate_ConflictsClassified(t *testing.T) {
	a := NewArbitrator(DefaultWeights(), 3, false, nil)
	out, err := a.Arbitrate(context.Background(), fullCollation())
	require.NoError(t, err)

	var sawSafetyVsBusiness, sawSafetyVsSafety, sawBusinessVsBusiness bool
	for _, c := range out.ConflictsIdentified {
		switch c.ConflictType {
		case "safety_vs_business":
			sawSafetyVsBusiness = true
		case "safety_vs_safety":
			sawSafetyVsSafety = true
		case "business_vs_business":
			sawBusinessVsBusiness = true
		}
	}
	assert.True(t, sawSafetyVsBusiness, "crew_compliance's delay stance should conflict with a business agent's non-delay stance")
	assert.True(t, sawSafetyVsSafety, "crew_compliance's delay stance should conflict with maintenance/regulatory's proceed stance")
	assert.True(t, sawBusinessVsBusiness, "finance's cancel stance should conflict with network's reroute stance")
}

func TestArbitrate_DegradedArbitrationDisabled(t *testing.T) {
	collation := fullCollation()
	resp := collation.Responses[disruption.AgentMaintenance]
	resp.Status = disruption.StatusTimeout
	resp.Error = "deadline exceeded"
	collation.Responses[disruption.AgentMaintenance] = resp

	a := NewArbitrator(DefaultWeights(), 3, false, nil)
	out, err := a.Arbitrate(context.Background(), collation)
	require.Error(t, err)
	assert.Equal(t, 0.0, out.SolutionOptions[0].Confidence)
	assert.Equal(t, "Escalate to duty officer", out.SolutionOptions[0].Title)
}

func TestArbitrate_DegradedArbitrationEnabled(t *testing.T) {
	collation := fullCollation()
	resp := collation.Responses[disruption.AgentMaintenance]
	resp.Status = disruption.StatusTimeout
	collation.Responses[disruption.AgentMaintenance] = resp

	a := NewArbitrator(DefaultWeights(), 3, true, nil)
	out, err := a.Arbitrate(context.Background(), collation)
	require.NoError(t, err)
	assert.NotEmpty(t, out.SolutionOptions)
}

func TestArbitrate_UnsatisfiableConstraintsFallBackConservatively(t *testing.T) {
	collation := disruption.Collation{
		Phase: disruption.PhaseRevision,
		Responses: map[disruption.AgentName]disruption.AgentResponse{
			disruption.AgentCrewCompliance:  successResponse(disruption.AgentCrewCompliance, "delay for crew rest", "fatigue risk", 0.9, "no delay greater than 2 hours"),
			disruption.AgentMaintenance:     successResponse(disruption.AgentMaintenance, "proceed as scheduled", "cleared", 0.8, "require a full 10 hour maintenance inspection before release"),
			disruption.AgentRegulatory:      successResponse(disruption.AgentRegulatory, "proceed as scheduled", "no blocker", 0.7),
		},
	}
	a := NewArbitrator(DefaultWeights(), 3, true, nil)
	out, err := a.Arbitrate(context.Background(), collation)
	require.Error(t, err)
	require.Len(t, out.SolutionOptions, 1)
	assert.Equal(t, 0.0, out.SolutionOptions[0].Confidence)
}

func TestArbitrate_MaxSolutionsClamped(t *testing.T) {
	a := NewArbitrator(DefaultWeights(), 0, false, nil)
	assert.Equal(t, 3, a.MaxSolutions)
	a2 := NewArbitrator(DefaultWeights(), 99, false, nil)
	assert.Equal(t, 3, a2.MaxSolutions)
}

func TestWeights_Sum(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-9)
}
