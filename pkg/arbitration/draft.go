package arbitration

import (
	"fmt"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
	"github.com/codeready-toolchain/skyrecover/pkg/planvalidator"
)

// avgConfidence averages the Confidence of successful responses from the
// given agents. ok is false when none of them succeeded, telling the
// caller to fall back to a neutral baseline rather than claiming a score
// derived from zero inputs.
func avgConfidence(collation disruption.Collation, agents []disruption.AgentName) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, name := range agents {
		resp, present := collation.Responses[name]
		if !present || resp.Status != disruption.StatusSuccess {
			continue
		}
		sum += resp.Confidence
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// neutralBaseline is the score assigned to a dimension with no successful
// input to draw on, so an absent agent neither sinks nor inflates the
// composite score on its own.
const neutralBaseline = 50.0

func dimensionScore(collation disruption.Collation, agents []disruption.AgentName, bias float64) float64 {
	avg, ok := avgConfidence(collation, agents)
	base := neutralBaseline
	if ok {
		base = avg * 100
	}
	score := base * bias
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// dominantAgent returns whichever of the given agents reported the highest
// confidence among successful responses, used to pick a ResponsibleAgent
// for the plan's primary action step. Falls back to the first agent name
// in the list when nothing succeeded.
func dominantAgent(collation disruption.Collation, agents []disruption.AgentName) disruption.AgentName {
	best := agents[0]
	bestConfidence := -1.0
	for _, name := range agents {
		resp, ok := collation.Responses[name]
		if !ok || resp.Status != disruption.StatusSuccess {
			continue
		}
		if resp.Confidence > bestConfidence {
			bestConfidence = resp.Confidence
			best = name
		}
	}
	return best
}

// draftSolution implements step 4: score the four dimensions for strat,
// build a sequential recovery plan, and assemble the pros/cons/risks
// narrative. ok is false when the drafted plan fails planvalidator.Validate
// (defensive; the fixed step shape below is always well-formed, but step 4
// in spec §4.3 explicitly allows a solution to be dropped on drafting
// failure, so the check is kept rather than assumed away).
func draftSolution(id int, strat strategy, collation disruption.Collation, weights Weights, conflicts []disruption.Conflict) (disruption.RecoverySolution, bool) {
	safety := dimensionScore(collation, disruption.SafetyAgents, strat.SafetyBias)
	cost := dimensionScore(collation, []disruption.AgentName{disruption.AgentFinance}, strat.CostBias)
	passenger := dimensionScore(collation, []disruption.AgentName{disruption.AgentGuestExperience}, strat.PassengerBias)
	network := dimensionScore(collation, []disruption.AgentName{disruption.AgentNetwork, disruption.AgentCargo}, strat.NetworkBias)

	composite := weights.Safety*safety + weights.Cost*cost + weights.Passenger*passenger + weights.Network*network

	primaryAgent := dominantAgent(collation, disruption.AllAgents)

	plan := disruption.RecoveryPlan{
		SolutionID: id,
		Steps: []disruption.RecoveryStep{
			{
				StepNumber: 1, StepName: "Notify operations control center",
				Description:       "Raise the disruption to operations control so every downstream action is tracked centrally.",
				ResponsibleAgent:  string(disruption.AgentNetwork),
				ActionType:        "notification",
				SuccessCriteria:   "operations control acknowledges the disruption",
				EstimatedDuration: "5m",
			},
			{
				StepNumber: 2, StepName: fmt.Sprintf("Execute recovery strategy: %s", strat.Label),
				Description:       fmt.Sprintf("Apply the %s recovery approach, led by %s's recommendation.", strat.Label, primaryAgent),
				ResponsibleAgent:  string(primaryAgent),
				ActionType:        "recovery_action",
				SuccessCriteria:   "recovery action is confirmed executed",
				Dependencies:      []int{1},
				EstimatedDuration: "30m",
			},
			{
				StepNumber: 3, StepName: "Coordinate with affected stakeholders",
				Description:       "Communicate the recovery plan to crew, ground handling, and affected passengers.",
				ResponsibleAgent:  string(disruption.AgentGuestExperience),
				ActionType:        "coordination",
				SuccessCriteria:   "all stakeholder groups confirm receipt of updated plan",
				Dependencies:      []int{2},
				EstimatedDuration: "20m",
			},
			{
				StepNumber: 4, StepName: "Close out recovery and log outcome",
				Description:       "Record the final outcome and close the disruption case.",
				ResponsibleAgent:  string(disruption.AgentFinance),
				ActionType:        "closeout",
				SuccessCriteria:   "case closed with final cost and schedule impact recorded",
				Dependencies:      []int{3},
				EstimatedDuration: "10m",
			},
		},
		CriticalPath:           []int{1, 2, 3, 4},
		EstimatedTotalDuration: "65m",
	}

	if violations := planvalidator.Validate(plan); len(violations) > 0 {
		return disruption.RecoverySolution{}, false
	}

	pros, cons, risks := narrative(strat, safety, cost, passenger, network, conflicts)

	solution := disruption.RecoverySolution{
		SolutionID:        id,
		Title:             strat.Label,
		Description:       fmt.Sprintf("%s, led by %s's recommendation.", strat.Label, primaryAgent),
		Recommendations:   []string{fmt.Sprintf("Follow %s's recommendation under a %s approach", primaryAgent, strat.Key)},
		SafetyCompliance:  compliance(safety),
		PassengerImpact:   compliance(passenger),
		FinancialImpact:   compliance(cost),
		NetworkImpact:     compliance(network),
		SafetyScore:       safety,
		CostScore:         cost,
		PassengerScore:    passenger,
		NetworkScore:      network,
		CompositeScore:    composite,
		Pros:              pros,
		Cons:              cons,
		Risks:             risks,
		Confidence:        composite / 100,
		EstimatedDuration: plan.EstimatedTotalDuration,
		RecoveryPlan:      plan,
	}
	return solution, true
}

func compliance(score float64) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 50:
		return "moderate"
	default:
		return "low"
	}
}

func narrative(strat strategy, safety, cost, passenger, network float64, conflicts []disruption.Conflict) (pros, cons, risks []string) {
	type dim struct {
		name  string
		score float64
	}
	dims := []dim{{"safety", safety}, {"cost", cost}, {"passenger experience", passenger}, {"network", network}}

	for _, d := range dims {
		switch {
		case d.score >= 80:
			pros = append(pros, fmt.Sprintf("Strong %s outcome (%0.0f/100) under the %s strategy", d.name, d.score, strat.Key))
		case d.score < 50:
			cons = append(cons, fmt.Sprintf("Weak %s outcome (%0.0f/100) under the %s strategy", d.name, d.score, strat.Key))
		}
	}
	if len(conflicts) > 0 {
		risks = append(risks, fmt.Sprintf("%d agent recommendation conflict(s) were detected and resolved while drafting this option", len(conflicts)))
	}
	return pros, cons, risks
}
