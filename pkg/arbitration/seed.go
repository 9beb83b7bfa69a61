package arbitration

import "github.com/codeready-toolchain/skyrecover/pkg/disruption"

// strategy is a named bias vector over the four scoring dimensions. Step 3
// (solution seeding) produces 1-3 of these; step 4 turns each into a
// scored RecoverySolution. The biases are deliberately Pareto-informative
// rather than dominated: conservative favours safety strictly above the
// others, costOptimized favours cost/network strictly above safety, and
// balanced sits between them, so no single strategy's sub-scores are
// component-wise >= every other strategy's.
type strategy struct {
	Key         string
	Label       string
	SafetyBias  float64
	CostBias    float64
	PassengerBias float64
	NetworkBias float64
}

var (
	strategyConservative = strategy{Key: "conservative_safety_first", Label: "Conservative, safety-first recovery",
		SafetyBias: 1.00, CostBias: 0.70, PassengerBias: 0.85, NetworkBias: 0.80}
	strategyBalanced = strategy{Key: "balanced", Label: "Balanced recovery across all stakeholders",
		SafetyBias: 0.90, CostBias: 0.90, PassengerBias: 0.90, NetworkBias: 0.90}
	strategyCostOptimized = strategy{Key: "cost_optimized", Label: "Cost- and network-optimized recovery",
		SafetyBias: 0.80, CostBias: 1.00, PassengerBias: 0.80, NetworkBias: 0.95}
)

// seedStrategies implements step 3. It always seeds the conservative
// strategy (every recovery must have a safety-first option on the table),
// and adds the balanced and cost-optimized strategies whenever the
// collation has at least one successful Business-class response to draw
// on — seeding a cost/network-oriented strategy from zero business input
// would just be noise indistinguishable from the conservative one.
func seedStrategies(collation disruption.Collation) []strategy {
	strategies := []strategy{strategyConservative}

	haveBusiness := false
	for _, name := range disruption.BusinessAgents {
		if resp, ok := collation.Responses[name]; ok && resp.Status == disruption.StatusSuccess {
			haveBusiness = true
			break
		}
	}
	if haveBusiness {
		strategies = append(strategies, strategyBalanced, strategyCostOptimized)
	}
	return strategies
}
