package config

import "time"

// DefaultConfig returns the built-in configuration: the timeout defaults
// from the phase scheduling rules (60s/45s for phase-1 safety/business
// agents, +30s in revision, 60s for the arbitrator), the 40/20/20/20
// arbitrator weight split, a three-solution cap, degraded arbitration off,
// every agent in mock mode, and masking on with the full builtin pattern
// set. User YAML overrides are merged on top of this.
func DefaultConfig() *Config {
	agents := make(map[string]AgentConfig, len(AgentNames))
	for _, name := range AgentNames {
		agents[name] = AgentConfig{Mode: AgentModeMock}
	}
	return &Config{
		Timeouts: TimeoutConfig{
			Phase1Safety:   60 * time.Second,
			Phase1Business: 45 * time.Second,
			RevisionExtra:  30 * time.Second,
			Arbitrator:     60 * time.Second,
		},
		Arbitrator: ArbitratorConfig{
			SafetyWeight:        0.4,
			CostWeight:          0.2,
			PassengerWeight:     0.2,
			NetworkWeight:       0.2,
			MaxSolutions:        3,
			DegradedArbitration: false,
		},
		Agents: agents,
		Masking: MaskingConfig{
			Enabled:  true,
			Patterns: nil, // nil means "all builtin patterns"
		},
	}
}

// AgentNames is the fixed seven-name agent registry the configuration must
// cover — no more, no fewer. Kept as plain strings here so the config
// package stays import-free of the domain packages it configures.
var AgentNames = []string{
	"crew_compliance",
	"maintenance",
	"regulatory",
	"network",
	"guest_experience",
	"cargo",
	"finance",
}
