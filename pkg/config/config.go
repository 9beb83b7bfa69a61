// Package config loads and validates the skyrecover configuration file:
// the per-phase timeout table, the arbitrator's scoring weights and
// solution cap, the agent endpoint registry, and masking settings. All of
// it is consumed once at startup, never per call.
package config

import (
	"time"
)

// AgentMode selects how an agent endpoint is constructed.
type AgentMode string

const (
	// AgentModeMock wires a deterministic scripted client — useful for
	// local development and demos without any agent backend running.
	AgentModeMock AgentMode = "mock"

	// AgentModeHTTP wires an HTTP-backed client that POSTs the payload to
	// the configured URL.
	AgentModeHTTP AgentMode = "http"
)

// Config is the fully resolved, validated configuration.
type Config struct {
	Timeouts   TimeoutConfig          `validate:"required"`
	Arbitrator ArbitratorConfig       `validate:"required"`
	Agents     map[string]AgentConfig `validate:"required,dive"`
	Masking    MaskingConfig
}

// TimeoutConfig holds the per-phase, per-class agent deadlines. Phase 2's
// per-agent deadline is always the Phase-1 value for that agent's class
// plus RevisionExtra — there is deliberately no independent phase-2 knob.
type TimeoutConfig struct {
	Phase1Safety   time.Duration `validate:"gt=0"`
	Phase1Business time.Duration `validate:"gt=0"`
	RevisionExtra  time.Duration `validate:"gte=0"`
	Arbitrator     time.Duration `validate:"gt=0"`
}

// ArbitratorConfig holds the scoring weights, the solution cap, and the
// degraded-arbitration flag.
type ArbitratorConfig struct {
	SafetyWeight        float64 `validate:"gte=0,lte=1"`
	CostWeight          float64 `validate:"gte=0,lte=1"`
	PassengerWeight     float64 `validate:"gte=0,lte=1"`
	NetworkWeight       float64 `validate:"gte=0,lte=1"`
	MaxSolutions        int     `validate:"min=1,max=3"`
	DegradedArbitration bool
}

// WeightSum returns the total of the four scoring weights. The total must
// be 1.0 within WeightSumTolerance for the composite score to remain a
// convex combination.
func (a ArbitratorConfig) WeightSum() float64 {
	return a.SafetyWeight + a.CostWeight + a.PassengerWeight + a.NetworkWeight
}

// WeightSumTolerance is the allowed deviation of the weight sum from 1.0.
const WeightSumTolerance = 1e-6

// AgentConfig describes how one of the seven agent endpoints is built.
type AgentConfig struct {
	Mode AgentMode `validate:"required,oneof=mock http"`

	// URL is the endpoint the http mode POSTs payloads to. Required for
	// http mode and unused in mock mode, where a non-empty value must
	// still be a valid URL.
	URL string `validate:"required_if=Mode http,omitempty,url"`
}

// MaskingConfig controls masking of sensitive passenger data in log lines
// and persisted records.
type MaskingConfig struct {
	Enabled  bool
	Patterns []string
}
