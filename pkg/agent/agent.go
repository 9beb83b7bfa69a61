// Package agent defines the contract the orchestration core uses to invoke
// one domain agent, plus a fixed registry of the seven agent names and two
// concrete implementations: a deterministic mock for tests and an
// illustrative HTTP-backed client for real deployments.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// Client abstracts one domain agent. The core never inspects an agent's
// internals — it only sees Analyse. Implementations must:
//   - be safe for concurrent use, including concurrent calls to themselves
//     on disjoint payloads;
//   - honour ctx cancellation by returning promptly (a result returned
//     after cancellation is discarded by the caller, not an error);
//   - never panic; an agent-internal failure is reported either as an
//     AgentResponse with Status == StatusError or as a returned error,
//     which the PhaseRunner's guard records as a StatusError response.
type Client interface {
	Analyse(ctx context.Context, payload disruption.DisruptionPayload) (disruption.AgentResponse, error)
}

// Sentinel errors for registry construction, mirroring the teacher config
// package's sentinel-error style (pkg/config/errors.go).
var (
	// ErrDuplicateAgent names the duplicate-agent configuration error
	// (spec §4.2 edge cases). NewRegistry takes a map, whose keys are
	// unique, so NewRegistry itself never returns it.
	ErrDuplicateAgent = errors.New("duplicate agent name in registry")

	// ErrMissingAgent is returned when NewRegistry's input does not cover
	// exactly the seven fixed names from spec §4.1.
	ErrMissingAgent = errors.New("registry is missing a required agent")

	// ErrUnknownAgent is returned when NewRegistry's input names an agent
	// outside the fixed seven.
	ErrUnknownAgent = errors.New("registry contains an unrecognized agent name")
)

// Registry is the fixed map of agent name to Client implementation. It is
// immutable after construction and safe for concurrent reads.
type Registry struct {
	clients map[disruption.AgentName]Client
}

// NewRegistry builds a Registry from clients, which must contain exactly
// the seven names in disruption.AllAgents — no more, no fewer (a map
// cannot hold duplicate names). A name outside the seven yields
// ErrUnknownAgent; a missing name or nil client yields ErrMissingAgent.
func NewRegistry(clients map[disruption.AgentName]Client) (*Registry, error) {
	for name := range clients {
		if disruption.ClassOf(name) == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
		}
	}
	if len(clients) != len(disruption.AllAgents) {
		return nil, fmt.Errorf("%w: agent registry must have exactly %d agents, got %d", ErrMissingAgent, len(disruption.AllAgents), len(clients))
	}
	copied := make(map[disruption.AgentName]Client, len(clients))
	for _, name := range disruption.AllAgents {
		c, ok := clients[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingAgent, name)
		}
		if c == nil {
			return nil, fmt.Errorf("%w: %s has a nil client", ErrMissingAgent, name)
		}
		copied[name] = c
	}
	return &Registry{clients: copied}, nil
}

// Get returns the client registered for name, or false if name is not one
// of the seven fixed agents.
func (r *Registry) Get(name disruption.AgentName) (Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}

// Names returns the fixed seven-name set this registry covers (a copy of
// disruption.AllAgents, provided for callers that want it alongside a
// Registry value without importing disruption directly).
func (r *Registry) Names() []disruption.AgentName {
	out := make([]disruption.AgentName, len(disruption.AllAgents))
	copy(out, disruption.AllAgents)
	return out
}
