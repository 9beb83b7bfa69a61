package orchestration

import (
	"time"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// Collator assembles a set of per-agent responses into a disruption.Collation
// with aggregate metadata. It is the sole writer of the collation under
// construction, invoked once per phase after every agent task has returned
// or been reaped — never concurrently with the agent goroutines themselves
// (spec §5, "Shared resources").
type Collator struct{}

// Collate builds the Collation for phase from responses, keyed by agent
// name. It defensively re-keys any response whose AgentName disagrees with
// its map key to the map key, enforcing the invariant from spec §3.2
// ("every AgentResponse inside a Collation has agent_name matching its
// key") rather than trusting callers to have gotten it right.
func (Collator) Collate(phase disruption.Phase, responses map[disruption.AgentName]disruption.AgentResponse, start time.Time) *disruption.Collation {
	fixed := make(map[disruption.AgentName]disruption.AgentResponse, len(responses))
	for name, r := range responses {
		r.AgentName = name
		fixed[name] = r
	}
	return &disruption.Collation{
		Phase:           phase,
		Responses:       fixed,
		Timestamp:       time.Now().UTC(),
		DurationSeconds: time.Since(start).Seconds(),
	}
}
