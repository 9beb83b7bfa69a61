package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// ScriptedResponse is one canned outcome for MockClient.Analyse, keyed by
// the phase it applies to. A MockClient with no entry for a requested
// phase falls back to Default.
type ScriptedResponse struct {
	// Response is returned as-is, except AgentName is always set to the
	// mock's Name and Timestamp/Status are filled in if left zero-valued.
	Response disruption.AgentResponse

	// Delay simulates agent latency. If Delay exceeds the context
	// deadline, Analyse blocks until ctx is cancelled and returns the
	// context error, exercising the same path a real timed-out agent call
	// would take.
	Delay time.Duration

	// Err, if non-nil, makes Analyse return it directly instead of a
	// response — exercising the PhaseRunner's "unhandled error" guard
	// path (spec §4.2 step 3).
	Err error
}

// MockClient is a deterministic, scripted agent implementation used by
// every seed test and the end-to-end scenario suite. It never calls out to
// a model or datastore.
type MockClient struct {
	Name disruption.AgentName

	// ByPhase scripts a response per phase. Default is used when the
	// requested phase has no entry.
	ByPhase map[disruption.Phase]ScriptedResponse
	Default ScriptedResponse
}

// NewMockClient returns a MockClient that always succeeds with the given
// recommendation and confidence, regardless of phase — the common case for
// seed tests that don't care about per-phase variation.
func NewMockClient(name disruption.AgentName, recommendation string, confidence float64) *MockClient {
	return &MockClient{
		Name: name,
		Default: ScriptedResponse{
			Response: disruption.AgentResponse{
				Recommendation: recommendation,
				Confidence:     confidence,
				Reasoning:      fmt.Sprintf("%s analysis: %s", name, recommendation),
			},
		},
	}
}

// Analyse implements Client.
func (m *MockClient) Analyse(ctx context.Context, payload disruption.DisruptionPayload) (disruption.AgentResponse, error) {
	scripted, ok := m.ByPhase[payload.Phase]
	if !ok {
		scripted = m.Default
	}

	if scripted.Delay > 0 {
		timer := time.NewTimer(scripted.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return disruption.AgentResponse{}, ctx.Err()
		}
	}

	if scripted.Err != nil {
		return disruption.AgentResponse{}, scripted.Err
	}

	resp := scripted.Response
	resp.AgentName = m.Name
	if resp.Status == "" {
		resp.Status = disruption.StatusSuccess
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = time.Now().UTC()
	}
	return resp, nil
}
