package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

// HTTPClient is an illustrative real Client implementation: it POSTs the
// DisruptionPayload as JSON to a configured URL and decodes an
// AgentResponse from the reply body. It demonstrates the "opaque black
// box" contract of spec §4.1 without pulling in any model SDK — the actual
// reasoning happens entirely on the other end of the wire.
type HTTPClient struct {
	Name       disruption.AgentName
	URL        string
	HTTPClient *http.Client
}

// NewHTTPClient returns an HTTPClient using http.DefaultClient's transport
// settings but its own *http.Client value, so per-call context deadlines
// (set by the PhaseRunner) are the only timeout in effect.
func NewHTTPClient(name disruption.AgentName, url string) *HTTPClient {
	return &HTTPClient{
		Name: name,
		URL:  url,
		HTTPClient: &http.Client{
			Transport: http.DefaultTransport,
		},
	}
}

// Analyse implements Client. Any transport, status, or decode failure is
// returned as a plain error — the PhaseRunner's guard converts it to an
// AgentResponse with Status == StatusError, per spec §4.2 step 3. Analyse
// itself never fabricates a StatusError response; that mapping belongs to
// the caller so the guard logic lives in exactly one place.
func (c *HTTPClient) Analyse(ctx context.Context, payload disruption.DisruptionPayload) (disruption.AgentResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return disruption.AgentResponse{}, fmt.Errorf("marshal payload for %s: %w", c.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return disruption.AgentResponse{}, fmt.Errorf("build request for %s: %w", c.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return disruption.AgentResponse{}, fmt.Errorf("agent %s request failed: %w", c.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return disruption.AgentResponse{}, fmt.Errorf("agent %s returned HTTP %d", c.Name, resp.StatusCode)
	}

	var out disruption.AgentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return disruption.AgentResponse{}, fmt.Errorf("decode response from %s: %w", c.Name, err)
	}
	out.AgentName = c.Name
	if out.DurationSeconds == 0 {
		out.DurationSeconds = time.Since(start).Seconds()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	return out, nil
}
