package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
)

func TestHTTPClient_Analyse_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload disruption.DisruptionPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, disruption.PhaseInitial, payload.Phase)

		_ = json.NewEncoder(w).Encode(disruption.AgentResponse{
			Recommendation: "reroute", Confidence: 0.5, Status: disruption.StatusSuccess,
			Reasoning: "because",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(disruption.AgentNetwork, srv.URL)
	resp, err := c.Analyse(context.Background(), disruption.DisruptionPayload{
		UserPrompt: "Flight EY123 on 2026-01-20 had a mechanical failure", Phase: disruption.PhaseInitial,
	})
	require.NoError(t, err)
	assert.Equal(t, disruption.AgentNetwork, resp.AgentName)
	assert.Equal(t, "reroute", resp.Recommendation)
}

func TestHTTPClient_Analyse_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(disruption.AgentFinance, srv.URL)
	_, err := c.Analyse(context.Background(), disruption.DisruptionPayload{Phase: disruption.PhaseInitial, UserPrompt: "enough characters here"})
	require.Error(t, err)
}
