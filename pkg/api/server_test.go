package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/skyrecover/pkg/agent"
	"github.com/codeready-toolchain/skyrecover/pkg/arbitration"
	"github.com/codeready-toolchain/skyrecover/pkg/datastore"
	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
	"github.com/codeready-toolchain/skyrecover/pkg/masking"
	"github.com/codeready-toolchain/skyrecover/pkg/orchestration"
	"github.com/codeready-toolchain/skyrecover/pkg/orchestrator"
)

func newTestServer(t *testing.T, store datastore.Store) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clients := map[disruption.AgentName]agent.Client{}
	for _, name := range disruption.AllAgents {
		clients[name] = agent.NewMockClient(name, "delay and recover", 0.85)
	}
	reg, err := agent.NewRegistry(clients)
	require.NoError(t, err)

	timeouts := orchestration.Timeouts{
		Phase1Safety:   200 * time.Millisecond,
		Phase1Business: 200 * time.Millisecond,
		RevisionExtra:  100 * time.Millisecond,
		Arbitrator:     200 * time.Millisecond,
	}
	runner := orchestration.NewPhaseRunner(reg, timeouts)
	arb := arbitration.NewArbitrator(arbitration.DefaultWeights(), 3, false, nil)
	masker := masking.NewService(true, nil)
	o := orchestrator.New(runner, arb, timeouts, masker)

	return NewServer(o, store, masker)
}

func postDisruption(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/disruptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestSubmitDisruption_Success(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postDisruption(t, s, `{"prompt": "Flight EY123 on 2026-01-20 had a mechanical failure"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out disruption.FinalOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, disruption.FinalStatusSuccess, out.Status)
	assert.GreaterOrEqual(t, len(out.SolutionOptions), 1)
	assert.NotEmpty(t, out.DisruptionID)
}

func TestSubmitDisruption_PromptTooShortIs400(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postDisruption(t, s, `{"prompt": "EY1 sick"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out disruption.FinalOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, disruption.FinalStatusFailed, out.Status)
	assert.Equal(t, orchestrator.ErrKindPromptInvalid, out.Error)
}

func TestSubmitDisruption_MissingPromptIs400(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postDisruption(t, s, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitDisruption_PersistsToDatastore(t *testing.T) {
	store := datastore.NewMemoryStore()
	s := newTestServer(t, store)

	rec := postDisruption(t, s, `{"prompt": "Flight EY123 on 2026-01-20 had a mechanical failure, PNR: X4K9ZQ"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out disruption.FinalOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	persisted, err := store.Get(context.Background(), "disruptions", out.DisruptionID)
	require.NoError(t, err)
	assert.Equal(t, string(out.Status), persisted.Indexes["status"])

	byStatus, err := store.Query(context.Background(), "disruptions", "status", string(out.Status))
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["masking_patterns"])
}
