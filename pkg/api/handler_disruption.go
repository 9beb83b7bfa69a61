package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/skyrecover/pkg/disruption"
	"github.com/codeready-toolchain/skyrecover/pkg/orchestrator"
)

// disruptionsTable is the datastore table persisted FinalOutputs land in,
// keyed by disruption id and secondarily indexed by status and flight
// number for post-hoc queries.
const disruptionsTable = "disruptions"

// SubmitDisruptionRequest is the body of POST /api/v1/disruptions.
type SubmitDisruptionRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// submitDisruptionHandler handles POST /api/v1/disruptions: it runs the
// full three-phase deliberation synchronously and returns the FinalOutput.
func (s *Server) submitDisruptionHandler(c *gin.Context) {
	var req SubmitDisruptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out := s.orchestrator.Handle(c.Request.Context(), req.Prompt)

	// An invalid prompt never started the pipeline; report it as a client
	// error rather than a deliberation outcome.
	if out.Error == orchestrator.ErrKindPromptInvalid {
		c.JSON(http.StatusBadRequest, out)
		return
	}

	s.persist(c, out)
	c.JSON(http.StatusOK, out)
}

// persist stores the FinalOutput for post-hoc inspection. Best-effort: a
// datastore failure is logged, never surfaced to the caller — the
// deliberation result is already in hand.
func (s *Server) persist(c *gin.Context, out disruption.FinalOutput) {
	if s.store == nil {
		return
	}

	value, err := json.Marshal(out)
	if err != nil {
		slog.Error("api: failed to marshal disruption for persistence",
			"disruption_id", out.DisruptionID, "error", err)
		return
	}
	if s.masker != nil {
		value = []byte(s.masker.Mask(string(value)))
	}

	indexes := map[string]string{"status": string(out.Status)}
	if fn := extractedFlightNumber(out); fn != "" {
		indexes["flight_number"] = fn
	}

	if err := s.store.Put(c.Request.Context(), disruptionsTable, out.DisruptionID, value, indexes); err != nil {
		slog.Error("api: failed to persist disruption",
			"disruption_id", out.DisruptionID, "error", err)
	}
}

// extractedFlightNumber returns the first flight number any agent
// extracted, scanning the latest phase first.
func extractedFlightNumber(out disruption.FinalOutput) string {
	for _, collation := range []*disruption.Collation{out.AuditTrail.Phase2Revision, out.AuditTrail.Phase1Initial} {
		if collation == nil {
			continue
		}
		for _, name := range disruption.AllAgents {
			resp, ok := collation.Responses[name]
			if !ok || resp.ExtractedFlightInfo == nil {
				continue
			}
			if fn := resp.ExtractedFlightInfo.NormalizedFlightNumber(); fn != "" {
				return fn
			}
		}
	}
	return ""
}
