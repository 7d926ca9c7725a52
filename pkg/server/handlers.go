package server

import (
	"net/http"
	"strings"
	"time"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/conversation"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
	"mercator-hq/concierge/pkg/synthesis/performance"
	"mercator-hq/concierge/pkg/telemetry/logging"
)

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	TemplateID string                `json:"template_id"`
	PersonaID  string                `json:"persona_id"`
	Context    *conversation.Context `json:"context,omitempty"`
	Variables  map[string]any        `json:"variables,omitempty"`
}

// EvaluateRequest is the body of POST /v1/guardrails/evaluate.
type EvaluateRequest struct {
	Text      string                `json:"text"`
	RiskLevel guardrails.RiskLevel  `json:"risk_level"`
	Context   *conversation.Context `json:"context,omitempty"`
}

// ClearRequest is the body of POST /v1/sessions/{id}/clear.
type ClearRequest struct {
	Reviewer string `json:"reviewer"`
}

// PerformanceResponse is the body of GET /v1/performance.
type PerformanceResponse struct {
	Templates []performance.Record `json:"templates"`
}

// CatalogResponse is the body of GET /v1/catalog.
type CatalogResponse struct {
	Version   string             `json:"version"`
	Source    string             `json:"source"`
	LoadedAt  time.Time          `json:"loaded_at"`
	Templates []catalog.Template `json:"templates"`
	Personas  []catalog.Persona  `json:"personas"`
}

// handleGenerate always answers 200 with a result: generation failures are
// reported through the fallback prompt and metadata, not the status code.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if req.Context != nil && req.Context.SessionID != "" {
		ctx = logging.WithSessionID(ctx, req.Context.SessionID)
	}

	res := s.Engine().Generate(ctx, req.TemplateID, req.PersonaID, req.Context, req.Variables)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res := s.Engine().EvaluateGuardrails(r.Context(), req.Text, req.RiskLevel, req.Context)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	records := s.Engine().Performance()
	if records == nil {
		records = []performance.Record{}
	}
	writeJSON(w, http.StatusOK, PerformanceResponse{Templates: records})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c := s.Catalog()
	f := c.Export()
	writeJSON(w, http.StatusOK, CatalogResponse{
		Version:   c.Version,
		Source:    c.Source,
		LoadedAt:  c.LoadedAt,
		Templates: f.Templates,
		Personas:  f.Personas,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	ctx := logging.WithSessionID(r.Context(), id)
	if err := s.sessions.Clear(ctx, id, strings.TrimSpace(req.Reviewer)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(ctx, "escalation cleared", "reviewer", req.Reviewer)

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
