package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/studymate/internal/agent"
	"github.com/ashureev/studymate/internal/domain"
	"github.com/ashureev/studymate/internal/export"
	"github.com/ashureev/studymate/internal/identity"
	"github.com/ashureev/studymate/internal/prompt"
)

// PanelService is what the panel endpoints need from the agent service.
type PanelService interface {
	Summarize(ctx context.Context, req agent.SummaryRequest) (*agent.SummaryResponse, error)
	GenerateQuestions(ctx context.Context, req agent.QuestionsRequest) (*agent.QuestionsResponse, error)
	Ask(ctx context.Context, sessionID string, req agent.ChatRequest) (*agent.ChatResponse, error)
	AddPlannerEntry(ctx context.Context, sessionID string, req agent.PlannerRequest) (*agent.PlannerResponse, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	EndSession(ctx context.Context, sessionID string) error
}

var _ PanelService = (*agent.Service)(nil)

// PanelHandler serves the five panels.
type PanelHandler struct {
	svc         PanelService
	model       string
	maxBodySize int64
	isDev       bool
}

// NewPanelHandler creates the panel endpoints.
func NewPanelHandler(svc PanelService, model string, maxBodySize int64, isDev bool) *PanelHandler {
	return &PanelHandler{svc: svc, model: model, maxBodySize: maxBodySize, isDev: isDev}
}

// RegisterRoutes registers panel routes under /api. The middlewares wrap the
// panel routes only; unknown paths get a JSON 404 without them. The session
// middleware (identity.Middleware) belongs here.
func (h *PanelHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.NotFound(NotFound)
		r.MethodNotAllowed(MethodNotAllowed)

		r.Group(func(r chi.Router) {
			r.Use(middlewares...)
			r.Get("/config", h.GetConfig)
			r.Get("/session", h.GetSession)
			r.Post("/session/reset", h.ResetSession)
			r.Post("/summary", h.Summarize)
			r.Post("/questions", h.GenerateQuestions)
			r.Get("/chat", h.GetChat)
			r.Post("/chat", h.Ask)
			r.Get("/planner", h.GetPlanner)
			r.Post("/planner", h.AddPlannerEntry)
			r.Get("/export", h.Export)
		})
	})
}

// GetConfig returns the settings the page needs to build its widgets.
func (h *PanelHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"model":             h.model,
		"chat_window":       domain.ChatWindow,
		"min_questions":     prompt.MinQuestions,
		"max_questions":     prompt.MaxQuestions,
		"default_questions": prompt.DefaultQuestions,
	})
}

// GetSession returns everything needed to render the panels.
func (h *PanelHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Session(r.Context(), identity.SessionIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, agent.NewSessionView(s))
}

// ResetSession ends the current session and forgets its cookie.
func (h *PanelHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EndSession(r.Context(), identity.SessionIDFromContext(r.Context())); err != nil {
		WriteError(w, r, err)
		return
	}
	identity.ClearCookie(w, h.isDev)
	JSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// Summarize handles the Summary panel.
func (h *PanelHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req agent.SummaryRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	resp, err := h.svc.Summarize(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GenerateQuestions handles the Questions panel.
func (h *PanelHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req agent.QuestionsRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	resp, err := h.svc.GenerateQuestions(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GetChat returns the visible chat window.
func (h *PanelHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Session(r.Context(), identity.SessionIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"history": s.RecentChatSlice(domain.ChatWindow),
	})
}

// Ask handles the Chat Tutor panel.
func (h *PanelHandler) Ask(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	var req agent.ChatRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	slog.Info("Chat tutor request", "session_id", sessionID, "question_length", len(req.Question))

	resp, err := h.svc.Ask(r.Context(), sessionID, req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GetPlanner returns the study plan.
func (h *PanelHandler) GetPlanner(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Session(r.Context(), identity.SessionIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"plan": s.Planner()})
}

// AddPlannerEntry handles the Planner panel.
func (h *PanelHandler) AddPlannerEntry(w http.ResponseWriter, r *http.Request) {
	var req agent.PlannerRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	resp, err := h.svc.AddPlannerEntry(r.Context(), identity.SessionIDFromContext(r.Context()), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, resp)
}

// Export downloads the study pack as plain text.
func (h *PanelHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Session(r.Context(), identity.SessionIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	body := export.Format(s)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Warn("failed to write export", "error", err)
	}
}
