package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/movelabs/moveguard/internal/workflow"
)

type executeRequest struct {
	SourceCode string   `json:"source_code"`
	Language   string   `json:"language"`
	Chains     []string `json:"chains,omitempty"`
}

type executeResponse struct {
	Success        bool                      `json:"success"`
	WorkflowID     string                    `json:"workflow_id"`
	WorkflowName   string                    `json:"workflow_name"`
	ExecutionTime  string                    `json:"execution_time"`
	StepsCompleted int                       `json:"steps_completed"`
	Results        map[workflow.Field]string `json:"results"`
	SessionID      string                    `json:"session_id,omitempty"`
}

type errorResponse struct {
	Success        bool                      `json:"success"`
	Error          string                    `json:"error"`
	StepsCompleted *int                      `json:"steps_completed,omitempty"`
	Results        map[workflow.Field]string `json:"results,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    "moveguard",
		"version":    s.cfg.Version,
		"network":    s.cfg.Network,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"ai_enabled": true,
		"workflows":  len(s.cfg.Engine.List()),
	})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	summaries := s.cfg.Engine.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"workflows": summaries,
		"total":     len(summaries),
	})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	s.getWorkflow(w, r, chi.URLParam(r, "id"))
}

func (s *Server) aliasGet(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.getWorkflow(w, r, id)
	}
}

func (s *Server) getWorkflow(w http.ResponseWriter, _ *http.Request, id string) {
	summary, ok := s.cfg.Engine.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"workflow": summary,
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, chi.URLParam(r, "id"))
}

func (s *Server) aliasExecute(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.execute(w, r, id)
	}
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, id string) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.cfg.Engine.Execute(r.Context(), id, workflow.Input{
		Source:   req.SourceCode,
		Language: req.Language,
		Chains:   req.Chains,
	})
	if err != nil {
		s.writeExecuteError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, executeResponse{
		Success:        true,
		WorkflowID:     result.PipelineID,
		WorkflowName:   result.PipelineName,
		ExecutionTime:  result.ExecutedAt.UTC().Format(time.RFC3339),
		StepsCompleted: result.StepsCompleted,
		Results:        result.Outputs.Map(),
		SessionID:      result.SessionID,
	})
}

func (s *Server) writeExecuteError(w http.ResponseWriter, id string, err error) {
	var (
		notFound   *workflow.NotFoundError
		validation *workflow.ValidationError
		session    *workflow.SessionError
		step       *workflow.StepError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &session):
		s.log.Error("session creation failed", "workflow", id, "error", err)
		writeError(w, http.StatusBadGateway, session.Error())
	case errors.As(err, &step):
		s.log.Error("workflow step failed", "workflow", id, "step", step.Index, "error", err)
		completed := step.Completed
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:          step.Error(),
			StepsCompleted: &completed,
			Results:        step.Partial.Map(),
		})
	default:
		s.log.Error("workflow execution failed", "workflow", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
