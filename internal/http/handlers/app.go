package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/orchestrator"
)

// App is the handler container; it holds the orchestrator and shared
// response helpers.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Logger       infra.Logger
}

func NewApp(orc *orchestrator.Orchestrator, logger infra.Logger) *App {
	return &App{Orchestrator: orc, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"status":  "error",
		"error":   kind,
		"message": message,
	})
}

// writeError maps the domain error taxonomy onto HTTP responses. Provider
// detail is included for diagnosis; secrets never reach this path because
// adapters strip them before wrapping.
func (a *App) writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var submission *domain.SubmissionError
	var poll *domain.PollError
	var upload *domain.UploadError
	var list *domain.ListError
	switch {
	case errors.As(err, &validation):
		a.error(w, http.StatusBadRequest, "validation", validation.Error())
	case errors.Is(err, domain.ErrUnknownJob):
		a.error(w, http.StatusNotFound, "unknown_job", "job not found")
	case errors.Is(err, domain.ErrUnsupportedProvider):
		a.error(w, http.StatusBadRequest, "unsupported_provider", err.Error())
	case errors.Is(err, domain.ErrNotCompleted):
		a.error(w, http.StatusConflict, "not_completed", err.Error())
	case errors.As(err, &submission):
		a.error(w, http.StatusBadGateway, "submission_failed", submission.Error())
	case errors.As(err, &poll):
		a.error(w, http.StatusBadGateway, "poll_failed", poll.Error())
	case errors.As(err, &upload):
		a.error(w, http.StatusBadGateway, "upload_failed", upload.Error())
	case errors.As(err, &list):
		a.error(w, http.StatusBadGateway, "list_failed", list.Error())
	default:
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
