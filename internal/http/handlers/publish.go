package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/publish"
)

type publishRequest struct {
	JobID      string `json:"job_id"`
	Visibility string `json:"privacyStatus"`
}

// Publish forwards a completed job's video to the publish sink.
func (a *App) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id is required")
		return
	}
	url, err := a.Orchestrator.Publish(r.Context(), req.JobID, publish.NormalizeVisibility(req.Visibility))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"status": "success",
		"url":    url,
	})
}
