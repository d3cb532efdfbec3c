package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type generateTranscriptRequest struct {
	Text string `json:"text"`
}

// TranscriptGenerate turns a content brief into a narrated video script.
func (a *App) TranscriptGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	brief := strings.TrimSpace(req.Text)
	if brief == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "text is required")
		return
	}
	script, err := a.Orchestrator.WriteScript(r.Context(), brief)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":     "success",
		"transcript": script,
	})
}
