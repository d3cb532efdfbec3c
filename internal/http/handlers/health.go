package handlers

import "net/http"

// Health reports liveness and the configured provider set.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": a.Orchestrator.Providers(),
	})
}
