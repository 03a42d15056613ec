package handlers

import (
	"net/http"
)

// Healthz reports process liveness only. Store reachability shows up in
// GET /v1/translations/stats instead.
func (a *App) Healthz(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "service": "prodtrans"})
}
