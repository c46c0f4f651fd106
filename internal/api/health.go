package api

import "net/http"

// Health handles GET /healthz with a storage reachability probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w)
		return
	}
	if err := h.Store.Ping(r.Context()); err != nil {
		writeFailure(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "healthy")
}
