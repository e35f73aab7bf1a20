package handler

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

type reconcilerResponse struct {
	Pending   int64 `json:"pending"`
	Failed    int64 `json:"failed"`
	Succeeded int64 `json:"succeeded"`
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// GetReconciler handles GET /reconciler: counts of background writes.
func (s *Server) GetReconciler(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, reconcilerResponse{})
		return
	}
	writeJSON(w, http.StatusOK, reconcilerResponse{
		Pending:   s.stats.Pending(),
		Failed:    s.stats.Failed(),
		Succeeded: s.stats.Succeeded(),
	})
}
