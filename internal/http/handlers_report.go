package http

import (
	"encoding/json"
	"net/http"
)

// serveCachedView writes a cached view when present, otherwise builds it,
// caches the marshaled bytes, and serves them.
func (s *Server) serveCachedView(w http.ResponseWriter, user, view string, build func() (any, error)) {
	key := s.viewKey(user, view)
	if body, ok := s.viewCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	v, err := build()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.viewCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	s.serveCachedView(w, user, "dashboard", func() (any, error) {
		return s.reports.Dashboard(r.Context(), user)
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	s.serveCachedView(w, user, "analytics", func() (any, error) {
		return s.reports.Analytics(r.Context(), user)
	})
}
