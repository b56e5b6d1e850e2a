package v1

import (
	"net/http"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "storage not ready", "")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
