package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// postGenerar triggers a generation run. The body is optional; when present
// it may scope the run to one user.
func (s *Server) postGenerar(w http.ResponseWriter, r *http.Request) {
	var req generarRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	userID := uuid.Nil
	if req.UserID != nil {
		userID = *req.UserID
	}

	res, err := s.gen.GenerarPendientes(r.Context(), userID)
	if err != nil {
		s.log.Error("generation run failed", "err", err)
		writeErr(w, http.StatusInternalServerError, "generation failed", "")
		return
	}
	toJSON(w, http.StatusOK, toGenerarResponse(res))
}

// listGastos returns the materialized gastos for one user, oldest first.
func (s *Server) listGastos(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		badRequest(w, "user_id is required")
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid user_id")
		return
	}

	gastos, err := s.store.GastosPorUsuario(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]gastoResponse, 0, len(gastos))
	for _, g := range gastos {
		items = append(items, toGastoResponse(g))
	}
	toJSON(w, http.StatusOK, map[string]any{"items": items})
}
