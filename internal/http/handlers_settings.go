package http

import (
	"net/http"
)

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		theme, err := s.settings.Theme(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Theme string `json:"theme"`
		}{Theme: theme})

	case http.MethodPut:
		var req struct {
			Theme string `json:"theme"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		if req.Theme != "light" && req.Theme != "dark" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "theme must be light or dark")
			return
		}
		if err := s.settings.SetTheme(r.Context(), req.Theme); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Theme string `json:"theme"`
		}{Theme: req.Theme})

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}
