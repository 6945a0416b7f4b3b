package http

import (
	"net/http"

	"kanakku/internal/core"
	"kanakku/internal/identity"
)

// profileView is the profile as returned to clients. The password never
// leaves the server.
type profileView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
	Language         string `json:"language"`
	Currency         string `json:"currency"`
	BiometricEnabled bool   `json:"biometricEnabled"`
}

func viewOf(p core.UserProfile) profileView {
	return profileView{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Mobile:           p.Mobile,
		Language:         p.Language,
		Currency:         p.Currency,
		BiometricEnabled: p.BiometricEnabled,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.session.Login(r.Context(), req.Identifier, req.Password); err != nil {
		s.logger.WarnContext(r.Context(), "Login failed", "error", err)
		writeDomainError(w, err)
		return
	}

	profile, _ := s.session.Profile()
	s.logger.InfoContext(r.Context(), "User logged in", "user_id", profile.ID)
	writeJSON(w, http.StatusOK, viewOf(profile))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Identifier string `json:"identifier"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.session.StartSignup(r.Context(), req.Identifier); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Name             string `json:"name"`
		Email            string `json:"email"`
		Mobile           string `json:"mobile"`
		Language         string `json:"language"`
		Currency         string `json:"currency"`
		Password         string `json:"password"`
		BiometricEnabled bool   `json:"biometricEnabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := s.session.CompleteOnboarding(r.Context(), core.UserProfile{
		Name:             req.Name,
		Email:            req.Email,
		Mobile:           req.Mobile,
		Language:         req.Language,
		Currency:         req.Currency,
		Password:         req.Password,
		BiometricEnabled: req.BiometricEnabled,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "User onboarded", "user_id", profile.ID)
	writeJSON(w, http.StatusCreated, viewOf(profile))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	if err := s.session.Logout(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "identifier query parameter required")
		return
	}

	exists, err := s.session.CheckUserExists(r.Context(), identifier)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Exists bool `json:"exists"`
	}{Exists: exists})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Identifier  string `json:"identifier"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.session.ResetPassword(r.Context(), req.Identifier, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Password reset", "identifier", req.Identifier)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profile, ok := s.session.Profile()
		if !ok {
			writeDomainError(w, identity.ErrNotAuthenticated)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(profile))

	case http.MethodPut:
		current, ok := s.session.Profile()
		if !ok {
			writeDomainError(w, identity.ErrNotAuthenticated)
			return
		}

		var req struct {
			Name             string `json:"name"`
			Email            string `json:"email"`
			Mobile           string `json:"mobile"`
			Language         string `json:"language"`
			Currency         string `json:"currency"`
			BiometricEnabled bool   `json:"biometricEnabled"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		current.Name = req.Name
		current.Email = req.Email
		current.Mobile = req.Mobile
		current.Language = req.Language
		current.Currency = req.Currency
		current.BiometricEnabled = req.BiometricEnabled

		if err := s.session.UpdateProfile(r.Context(), current); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, viewOf(current))

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}
