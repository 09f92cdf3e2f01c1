package api

import (
	"net/http"
)

// LoginRequest is the request body for POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin exchanges user credentials for a JWT session token that the
// auth middleware accepts as a Bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.auth == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Authentication not configured")
		return
	}

	var req LoginRequest
	if err := s.parseJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	resp, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		// Same response for unknown user and wrong password.
		s.respondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	s.respondJSON(w, http.StatusOK, resp)
}
