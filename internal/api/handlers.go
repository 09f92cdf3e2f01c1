package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rosterlabs/roster/internal/registry"
	"github.com/rosterlabs/roster/internal/selector"
	"github.com/rosterlabs/roster/internal/store"
	"github.com/rosterlabs/roster/pkg/models"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePersonas handles GET /api/v1/personas
func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	catalog := s.registry.Snapshot()
	if catalog == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"catalog_version": catalog.Version,
		"personas":        catalog.Definitions(),
	})
}

// handlePersona handles GET /api/v1/personas/{id}
func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := s.extractID(r.URL.Path, "/api/v1/personas")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Persona ID required")
		return
	}

	catalog := s.registry.Snapshot()
	if catalog == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		return
	}

	def, ok := catalog.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Persona not found: "+id)
		return
	}

	s.respondJSON(w, http.StatusOK, def)
}

// handleDispatch handles POST /api/v1/dispatch
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var task models.TaskSignature
	if err := s.parseJSON(r, &task); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(task.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "Task text is required")
		return
	}

	handle, err := s.registry.Dispatch(r.Context(), &task)
	if err != nil {
		switch {
		case errors.Is(err, selector.ErrNoMatch):
			s.respondJSON(w, http.StatusNotFound, map[string]string{
				"error": "No persona cleared the confidence threshold",
				"code":  "no_match",
			})
		case errors.Is(err, registry.ErrNotLoaded):
			s.respondError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		case errors.Is(err, registry.ErrClosed):
			s.respondError(w, http.StatusServiceUnavailable, "Registry is closed")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respondJSON(w, http.StatusOK, handle)
}

// handleScores handles POST /api/v1/scores, returning per-persona match
// scores for a task without issuing a dispatch handle.
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var task models.TaskSignature
	if err := s.parseJSON(r, &task); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	scores, err := s.registry.Scores(&task)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotLoaded):
			s.respondError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		case errors.Is(err, registry.ErrClosed):
			s.respondError(w, http.StatusServiceUnavailable, "Registry is closed")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"task":   task,
		"scores": scores,
	})
}

// handleRegistryReload handles POST /api/v1/registry/reload
func (s *Server) handleRegistryReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.registry.Reload(r.Context()); err != nil {
		var malformed *store.MalformedDefinitionError
		var dup *store.DuplicateIDError
		switch {
		case errors.Is(err, store.ErrLoadTimeout):
			s.respondError(w, http.StatusGatewayTimeout, err.Error())
		case errors.As(err, &malformed), errors.As(err, &dup):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, registry.ErrClosed):
			s.respondError(w, http.StatusServiceUnavailable, "Registry is closed")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respondJSON(w, http.StatusOK, s.registry.Status())
}

// handleRegistryStatus handles GET /api/v1/registry/status
func (s *Server) handleRegistryStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, s.registry.Status())
}
