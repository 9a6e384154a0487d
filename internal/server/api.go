package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/version"
)

// apiAuthRequest is the body of POST /api/auth/{mode}.
type apiAuthRequest struct {
	auth.Form
	Token string `json:"token"`
}

type apiResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// sessionResponse is the body of GET /api/session.
type sessionResponse struct {
	Status     string     `json:"status"`
	AuthStatus string     `json:"authStatus"`
	User       *auth.User `json:"user,omitempty"`
}

func (s *Server) handleAPIAuth(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)

	mode, err := auth.ParseMode(r.PathValue("mode"))
	if err != nil {
		s.writeJSON(w, r, http.StatusNotFound, apiResponse{Error: err.Error()})
		return
	}

	var req apiAuthRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			s.writeJSON(w, r, http.StatusBadRequest, apiResponse{Error: "invalid request body"})
			return
		}
	}

	msg, err := b.facade.Perform(r.Context(), mode, req.Form, req.Token)
	s.persist(w, r, b)
	if err != nil {
		s.writeJSON(w, r, formStatus(err), apiResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, r, http.StatusOK, apiResponse{Message: msg})
}

func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	resp := sessionResponse{
		Status:     b.state.Status.String(),
		AuthStatus: b.state.AuthStatus().String(),
		User:       b.state.User,
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"provider":  s.config.Auth.Provider,
		"checks": map[string]interface{}{
			"content":   map[string]interface{}{"root": s.config.Content.Root},
			"websocket": map[string]interface{}{"clients": s.hub.Count()},
			"sessions":  map[string]interface{}{"active": s.auth.Sessions().Len()},
			"ratelimit": s.limiter.Stats(),
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode JSON response", "path", r.URL.Path)
	}
}
