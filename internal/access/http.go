package access

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"scramblekv/internal/httpx"
)

// HTTPHandler exposes registration, login, logout and session lookup,
// grounded directly on the teacher's auth.HTTPHandler route shape.
type HTTPHandler struct {
	manager *Manager
}

// NewHTTPHandler builds an HTTPHandler backed by manager.
func NewHTTPHandler(manager *Manager) *HTTPHandler {
	return &HTTPHandler{manager: manager}
}

// RegisterRoutes attaches the access routes to mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/access/register", h.handleRegister)
	mux.HandleFunc("/api/access/login", h.handleLogin)
	mux.HandleFunc("/api/access/logout", h.handleLogout)
	mux.HandleFunc("/api/access/me", h.handleMe)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	SessionToken string `json:"session_token"`
}

type meResponse struct {
	Username string `json:"username"`
}

func (h *HTTPHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.manager.Register(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidPassword):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUsernameTaken):
			httpx.WriteError(w, http.StatusConflict, err.Error())
		default:
			httpx.WriteError(w, http.StatusInternalServerError, "register failed")
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authResponse{SessionToken: token})
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.manager.Login(req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authResponse{SessionToken: token})
}

func (h *HTTPHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	h.manager.Logout(token)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := bearerToken(r.Header.Get("Authorization"))
	username, ok := h.manager.ResolveSession(token)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{Username: username})
}

func bearerToken(raw string) string {
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

type contextKey string

const playerContextKey contextKey = "access.player"

// RequireSession wraps next with a bearer-token check, injecting the
// resolved player identifier into the request context for handlers
// downstream (e.g. boardhttp, kvhttp) to read via PlayerFromContext.
func (h *HTTPHandler) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		username, ok := h.manager.ResolveSession(token)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		ctx := context.WithValue(r.Context(), playerContextKey, username)
		next(w, r.WithContext(ctx))
	}
}

// PlayerFromContext returns the player identifier RequireSession
// attached to ctx, if any.
func PlayerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(playerContextKey).(string)
	return v, ok
}
