// Package boardhttp exposes internal/board over HTTP: request/response
// endpoints for look, flip and map, plus a long-poll and a WebSocket
// variant of watch, using the same ServeMux/JSON-helper shape as
// internal/kvhttp and the gorilla/websocket upgrade pattern the
// teacher's gateway package uses for its own push transport.
package boardhttp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"scramblekv/internal/access"
	"scramblekv/internal/board"
	"scramblekv/internal/httpx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// OperationHook observes a completed flip or map call, for audit
// logging or activity tracking. It runs after the response has already
// been decided and never affects it.
type OperationHook func(player, operation, detail string)

// SessionGuard wraps a write-side route so it refuses to run until the
// caller presents whatever the guard considers a valid session, the
// same shape as access.HTTPHandler.RequireSession.
type SessionGuard func(http.HandlerFunc) http.HandlerFunc

// Handler serves one Board over HTTP.
type Handler struct {
	board *board.Board
	hooks []OperationHook
	guard SessionGuard
}

// NewHandler builds a Handler for b.
func NewHandler(b *board.Board) *Handler {
	return &Handler{board: b}
}

// OnOperation registers a hook fired after every successful flip or map
// call.
func (h *Handler) OnOperation(hook OperationHook) {
	h.hooks = append(h.hooks, hook)
}

func (h *Handler) fireHooks(player, operation, detail string) {
	for _, hook := range h.hooks {
		hook(player, operation, detail)
	}
}

// RequireSession gates /flip and /map behind guard (typically
// access.HTTPHandler.RequireSession); leave unset to accept any
// caller-supplied player ID on those routes.
func (h *Handler) RequireSession(guard SessionGuard) {
	h.guard = guard
}

func (h *Handler) guarded(next http.HandlerFunc) http.HandlerFunc {
	if h.guard == nil {
		return next
	}
	return h.guard(next)
}

// resolvePlayer prefers the session identity RequireSession attached to
// the request context over a caller-supplied player field, so a gated
// route can't be used to act as a different player than the one who
// authenticated. With no guard configured, requested is returned as-is.
func (h *Handler) resolvePlayer(r *http.Request, requested string) string {
	if h.guard == nil {
		return requested
	}
	if player, ok := access.PlayerFromContext(r.Context()); ok {
		return player
	}
	return requested
}

// RegisterRoutes attaches the board's routes to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/look", h.handleLook)
	mux.HandleFunc("/flip", h.guarded(h.handleFlip))
	mux.HandleFunc("/map", h.guarded(h.handleMap))
	mux.HandleFunc("/watch", h.handleWatch)
	mux.HandleFunc("/ws", h.handleWebSocket)
}

type viewResponse struct {
	Version uint64 `json:"version"`
	View    string `json:"view"`
}

func (h *Handler) handleLook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	player := r.URL.Query().Get("player")
	view, err := h.board.Look(player)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewResponse{Version: h.board.Version(), View: view})
}

func (h *Handler) handleFlip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	player := h.resolvePlayer(r, q.Get("player"))
	row, err1 := strconv.Atoi(q.Get("row"))
	col, err2 := strconv.Atoi(q.Get("col"))
	if err1 != nil || err2 != nil {
		httpx.WriteError(w, http.StatusBadRequest, "row and col must be integers")
		return
	}

	view, err := h.board.Flip(r.Context(), player, row, col)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	h.fireHooks(player, "flip", fmt.Sprintf("row=%d col=%d", row, col))
	httpx.WriteJSON(w, http.StatusOK, viewResponse{Version: h.board.Version(), View: view})
}

type mapRequest struct {
	Player  string            `json:"player"`
	Mapping map[string]string `json:"mapping"`
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req mapRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	player := h.resolvePlayer(r, req.Player)
	view, err := h.board.Replace(player, func(current string) string {
		if replacement, ok := req.Mapping[current]; ok {
			return replacement
		}
		return current
	})
	if err != nil {
		writeBoardError(w, err)
		return
	}
	h.fireHooks(player, "map", fmt.Sprintf("mapping=%v", req.Mapping))
	httpx.WriteJSON(w, http.StatusOK, viewResponse{Version: h.board.Version(), View: view})
}

// handleWatch is the long-poll variant: it blocks until the board
// changes (or the request's context is cancelled, e.g. by a client
// timeout) and returns the resulting view.
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	player := r.URL.Query().Get("player")

	ctx := r.Context()
	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "timeout_ms must be a positive integer")
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}

	view, err := h.board.Watch(ctx, player)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewResponse{Version: h.board.Version(), View: view})
}

// handleWebSocket upgrades to a socket that pushes a fresh view every
// time the board changes, until the client disconnects.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if !board.ValidPlayerID(player) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid player")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[boardhttp] upgrade error: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// A read pump that does nothing but detect client-initiated close;
	// this board push channel is one-directional.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer conn.Close()
	for {
		view, err := h.board.Watch(ctx, player)
		if err != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(viewResponse{Version: h.board.Version(), View: view}); err != nil {
			return
		}
	}
}

func writeBoardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrInvalidPlayer):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, board.ErrOutOfBounds):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, board.ErrNoCard):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, board.ErrSecondControlled):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		httpx.WriteError(w, http.StatusGatewayTimeout, err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
