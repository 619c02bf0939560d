// Package kvhttp exposes internal/kv over HTTP: POST /write and
// GET /read on a leader, POST /replicate on a follower, following the
// same mux/handler shape the teacher's auth package uses for its own
// JSON endpoints.
package kvhttp

import (
	"context"
	"errors"
	"net/http"

	"scramblekv/internal/httpx"
	"scramblekv/internal/kv"
)

// Writer is the subset of *kv.Leader the write-side handler needs.
type Writer interface {
	Write(ctx context.Context, key, value string) error
}

// Reader is the subset of *kv.Leader / *kv.Store the read-side handler
// needs; both satisfy it.
type Reader interface {
	Read(key string) (string, error)
}

// Replicator is the subset of *kv.Store a follower's intake handler
// needs.
type Replicator interface {
	Replicate(ctx context.Context, key, value string) error
}

type writeRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type readResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SessionGuard wraps /write so it refuses to run until the caller
// presents whatever the guard considers a valid session, the same
// shape as access.HTTPHandler.RequireSession.
type SessionGuard func(http.HandlerFunc) http.HandlerFunc

// LeaderHandler serves a leader's client-facing write/read API.
type LeaderHandler struct {
	writer Writer
	reader Reader
	guard  SessionGuard
}

// NewLeaderHandler builds a LeaderHandler. writer and reader are
// usually the same *kv.Leader value.
func NewLeaderHandler(writer Writer, reader Reader) *LeaderHandler {
	return &LeaderHandler{writer: writer, reader: reader}
}

// RequireSession gates /write behind guard (typically
// access.HTTPHandler.RequireSession); leave unset to accept writes from
// any caller. /read stays open either way.
func (h *LeaderHandler) RequireSession(guard SessionGuard) {
	h.guard = guard
}

// RegisterRoutes attaches the leader's routes to mux.
func (h *LeaderHandler) RegisterRoutes(mux *http.ServeMux) {
	write := h.handleWrite
	if h.guard != nil {
		write = h.guard(write)
	}
	mux.HandleFunc("/write", write)
	mux.HandleFunc("/read", h.handleRead)
}

func (h *LeaderHandler) handleWrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req writeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.writer.Write(r.Context(), req.Key, req.Value); err != nil {
		writeKVError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeaderHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := r.URL.Query().Get("key")
	value, err := h.reader.Read(key)
	if err != nil {
		writeKVError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, readResponse{Key: key, Value: value})
}

// FollowerHandler serves a follower's replication intake and its own
// local read endpoint.
type FollowerHandler struct {
	store Replicator
	read  Reader
}

// NewFollowerHandler builds a FollowerHandler backed by store.
func NewFollowerHandler(store *kv.Store) *FollowerHandler {
	return &FollowerHandler{store: store, read: store}
}

// RegisterRoutes attaches the follower's routes to mux.
func (h *FollowerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/replicate", h.handleReplicate)
	mux.HandleFunc("/read", h.handleRead)
}

func (h *FollowerHandler) handleReplicate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req writeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.Replicate(r.Context(), req.Key, req.Value); err != nil {
		writeKVError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FollowerHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := r.URL.Query().Get("key")
	value, err := h.read.Read(key)
	if err != nil {
		writeKVError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, readResponse{Key: key, Value: value})
}

func writeKVError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kv.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, kv.ErrInvalidKey):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, kv.ErrQuorumFailure):
		httpx.WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		httpx.WriteError(w, http.StatusGatewayTimeout, err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
