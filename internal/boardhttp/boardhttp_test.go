package boardhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scramblekv/internal/access"
	"scramblekv/internal/board"
)

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.Parse(strings.NewReader("2x2\nA\nA\nB\nB\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return b
}

func newTestServer(t *testing.T, b *board.Board) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(b).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleLook(t *testing.T) {
	b := newTestBoard(t)
	srv := newTestServer(t, b)

	resp, err := http.Get(srv.URL + "/look?player=p1")
	if err != nil {
		t.Fatalf("GET /look: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var vr viewResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(vr.View, "2x2\n") {
		t.Fatalf("view = %q, want 2x2 header", vr.View)
	}
}

func TestHandleLookInvalidPlayer(t *testing.T) {
	b := newTestBoard(t)
	srv := newTestServer(t, b)

	resp, err := http.Get(srv.URL + "/look?player=bad%24id")
	if err != nil {
		t.Fatalf("GET /look: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleFlip(t *testing.T) {
	b := newTestBoard(t)
	srv := newTestServer(t, b)

	resp, err := http.Post(srv.URL+"/flip?player=p1&row=0&col=0", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /flip: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var vr viewResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(vr.View, "my A") {
		t.Fatalf("view = %q, want my A somewhere", vr.View)
	}
}

func TestHandleMap(t *testing.T) {
	b := newTestBoard(t)
	srv := newTestServer(t, b)

	body := strings.NewReader(`{"player":"p1","mapping":{"A":"X"}}`)
	resp, err := http.Post(srv.URL+"/map", "application/json", body)
	if err != nil {
		t.Fatalf("POST /map: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	flipResp, err := http.Post(srv.URL+"/flip?player=p1&row=0&col=0", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /flip: %v", err)
	}
	defer flipResp.Body.Close()
	var vr viewResponse
	json.NewDecoder(flipResp.Body).Decode(&vr)
	if !strings.Contains(vr.View, "my X") {
		t.Fatalf("view = %q, want my X after map", vr.View)
	}
}

func TestHandleFlipRequiresSessionWhenGuarded(t *testing.T) {
	b := newTestBoard(t)
	accessManager := access.NewManager()
	accessHTTP := access.NewHTTPHandler(accessManager)
	token, err := accessManager.Register("p1", "hunter2pass")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	h := NewHandler(b)
	h.RequireSession(accessHTTP.RequireSession)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/flip?player=p1&row=0&col=0", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /flip: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without a session", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/flip?player=someone-else&row=0&col=0", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /flip with session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with a valid session", resp.StatusCode)
	}
	var vr viewResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(vr.View, "my A") {
		t.Fatalf("view = %q, want the session's own player (p1) to own the flip despite the spoofed player param", vr.View)
	}
}

func TestHandleWatchLongPollTimeout(t *testing.T) {
	b := newTestBoard(t)
	srv := newTestServer(t, b)

	resp, err := http.Get(srv.URL + "/watch?player=p1&timeout_ms=50")
	if err != nil {
		t.Fatalf("GET /watch: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", resp.StatusCode)
	}
}

func TestHandleWebSocketPushesOnChange(t *testing.T) {
	b := newTestBoard(t)
	srv := newTestServer(t, b)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player=p1"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	if _, err := b.Flip(context.Background(), "p2", 0, 0); err != nil {
		t.Fatalf("Flip: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var vr viewResponse
	if err := conn.ReadJSON(&vr); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !strings.Contains(vr.View, "my A") {
		t.Fatalf("pushed view = %q, want my A", vr.View)
	}
}
