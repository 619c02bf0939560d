// Command boardserver runs the Memory-Scramble board over HTTP: look,
// flip and map endpoints, a long-poll and WebSocket watch transport,
// and optional account/session and audit layers.
package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"scramblekv/internal/access"
	"scramblekv/internal/activity"
	"scramblekv/internal/audit"
	"scramblekv/internal/board"
	"scramblekv/internal/boardhttp"
	"scramblekv/internal/httpx"
)

func main() {
	boardPath := strings.TrimSpace(os.Getenv("BOARD_FILE"))
	if boardPath == "" {
		log.Fatalf("[BoardServer] BOARD_FILE is required")
	}
	b, err := board.ParseFile(boardPath)
	if err != nil {
		log.Fatalf("[BoardServer] failed to load board %s: %v", boardPath, err)
	}
	log.Printf("[BoardServer] loaded board %dx%d from %s", b.Height(), b.Width(), boardPath)

	auditService, auditMode, err := audit.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[BoardServer] failed to init audit service: %v", err)
	}
	defer auditService.Close()
	log.Printf("[BoardServer] audit mode: %s", auditMode)

	feed, err := activity.New(0)
	if err != nil {
		log.Fatalf("[BoardServer] failed to init activity feed: %v", err)
	}

	accessManager := access.NewManager()
	accessHTTP := access.NewHTTPHandler(accessManager)
	boardHTTP := boardhttp.NewHandler(b)
	boardHTTP.OnOperation(func(player, operation, detail string) {
		auditService.RecordBoardOp(player, operation, detail)
		feed.Record(player + " " + operation + ": " + detail)
	})
	if strings.EqualFold(strings.TrimSpace(os.Getenv("REQUIRE_SESSION")), "true") {
		boardHTTP.RequireSession(accessHTTP.RequireSession)
		log.Printf("[BoardServer] /flip and /map require a valid session")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/activity", func(w http.ResponseWriter, r *http.Request) {
		writeRecentActivity(w, feed)
	})
	accessHTTP.RegisterRoutes(mux)
	boardHTTP.RegisterRoutes(mux)

	addr := strings.TrimSpace(os.Getenv("BOARD_ADDR"))
	if addr == "" {
		addr = ":18081"
	}
	log.Printf("[BoardServer] starting on %s", addr)
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil {
		log.Fatalf("[BoardServer] failed to start: %v", err)
	}
}

func writeRecentActivity(w http.ResponseWriter, feed *activity.Feed) {
	httpx.WriteJSON(w, http.StatusOK, feed.Recent(100))
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
