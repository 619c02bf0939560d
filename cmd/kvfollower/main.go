// Command kvfollower runs a single replica of the quorum-replicated
// key/value store: it accepts replication pushes from a leader and
// serves local reads.
package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"scramblekv/internal/kv"
	"scramblekv/internal/kvhttp"
)

func main() {
	store := kv.NewStore()
	handler := kvhttp.NewFollowerHandler(store)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	handler.RegisterRoutes(mux)

	addr := strings.TrimSpace(os.Getenv("FOLLOWER_ADDR"))
	if addr == "" {
		addr = ":18091"
	}
	log.Printf("[KVFollower] starting on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[KVFollower] failed to start: %v", err)
	}
}
