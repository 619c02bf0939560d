// Command kvleader runs the write-path front end of the quorum
// replicated key/value store: it accepts client writes, fans each one
// out to every configured follower, and reports success once a write
// quorum of them has acknowledged.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"scramblekv/internal/access"
	"scramblekv/internal/activity"
	"scramblekv/internal/audit"
	"scramblekv/internal/httpx"
	"scramblekv/internal/kv"
	"scramblekv/internal/kvclient"
	"scramblekv/internal/kvhttp"
)

func main() {
	cfg, err := kv.ConfigFromEnv()
	if err != nil {
		log.Fatalf("[KVLeader] invalid configuration: %v", err)
	}
	if len(cfg.FollowerAddrs) == 0 {
		log.Fatalf("[KVLeader] FOLLOWERS must name at least one follower address")
	}

	followers := make([]kv.Follower, 0, len(cfg.FollowerAddrs))
	for i, addr := range cfg.FollowerAddrs {
		id := fmt.Sprintf("follower-%d", i+1)
		followers = append(followers, kvclient.NewHTTPFollower(id, addr))
	}

	delay, err := kv.UniformDelay(cfg.MinDelay, cfg.MaxDelay)
	if err != nil {
		log.Fatalf("[KVLeader] invalid delay range: %v", err)
	}

	leader, err := kv.NewLeader(followers, cfg.WriteQuorum, delay)
	if err != nil {
		log.Fatalf("[KVLeader] failed to init leader: %v", err)
	}

	auditService, auditMode, err := audit.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[KVLeader] failed to init audit service: %v", err)
	}
	defer auditService.Close()
	log.Printf("[KVLeader] audit mode: %s", auditMode)

	feed, err := activity.New(0)
	if err != nil {
		log.Fatalf("[KVLeader] failed to init activity feed: %v", err)
	}

	leader.OnWriteComplete(func(summary kv.WriteSummary) {
		auditService.RecordKVWrite("leader", summary.Key, summary.Acked, summary.Total)
		feed.Record(fmt.Sprintf("write key=%s acked=%s/%s", summary.Key,
			humanize.Comma(int64(summary.Acked)), humanize.Comma(int64(summary.Total))))
		for _, r := range summary.Results {
			if r.Err != nil {
				log.Printf("[KVLeader] follower %s failed after %s: %v", r.FollowerID, r.Latency, r.Err)
				continue
			}
			log.Printf("[KVLeader] follower %s acked in %s", r.FollowerID, r.Latency)
		}
	})

	accessManager := access.NewManager()
	accessHTTP := access.NewHTTPHandler(accessManager)

	leaderHTTP := kvhttp.NewLeaderHandler(leader, leader)
	if strings.EqualFold(strings.TrimSpace(os.Getenv("REQUIRE_SESSION")), "true") {
		leaderHTTP.RequireSession(accessHTTP.RequireSession)
		log.Printf("[KVLeader] /write requires a valid session")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/activity", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, feed.Recent(100))
	})
	accessHTTP.RegisterRoutes(mux)
	leaderHTTP.RegisterRoutes(mux)

	log.Printf("[KVLeader] write quorum %d of %d followers", cfg.WriteQuorum, len(followers))
	log.Printf("[KVLeader] starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("[KVLeader] failed to start: %v", err)
	}
}
