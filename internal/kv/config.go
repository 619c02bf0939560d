package kv

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the environment-derived settings for a leader process.
// cmd/kvleader reads this, resolves FollowerAddrs into kvclient
// followers (internal/kv can't import kvclient without a cycle), and
// hands the rest straight to NewLeader.
type Config struct {
	WriteQuorum   int
	MinDelay      time.Duration
	MaxDelay      time.Duration
	FollowerAddrs []string
	Addr          string
}

// ConfigFromEnv reads WRITE_QUORUM, MIN_DELAY_MS, MAX_DELAY_MS,
// FOLLOWERS (comma-separated addresses) and KV_ADDR, mirroring the
// teacher's NewServiceFromEnv style of env-driven construction.
func ConfigFromEnv() (Config, error) {
	cfg := Config{WriteQuorum: 1, Addr: ":18090"}

	if v := strings.TrimSpace(os.Getenv("WRITE_QUORUM")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("kv: invalid WRITE_QUORUM %q: %w", v, err)
		}
		cfg.WriteQuorum = n
	}

	if v := strings.TrimSpace(os.Getenv("MIN_DELAY_MS")); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("kv: invalid MIN_DELAY_MS %q: %w", v, err)
		}
		cfg.MinDelay = time.Duration(ms) * time.Millisecond
	}

	if v := strings.TrimSpace(os.Getenv("MAX_DELAY_MS")); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("kv: invalid MAX_DELAY_MS %q: %w", v, err)
		}
		cfg.MaxDelay = time.Duration(ms) * time.Millisecond
	}
	if cfg.MaxDelay < cfg.MinDelay {
		return Config{}, fmt.Errorf("kv: MAX_DELAY_MS must be >= MIN_DELAY_MS")
	}

	if v := strings.TrimSpace(os.Getenv("FOLLOWERS")); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				cfg.FollowerAddrs = append(cfg.FollowerAddrs, part)
			}
		}
	}
	if cfg.WriteQuorum < 1 || (len(cfg.FollowerAddrs) > 0 && cfg.WriteQuorum > len(cfg.FollowerAddrs)) {
		return Config{}, fmt.Errorf("kv: write quorum %d invalid for %d followers", cfg.WriteQuorum, len(cfg.FollowerAddrs))
	}

	if v := strings.TrimSpace(os.Getenv("KV_ADDR")); v != "" {
		cfg.Addr = v
	}
	return cfg, nil
}
