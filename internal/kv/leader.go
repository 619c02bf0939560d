package kv

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// replicationTimeout bounds a single follower round trip so one
// unreachable follower can't hold a background replication open
// forever. It is independent of the caller's context: the caller may
// give up waiting for quorum long before this fires.
const replicationTimeout = 30 * time.Second

// Follower is anything a Leader can replicate a write to. kvclient
// implements this over HTTP; LocalFollower implements it in-process for
// tests and single-binary deployments.
type Follower interface {
	ID() string
	Replicate(ctx context.Context, key, value string) error
}

// LocalFollower adapts a Store to the Follower interface, for running a
// leader and its followers in one process.
type LocalFollower struct {
	id    string
	store *Store
}

// NewLocalFollower wraps store as a Follower identified by id.
func NewLocalFollower(id string, store *Store) *LocalFollower {
	return &LocalFollower{id: id, store: store}
}

func (f *LocalFollower) ID() string { return f.id }

func (f *LocalFollower) Replicate(ctx context.Context, key, value string) error {
	return f.store.Replicate(ctx, key, value)
}

// ReplicationResult is one follower's outcome for a single Write.
type ReplicationResult struct {
	FollowerID string
	Err        error
	Latency    time.Duration
}

// WriteSummary reports how a Write's replication fanout finished, once
// all N followers have been heard from — whether or not the caller was
// still waiting at that point.
type WriteSummary struct {
	Key     string
	Value   string
	Quorum  int
	Acked   int
	Total   int
	Results []ReplicationResult
}

// WriteCompleteHook observes a finished fanout, for logging or activity
// tracking (see internal/activity). Hooks run after the caller of Write
// has already received its answer; a slow hook never delays a client.
type WriteCompleteHook func(WriteSummary)

// Leader is the single-writer front end of the replicated store (spec
// §4.8-§4.9): every Write lands locally, then fans out to all followers
// concurrently and returns as soon as W of them have acknowledged,
// letting the remaining followers catch up in the background.
type Leader struct {
	local     *Store
	followers []Follower
	quorum    int
	delay     DelayFunc

	mu    sync.Mutex
	hooks []WriteCompleteHook
}

// NewLeader builds a Leader that requires quorum acknowledgements out
// of followers before a Write returns successfully. delay is applied
// once per follower per write to simulate network latency; pass a
// DelayFunc built from UniformDelay, or one that always returns zero.
func NewLeader(followers []Follower, quorum int, delay DelayFunc) (*Leader, error) {
	if quorum < 1 || quorum > len(followers) {
		return nil, fmt.Errorf("kv: write quorum %d invalid for %d followers", quorum, len(followers))
	}
	if delay == nil {
		delay = NoDelay
	}
	return &Leader{
		local:     NewStore(),
		followers: followers,
		quorum:    quorum,
		delay:     delay,
	}, nil
}

// OnWriteComplete registers a hook fired once every follower in a
// Write's fanout has settled. Hooks accumulate; none replace a prior
// registration.
func (l *Leader) OnWriteComplete(hook WriteCompleteHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Read serves a key from the leader's own local copy (spec §4.8: any
// replica, including the leader, may answer reads directly).
func (l *Leader) Read(key string) (string, error) {
	return l.local.Read(key)
}

// Write stores key=value locally, then fans it out to every follower
// concurrently. It returns nil as soon as quorum acknowledgements have
// arrived, or ErrQuorumFailure if fewer than quorum ever arrive once
// all followers have responded. ctx only bounds how long the caller is
// willing to wait; followers that haven't yet answered keep replicating
// in the background regardless of ctx (spec §9: in-flight replication
// is never cancelled by a caller giving up).
func (l *Leader) Write(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	l.local.Set(key, value)

	n := len(l.followers)
	results := make(chan ReplicationResult, n)
	for _, f := range l.followers {
		go func(f Follower) {
			start := time.Now()
			time.Sleep(l.delay())
			rctx, cancel := context.WithTimeout(context.Background(), replicationTimeout)
			defer cancel()
			err := f.Replicate(rctx, key, value)
			results <- ReplicationResult{FollowerID: f.ID(), Err: err, Latency: time.Since(start)}
		}(f)
	}

	quorumCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		var quorumOnce sync.Once
		acked := 0
		collected := make([]ReplicationResult, 0, n)
		for i := 0; i < n; i++ {
			r := <-results
			collected = append(collected, r)
			if r.Err == nil {
				acked++
				if acked == l.quorum {
					quorumOnce.Do(func() { close(quorumCh) })
				}
			}
		}
		l.fireHooks(WriteSummary{
			Key:     key,
			Value:   value,
			Quorum:  l.quorum,
			Acked:   acked,
			Total:   n,
			Results: collected,
		})
	}()

	select {
	case <-quorumCh:
		return nil
	case <-done:
		// The collecting goroutine only reaches here after counting every
		// result, so acked is whatever made it into the closed quorumCh
		// path or fell short of it; either way quorum was not reached if
		// we arrive here without quorumCh having fired first.
		select {
		case <-quorumCh:
			return nil
		default:
			return ErrQuorumFailure
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Leader) fireHooks(s WriteSummary) {
	l.mu.Lock()
	hooks := make([]WriteCompleteHook, len(l.hooks))
	copy(hooks, l.hooks)
	l.mu.Unlock()
	for _, h := range hooks {
		h(s)
	}
}
