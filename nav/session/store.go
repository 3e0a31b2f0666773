package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marktr/adsbot/core/logger"
	"github.com/marktr/adsbot/fbads"
	"github.com/marktr/adsbot/nav"
)

// DefaultIdleTTL is how long a session may sit untouched before its
// navigation position is discarded.
const DefaultIdleTTL = 30 * time.Minute

// Session is one chat's navigation state. Detail caches the last
// successfully fetched entity detail so dismissing a confirmation
// overlay re-renders it without another platform read.
type Session struct {
	Nav      nav.State
	Detail   *fbads.EntityDetail
	LastSeen time.Time
}

type entry struct {
	mu   sync.Mutex
	sess Session
}

// Options configures a Store. Zero values pick the defaults.
type Options struct {
	IdleTTL time.Duration
	// Now is injectable for tests.
	Now func() time.Time
}

// Store keeps per-chat sessions keyed by chat ID. All access goes
// through Do, which serializes work on the same session while letting
// different sessions proceed in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry

	idleTTL time.Duration
	now     func() time.Time
}

func NewStore(opts Options) *Store {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		entries: make(map[int64]*entry),
		idleTTL: opts.IdleTTL,
		now:     opts.Now,
	}
}

// Do runs fn with exclusive access to the session for sessionID,
// creating a fresh one when none exists or the previous one idled out.
// Mutations fn makes to sess persist after it returns.
func (s *Store) Do(sessionID int64, fn func(sess *Session) error) error {
	e := s.acquire(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now()
	if now.Sub(e.sess.LastSeen) > s.idleTTL {
		s.reset(e, now)
	}
	e.sess.LastSeen = now
	return fn(&e.sess)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// EvictIdle drops sessions idle past the TTL and returns how many were
// removed. A session currently inside Do is skipped and picked up by a
// later sweep.
func (s *Store) EvictIdle() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess.LastSeen.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}

// Sweep runs EvictIdle on a ticker until ctx is canceled.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				logger.NAV.Debug("idle sessions evicted",
					slog.String("event", "session.sweep"),
					slog.Int("evicted", n),
					slog.Int("live", s.Len()))
			}
		}
	}
}

func (s *Store) acquire(sessionID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		e = &entry{}
		s.reset(e, s.now())
		s.entries[sessionID] = e
	}
	return e
}

func (s *Store) reset(e *entry, now time.Time) {
	e.sess = Session{
		Nav:      nav.NewState(),
		LastSeen: now,
	}
}
