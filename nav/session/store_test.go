package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marktr/adsbot/fbads"
	"github.com/marktr/adsbot/nav"
)

func TestDoSerializesSameSession(t *testing.T) {
	store := NewStore(Options{})

	const workers = 8
	inside := 0
	maxInside := 0
	var guard sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Do(42, func(sess *Session) error {
				guard.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				guard.Unlock()

				time.Sleep(2 * time.Millisecond)
				sess.Nav.Crumbs = append(sess.Nav.Crumbs, nav.Crumb{ID: "x"})

				guard.Lock()
				inside--
				guard.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside, "a double tap must never run two handlers at once")
	require.NoError(t, store.Do(42, func(sess *Session) error {
		assert.Len(t, sess.Nav.Crumbs, workers, "every serialized mutation persisted")
		return nil
	}))
}

func TestDifferentSessionsRunIndependently(t *testing.T) {
	store := NewStore(Options{})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = store.Do(1, func(*Session) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		_ = store.Do(2, func(*Session) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a busy session must not block other sessions")
	}
	close(release)
}

func TestIdleSessionResetsOnNextAccess(t *testing.T) {
	now := time.Now()
	store := NewStore(Options{
		IdleTTL: 10 * time.Minute,
		Now:     func() time.Time { return now },
	})

	require.NoError(t, store.Do(7, func(sess *Session) error {
		sess.Nav, _ = nav.Transition(sess.Nav, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_1"})
		sess.Detail = &fbads.EntityDetail{Entity: fbads.Entity{ID: "c1"}}
		return nil
	}))

	now = now.Add(11 * time.Minute)
	require.NoError(t, store.Do(7, func(sess *Session) error {
		assert.Equal(t, nav.AccountList, sess.Nav.Level, "an expired session starts over at the root")
		assert.Empty(t, sess.Nav.Crumbs)
		assert.Nil(t, sess.Detail, "a reset drops the cached detail too")
		return nil
	}))
}

func TestFreshSessionWithinTTLKeepsState(t *testing.T) {
	now := time.Now()
	store := NewStore(Options{
		IdleTTL: 10 * time.Minute,
		Now:     func() time.Time { return now },
	})

	require.NoError(t, store.Do(7, func(sess *Session) error {
		sess.Nav, _ = nav.Transition(sess.Nav, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_1"})
		return nil
	}))

	now = now.Add(9 * time.Minute)
	require.NoError(t, store.Do(7, func(sess *Session) error {
		assert.Equal(t, nav.CampaignList, sess.Nav.Level)
		return nil
	}))
}

func TestEvictIdleRemovesOnlyStaleSessions(t *testing.T) {
	now := time.Now()
	store := NewStore(Options{
		IdleTTL: 10 * time.Minute,
		Now:     func() time.Time { return now },
	})

	require.NoError(t, store.Do(1, func(sess *Session) error {
		sess.Nav, _ = nav.Transition(sess.Nav, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_1"})
		return nil
	}))
	now = now.Add(5 * time.Minute)
	require.NoError(t, store.Do(2, func(sess *Session) error {
		sess.Nav, _ = nav.Transition(sess.Nav, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_2"})
		return nil
	}))
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, store.EvictIdle())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Do(1, func(sess *Session) error {
		assert.Equal(t, nav.AccountList, sess.Nav.Level, "the evicted session starts over")
		return nil
	}))
	require.NoError(t, store.Do(2, func(sess *Session) error {
		assert.Equal(t, nav.CampaignList, sess.Nav.Level, "the live session kept its position")
		return nil
	}))
}
