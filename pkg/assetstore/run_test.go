package assetstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSerializesSameProject(t *testing.T) {
	s := newStore(t)

	var (
		active, peak atomic.Int32
		wg           sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Run(context.Background(), "p1", func() error {
				n := active.Add(1)
				for {
					cur := peak.Load()
					if n <= cur || peak.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				active.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	require.Eventually(t, func() bool { return s.locks.size() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestRunDifferentProjectsInParallel(t *testing.T) {
	s := newStore(t)
	inside := make(chan struct{})
	release := make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(context.Background(), "p1", func() error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), "p2", func() error { return nil })
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("p2 waited on the p1 writer")
	}

	close(release)
	require.NoError(t, <-errc)
}

func TestRunReturnsWorkError(t *testing.T) {
	s := newStore(t)
	boom := errors.New("boom")
	require.ErrorIs(t, s.Run(context.Background(), "p1", func() error { return boom }), boom)

	err := s.Run(context.Background(), "p1", func() error { panic("bad input") })
	require.Error(t, err)
	require.Eventually(t, func() bool { return s.locks.size() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestRunTimeoutLetsWorkFinish(t *testing.T) {
	s := newStore(t, func(o *Options) { o.Timeout = 20 * time.Millisecond })
	release := make(chan struct{})
	finished := make(chan struct{})

	err := s.Run(context.Background(), "p1", func() error {
		<-release
		close(finished)
		return nil
	})
	require.ErrorIs(t, err, ErrTimeout)

	// the detached work still holds the lock
	next := make(chan error, 1)
	go func() {
		next <- s.Run(context.Background(), "p1", func() error { return nil })
	}()
	require.ErrorIs(t, <-next, ErrTimeout)

	close(release)
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("detached work never finished")
	}
	require.Eventually(t, func() bool { return s.locks.size() == 0 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Run(context.Background(), "p1", func() error { return nil }))
}

func TestRunSkipsWorkQueuedPastTimeout(t *testing.T) {
	s := newStore(t, func(o *Options) { o.Timeout = 20 * time.Millisecond })
	_, err := s.PutDemoArchive("p1", zipOf(t, "site/index.html", "v1"), "v1.zip")
	require.NoError(t, err)

	unlock := s.locks.Lock("p1")
	var ran atomic.Bool
	err = s.Run(context.Background(), "p1", func() error {
		ran.Store(true)
		_, err := s.PutDemoArchive("p1", zipOf(t, "index.html", "v2"), "v2.zip")
		return err
	})
	require.ErrorIs(t, err, ErrTimeout)

	unlock()
	require.Eventually(t, func() bool { return s.locks.size() == 0 }, 5*time.Second, 5*time.Millisecond)
	assert.False(t, ran.Load())
	assert.True(t, exists(t, filepath.Join(s.Root(), "demos", "p1", "site", "index.html")))
	assert.Len(t, dirEntries(t, filepath.Join(s.Root(), "archives", "p1")), 1)
}

func TestRunSkipsWorkOfCancelledCaller(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	unlock := s.locks.Lock("p1")
	errc := make(chan error, 1)
	var ran atomic.Bool
	go func() {
		errc <- s.Run(ctx, "p1", func() error {
			ran.Store(true)
			return nil
		})
	}()
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	unlock()
	require.Eventually(t, func() bool { return s.locks.size() == 0 }, 5*time.Second, 5*time.Millisecond)
	assert.False(t, ran.Load())
}

func TestRunCallerCancellation(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	started := make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(ctx, "p1", func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	cancel()

	err := <-errc
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	close(release)
}

func TestKeyLockDropsIdleEntries(t *testing.T) {
	k := newKeyLock()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())

	unlockA()
	assert.Equal(t, 1, k.size())
	unlockB()
	assert.Zero(t, k.size())
}
