package guard

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SerializesPerEntity(t *testing.T) {
	g := New()

	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		firstDone <- g.Do(5, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.True(t, g.Busy(5))
	assert.ErrorIs(t, g.Do(5, func() error {
		t.Error("second write for the same id must not run")
		return nil
	}), ErrInFlight)

	close(release)
	require.NoError(t, <-firstDone)

	// After the first resolves, the id is admitted again.
	assert.False(t, g.Busy(5))
	called := false
	require.NoError(t, g.Do(5, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestDo_ReleasesOnFailure(t *testing.T) {
	g := New()
	boom := errors.New("boom")
	assert.ErrorIs(t, g.Do(7, func() error { return boom }), boom)
	assert.False(t, g.Busy(7), "release runs on the failure path too")
	require.NoError(t, g.Do(7, func() error { return nil }))
}

func TestDo_ReleasesOnPanic(t *testing.T) {
	g := New()
	func() {
		defer func() { require.NotNil(t, recover()) }()
		_ = g.Do(9, func() error { panic("boom") })
	}()
	assert.False(t, g.Busy(9), "release runs even when the write panics")
}

func TestDo_IndependentEntities(t *testing.T) {
	g := New()

	holdA := make(chan struct{})
	aStarted := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = g.Do(1, func() error {
			close(aStarted)
			<-holdA
			return nil
		})
		close(done)
	}()
	<-aStarted

	// A different entity is not blocked by entity 1's pending write.
	ran := false
	require.NoError(t, g.Do(2, func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	close(holdA)
	<-done
}

func TestActive(t *testing.T) {
	g := New()
	assert.Empty(t, g.Active())

	hold := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = g.Do(3, func() error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started
	assert.Equal(t, []int64{3}, g.Active())
	close(hold)
	wg.Wait()
	assert.Empty(t, g.Active())
}

func TestDo_ConcurrentStampede(t *testing.T) {
	// Many concurrent attempts for one id: exactly one runs at a time.
	g := New()
	var mu sync.Mutex
	running, maxRunning, admitted := 0, 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(11, func() error {
				mu.Lock()
				running++
				admitted++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrInFlight)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxRunning)
	assert.GreaterOrEqual(t, admitted, 1)
}
