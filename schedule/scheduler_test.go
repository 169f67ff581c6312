package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerNowReportsResult(t *testing.T) {
	s := New()
	defer s.Close()

	var runs atomic.Int32
	err := s.RegisterRecurring("reclaim-sessions", time.Hour, func(ctx context.Context) (int, error) {
		runs.Add(1)
		return 2, nil
	})
	require.NoError(t, err)

	reply, err := s.TriggerNow("reclaim-sessions")
	require.NoError(t, err)

	select {
	case res := <-reply:
		assert.True(t, res.Success)
		assert.Equal(t, 2, res.ItemsReclaimed)
		assert.GreaterOrEqual(t, res.DurationMs, int64(0))
		assert.NoError(t, res.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("manual trigger never completed")
	}

	assert.Equal(t, int32(1), runs.Load())
}

func TestTriggerNowSurfacesFailure(t *testing.T) {
	s := New()
	defer s.Close()

	boom := errors.New("backend down")
	require.NoError(t, s.RegisterRecurring("reclaim-sessions", time.Hour, func(ctx context.Context) (int, error) {
		return 0, boom
	}))

	reply, err := s.TriggerNow("reclaim-sessions")
	require.NoError(t, err)

	select {
	case res := <-reply:
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("manual trigger never completed")
	}
}

func TestTriggerNowUnknownJob(t *testing.T) {
	s := New()
	defer s.Close()

	_, err := s.TriggerNow("ghost")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRegisterRecurringIsIdempotent(t *testing.T) {
	s := New()
	defer s.Close()

	var first, second atomic.Int32
	require.NoError(t, s.RegisterRecurring("reclaim-sessions", time.Hour, func(ctx context.Context) (int, error) {
		first.Add(1)
		return 0, nil
	}))
	// Same ID again: must not replace the task or add a second schedule.
	require.NoError(t, s.RegisterRecurring("reclaim-sessions", time.Hour, func(ctx context.Context) (int, error) {
		second.Add(1)
		return 0, nil
	}))

	reply, err := s.TriggerNow("reclaim-sessions")
	require.NoError(t, err)
	<-reply

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(0), second.Load())
}

func TestRecurringCadenceFires(t *testing.T) {
	s := New()
	defer s.Close()

	done := make(chan struct{})
	var once atomic.Bool
	results := make(chan Result, 8)
	s.OnResult = func(res Result) {
		results <- res
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}

	require.NoError(t, s.RegisterRecurring("reclaim-sessions", 20*time.Millisecond, func(ctx context.Context) (int, error) {
		return 1, nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recurring job never fired")
	}

	res := <-results
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ItemsReclaimed)
	assert.Equal(t, "reclaim-sessions", res.JobID)
}

func TestCloseAnswersQueuedManualTriggers(t *testing.T) {
	s := New()

	started := make(chan struct{})
	gate := make(chan struct{})
	require.NoError(t, s.RegisterRecurring("reclaim-sessions", time.Hour, func(ctx context.Context) (int, error) {
		started <- struct{}{}
		<-gate
		return 1, nil
	}))

	first, err := s.TriggerNow("reclaim-sessions")
	require.NoError(t, err)
	<-started // the worker is inside the first run

	second, err := s.TriggerNow("reclaim-sessions")
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	// Close marks the scheduler closed before waiting on the worker.
	require.Eventually(t, func() bool {
		_, err := s.TriggerNow("reclaim-sessions")
		return errors.Is(err, ErrClosed)
	}, 2*time.Second, 10*time.Millisecond)

	close(gate)

	// The in-flight run finishes and reports normally.
	select {
	case res := <-first:
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.ItemsReclaimed)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight run never reported")
	}

	// The queued-but-never-run trigger is answered, not abandoned.
	select {
	case res := <-second:
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("queued trigger never answered after Close")
	}

	<-closed
}

func TestCloseStopsScheduler(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterRecurring("reclaim-sessions", time.Hour, func(ctx context.Context) (int, error) {
		return 0, nil
	}))

	s.Close()
	s.Close() // second Close is a no-op

	_, err := s.TriggerNow("reclaim-sessions")
	assert.ErrorIs(t, err, ErrClosed)

	err = s.RegisterRecurring("another", time.Hour, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrClosed)
}
