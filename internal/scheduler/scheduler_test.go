package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/fbsweep/internal/logger"
)

func TestNewInvalidTimezone(t *testing.T) {
	_, err := New(context.Background(), "Mars/Olympus", time.Minute, logger.Discard())
	assert.ErrorContains(t, err, "invalid timezone")
}

func TestAddJobAndList(t *testing.T) {
	s, err := New(context.Background(), "UTC", time.Minute, logger.Discard())
	require.NoError(t, err)

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.AddJob("sweep", "0 */2 * * *", noop))
	assert.Error(t, s.AddJob("bad", "not a cron line", noop))

	s.Start()
	defer s.Stop()

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "sweep", jobs[0].Name)
	assert.False(t, jobs[0].NextRun.IsZero())
	assert.Equal(t, 0, jobs[0].NextRun.Hour()%2)

	s.RemoveJob("sweep")
	assert.Empty(t, s.ListJobs())
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s, err := New(context.Background(), "", 10*time.Millisecond, logger.Discard())
	require.NoError(t, err)

	err = s.RunNow("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestScheduledJobRuns(t *testing.T) {
	s, err := New(context.Background(), "UTC", time.Minute, logger.Discard())
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestCancelledParentStopsRunningJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, "UTC", time.Hour, logger.Discard())
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan error, 1)
	require.NoError(t, s.AddJob("sweep", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		select {
		case done <- ctx.Err():
		default:
		}
		return ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	cancel()
	select {
	case <-s.Stop().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	assert.ErrorIs(t, <-done, context.Canceled)
}
