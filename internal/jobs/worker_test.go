package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Worker_TransitionsStatus(t *testing.T) {
	q := NewQueue(1)
	q.Start(context.Background(), func(_ context.Context, _ *Job) error { return nil })
	defer q.Stop()

	job, _ := q.Enqueue(EnqueueRequest{
		Source:    "telegram",
		DedupeKey: "k1",
	})

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		if !ok || got == nil {
			return false
		}
		return got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_Worker_RecoversPanics(t *testing.T) {
	q := NewQueue(1)
	q.Start(context.Background(), func(_ context.Context, _ *Job) error {
		panic("boom")
	})
	defer q.Stop()

	job, _ := q.Enqueue(EnqueueRequest{Source: "telegram", DedupeKey: "panic"})

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusFailed
	}, time.Second, 10*time.Millisecond)

	got, _ := q.Get(job.ID)
	assert.Contains(t, got.Error, "boom")
}

func TestQueue_Worker_RunsJobsEnqueuedBeforeStart(t *testing.T) {
	q := NewQueue(2)
	job, _ := q.Enqueue(EnqueueRequest{Source: "cli", DedupeKey: "early"})

	q.Start(context.Background(), func(_ context.Context, _ *Job) error { return nil })
	defer q.Stop()

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}
