package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buzzconnect/models"
	"buzzconnect/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestJobRunsOnlyAfterRunAt(t *testing.T) {
	st := store.NewMemory()
	clock := &fakeClock{t: time.Now()}
	sched := New(st, time.Second)
	sched.SetClock(clock.Now)

	var ran []map[string]string
	sched.Handle("test.kind", func(_ context.Context, payload map[string]string) error {
		ran = append(ran, payload)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, sched.Schedule(ctx, "test.kind", map[string]string{"key": "value"}, clock.Now().Add(time.Hour)))

	sched.Poll(ctx)
	assert.Empty(t, ran, "job must not run before its runAt")

	clock.Advance(time.Hour + time.Minute)
	sched.Poll(ctx)
	require.Len(t, ran, 1)
	assert.Equal(t, "value", ran[0]["key"])

	jobs := st.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobDone, jobs[0].Status)
}

func TestJobRunsOnce(t *testing.T) {
	st := store.NewMemory()
	clock := &fakeClock{t: time.Now()}
	sched := New(st, time.Second)
	sched.SetClock(clock.Now)

	count := 0
	sched.Handle("test.kind", func(context.Context, map[string]string) error {
		count++
		return nil
	})

	ctx := context.Background()
	require.NoError(t, sched.Schedule(ctx, "test.kind", nil, clock.Now()))

	sched.Poll(ctx)
	sched.Poll(ctx)
	assert.Equal(t, 1, count)
}

func TestFailedJobIsMarkedFailed(t *testing.T) {
	st := store.NewMemory()
	clock := &fakeClock{t: time.Now()}
	sched := New(st, time.Second)
	sched.SetClock(clock.Now)

	sched.Handle("test.kind", func(context.Context, map[string]string) error {
		return assert.AnError
	})

	ctx := context.Background()
	require.NoError(t, sched.Schedule(ctx, "test.kind", nil, clock.Now()))
	sched.Poll(ctx)

	jobs := st.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
	assert.NotEmpty(t, jobs[0].Error)
}

func TestUnknownKindIsMarkedFailed(t *testing.T) {
	st := store.NewMemory()
	clock := &fakeClock{t: time.Now()}
	sched := New(st, time.Second)
	sched.SetClock(clock.Now)

	ctx := context.Background()
	require.NoError(t, sched.Schedule(ctx, "never.registered", nil, clock.Now()))
	sched.Poll(ctx)

	jobs := st.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
}

func TestDueJobsRunInRunAtOrder(t *testing.T) {
	st := store.NewMemory()
	clock := &fakeClock{t: time.Now()}
	sched := New(st, time.Second)
	sched.SetClock(clock.Now)

	var order []string
	sched.Handle("test.kind", func(_ context.Context, payload map[string]string) error {
		order = append(order, payload["name"])
		return nil
	})

	ctx := context.Background()
	base := clock.Now()
	require.NoError(t, sched.Schedule(ctx, "test.kind", map[string]string{"name": "second"}, base.Add(2*time.Minute)))
	require.NoError(t, sched.Schedule(ctx, "test.kind", map[string]string{"name": "first"}, base.Add(time.Minute)))

	clock.Advance(5 * time.Minute)
	sched.Poll(ctx)

	assert.Equal(t, []string{"first", "second"}, order)
}
