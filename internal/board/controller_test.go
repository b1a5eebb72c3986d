package board

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
)

type stubRemote struct {
	updateFn func(ctx context.Context, id string, b model.Bucket) (model.Task, error)
	calls    []string
}

func (s *stubRemote) UpdateTaskBucket(ctx context.Context, id string, b model.Bucket) (model.Task, error) {
	s.calls = append(s.calls, fmt.Sprintf("%s->%s", id, b))
	if s.updateFn == nil {
		return model.Task{}, errors.New("unexpected UpdateTaskBucket call")
	}
	return s.updateFn(ctx, id, b)
}

func seedTasks() []model.Task {
	return []model.Task{
		{ID: "T1", Title: "Write docs", Bucket: model.BucketTodo, Priority: model.PriorityHigh, Description: "keep me"},
		{ID: "T2", Title: "Fix bug", Bucket: model.BucketInProgress, Priority: model.PriorityLow},
		{ID: "T3", Title: "Ship", Bucket: model.BucketDone, Priority: model.PriorityMedium},
	}
}

func newTestController(t *testing.T, remote Remote) (*Controller, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	store := NewStore()
	store.Replace(seedTasks())
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewController(store, remote, WithLogger(logger), WithClock(func() time.Time { return fixed }))
	return c, hook
}

func bucketOf(t *testing.T, c *Controller, id string) model.Bucket {
	t.Helper()
	b, ok := c.Bucket(id)
	require.True(t, ok, "task %s not in view", id)
	return b
}

func TestMove_SameBucketIsNoop(t *testing.T) {
	c, _ := newTestController(t, nil)

	req, err := c.Move("T1", model.BucketTodo)
	require.NoError(t, err)
	assert.Nil(t, req)
	assert.False(t, c.IsPending("T1"))
	assert.Empty(t, c.PendingIDs())
	_, ok := c.Pending("T1")
	assert.False(t, ok)
}

func TestMove_AppliesImmediately(t *testing.T) {
	c, _ := newTestController(t, &stubRemote{})

	req, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, Request{TaskID: "T1", Bucket: model.BucketDone, Seq: 1}, *req)

	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	assert.True(t, c.IsPending("T1"))

	// Server state is untouched until the result arrives.
	st, _ := c.Store().Get("T1")
	assert.Equal(t, model.BucketTodo, st.Bucket)

	m, ok := c.Pending("T1")
	require.True(t, ok)
	assert.Equal(t, model.BucketTodo, m.PreviousBucket)
	assert.Equal(t, OutcomeInFlight, m.Outcome)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), m.RequestedAt)
}

func TestResolve_FailureRollsBack(t *testing.T) {
	c, hook := newTestController(t, nil)

	req, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)

	n := c.Resolve(req.Failed(errors.New("502 bad gateway")))
	require.NotNil(t, n)
	assert.Equal(t, NoticeMoveFailed, n.Kind)
	assert.Equal(t, "T1", n.TaskID)
	assert.Contains(t, n.Message, "Write docs")

	assert.Equal(t, model.BucketTodo, bucketOf(t, c, "T1"))
	assert.False(t, c.IsPending("T1"))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestResolve_SuccessMerges(t *testing.T) {
	c, _ := newTestController(t, nil)
	genBefore := c.Store().Generation()

	req, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)

	canonical := seedTasks()[0].WithBucket(model.BucketDone)
	canonical.UpdatedAt = time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC)
	assert.Nil(t, c.Resolve(req.Succeeded(canonical)))

	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	st, ok := c.Store().Get("T1")
	require.True(t, ok)
	assert.Equal(t, model.BucketDone, st.Bucket)
	assert.Equal(t, "keep me", st.Description)
	assert.Equal(t, genBefore+1, c.Store().Generation())
	assert.False(t, c.IsPending("T1"))
}

func TestResolve_SupersededResultDiscarded(t *testing.T) {
	c, _ := newTestController(t, nil)

	first, err := c.Move("T1", model.BucketInProgress)
	require.NoError(t, err)
	second, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)
	require.NotEqual(t, first.Seq, second.Seq)

	assert.True(t, c.IsPending("T1"))
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))

	// The slow first response lands: it must not change what is shown.
	assert.Nil(t, c.Resolve(first.Succeeded(seedTasks()[0].WithBucket(model.BucketInProgress))))
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	assert.True(t, c.IsPending("T1"))

	n := c.Resolve(second.Failed(errors.New("timeout")))
	require.NotNil(t, n)
	assert.Equal(t, model.BucketTodo, bucketOf(t, c, "T1"))
	assert.False(t, c.IsPending("T1"))
}

func TestResolve_SupersedeThenSecondSucceeds(t *testing.T) {
	c, _ := newTestController(t, nil)

	first, _ := c.Move("T1", model.BucketInProgress)
	second, _ := c.Move("T1", model.BucketDone)

	assert.Nil(t, c.Resolve(second.Succeeded(seedTasks()[0].WithBucket(model.BucketDone))))
	// A late failure of the superseded request is ignored entirely.
	assert.Nil(t, c.Resolve(first.Failed(errors.New("boom"))))

	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	assert.False(t, c.IsPending("T1"))
}

func TestRefresh_StaleFetchDoesNotClobberPendingMove(t *testing.T) {
	c, _ := newTestController(t, nil)

	since := c.Store().Generation()
	req, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)

	// A fetch that started before the move lands while it is still in flight.
	c.Refresh(since, seedTasks())
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	assert.True(t, c.IsPending("T1"))

	// Plain Replace behaves the same.
	c.Store().Replace(seedTasks())
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))

	c.Resolve(req.Succeeded(seedTasks()[0].WithBucket(model.BucketDone)))
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
}

func TestRefresh_SettledMoveAgesOutOnlyAfterFreshFetch(t *testing.T) {
	c, _ := newTestController(t, nil)

	staleSince := c.Store().Generation()
	req, _ := c.Move("T1", model.BucketDone)
	c.Resolve(req.Succeeded(seedTasks()[0].WithBucket(model.BucketDone)))

	// Fetch began before the resolution: overlay keeps showing the confirmed bucket.
	c.Refresh(staleSince, seedTasks())
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	_, held := c.Pending("T1")
	assert.True(t, held)

	// Fetch began after the resolution: overlay retires and server state shows through.
	fresh := seedTasks()
	fresh[0].Bucket = model.BucketDone
	c.Refresh(c.Store().Generation(), fresh)
	_, held = c.Pending("T1")
	assert.False(t, held)
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	assert.True(t, c.View().Equal(c.Store().Snapshot()))
}

func TestRefresh_FailedMoveKeepsRollbackUntilFreshFetch(t *testing.T) {
	c, _ := newTestController(t, nil)

	since := c.Store().Generation()
	req, _ := c.Move("T2", model.BucketDone)
	c.Resolve(req.Failed(errors.New("nope")))

	// A stale fetch claiming DONE (e.g. from a cache) must not resurrect the failed move.
	stale := seedTasks()
	stale[1].Bucket = model.BucketDone
	c.Refresh(since, stale)
	assert.Equal(t, model.BucketInProgress, bucketOf(t, c, "T2"))

	c.Refresh(c.Store().Generation(), seedTasks())
	assert.False(t, c.overlay.Active())
	assert.True(t, c.View().Equal(c.Store().Snapshot()))
}

func TestRefresh_VanishedTaskDropsPendingState(t *testing.T) {
	c, hook := newTestController(t, nil)

	req, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)

	c.Store().Replace(seedTasks()[1:])
	assert.False(t, c.IsPending("T1"))
	_, ok := c.Bucket("T1")
	assert.False(t, ok)

	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "task vanished from server state; dropping mutation" {
			found = true
		}
	}
	assert.True(t, found, "expected vanish diagnostic")

	assert.NotPanics(t, func() {
		assert.Nil(t, c.Resolve(req.Failed(errors.New("404"))))
	})
	assert.False(t, c.IsPending("T1"))
	assert.Empty(t, c.PendingIDs())
}

func TestRefresh_UnknownStatusWarnsOncePerTask(t *testing.T) {
	c, hook := newTestController(t, nil)

	tasks := seedTasks()
	tasks[1].Bucket = "BLOCKED"
	warnings := func() []*logrus.Entry {
		var out []*logrus.Entry
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel {
				out = append(out, e)
			}
		}
		return out
	}

	c.Refresh(c.Store().Generation(), tasks)
	c.Refresh(c.Store().Generation(), tasks)
	require.Len(t, warnings(), 1)
	assert.Equal(t, "T2", warnings()[0].Data["task"])
	assert.Equal(t, "BLOCKED", warnings()[0].Data["status"])
	assert.True(t, c.Store().Snapshot().Has("T2"))

	tasks[1].Bucket = "ARCHIVED"
	c.Refresh(c.Store().Generation(), tasks)
	assert.Len(t, warnings(), 2)

	c.Refresh(c.Store().Generation(), seedTasks())
	tasks[1].Bucket = "ARCHIVED"
	c.Refresh(c.Store().Generation(), tasks)
	assert.Len(t, warnings(), 3)
}

func TestResolve_NotFoundIsReportedAsTaskGone(t *testing.T) {
	c, _ := newTestController(t, nil)

	req, _ := c.Move("T3", model.BucketTodo)
	n := c.Resolve(req.Failed(fmt.Errorf("update: %w", ErrTaskNotFound)))
	require.NotNil(t, n)
	assert.Equal(t, NoticeTaskGone, n.Kind)
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T3"))
}

func TestResolve_MismatchedCanonicalTaskRollsBack(t *testing.T) {
	c, _ := newTestController(t, nil)

	req, _ := c.Move("T1", model.BucketDone)
	n := c.Resolve(req.Succeeded(model.Task{ID: "T9", Bucket: model.BucketDone}))
	require.NotNil(t, n)
	assert.Equal(t, model.BucketTodo, bucketOf(t, c, "T1"))
	_, ok := c.Store().Get("T9")
	assert.False(t, ok)
}

func TestMove_ContractErrors(t *testing.T) {
	c, hook := newTestController(t, nil)

	req, err := c.Move("nope", model.BucketDone)
	assert.Nil(t, req)
	var unknown UnknownTaskError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.ID)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	req, err = c.Move("T1", model.Bucket("BLOCKED"))
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrInvalidBucket)
	assert.Empty(t, c.PendingIDs())
}

func TestMove_AfterSettledUsesConfirmedBucketForRollback(t *testing.T) {
	c, _ := newTestController(t, nil)

	req, _ := c.Move("T1", model.BucketInProgress)
	c.Resolve(req.Succeeded(seedTasks()[0].WithBucket(model.BucketInProgress)))

	req, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)
	m, _ := c.Pending("T1")
	assert.Equal(t, model.BucketInProgress, m.PreviousBucket)

	c.Resolve(req.Failed(errors.New("nope")))
	assert.Equal(t, model.BucketInProgress, bucketOf(t, c, "T1"))
}

func TestMove_IndependentTasksResolveOutOfOrder(t *testing.T) {
	c, _ := newTestController(t, nil)

	r1, _ := c.Move("T1", model.BucketDone)
	r2, _ := c.Move("T2", model.BucketTodo)
	assert.Equal(t, []string{"T1", "T2"}, c.PendingIDs())

	c.Resolve(r2.Succeeded(seedTasks()[1].WithBucket(model.BucketTodo)))
	c.Resolve(r1.Failed(errors.New("nope")))

	assert.Equal(t, model.BucketTodo, bucketOf(t, c, "T1"))
	assert.Equal(t, model.BucketTodo, bucketOf(t, c, "T2"))
	assert.Empty(t, c.PendingIDs())
}

func TestResolve_DuplicateResultIgnored(t *testing.T) {
	c, _ := newTestController(t, nil)

	req, _ := c.Move("T1", model.BucketDone)
	c.Resolve(req.Succeeded(seedTasks()[0].WithBucket(model.BucketDone)))
	gen := c.Store().Generation()

	assert.Nil(t, c.Resolve(req.Failed(errors.New("late dup"))))
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
	assert.Equal(t, gen, c.Store().Generation())
}

func TestDispatch_UsesRemoteAndTimeout(t *testing.T) {
	remote := &stubRemote{updateFn: func(ctx context.Context, id string, b model.Bucket) (model.Task, error) {
		if _, ok := ctx.Deadline(); !ok {
			return model.Task{}, errors.New("expected deadline")
		}
		return model.Task{ID: id, Title: "Write docs", Bucket: b}, nil
	}}
	logger, _ := test.NewNullLogger()
	store := NewStore()
	store.Replace(seedTasks())
	c := NewController(store, remote, WithLogger(logger), WithTimeout(time.Second))

	req, err := c.Move("T1", model.BucketDone)
	require.NoError(t, err)
	res := c.Dispatch(context.Background(), *req)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"T1->DONE"}, remote.calls)

	c.Resolve(res)
	assert.Equal(t, model.BucketDone, bucketOf(t, c, "T1"))
}

func TestDispatch_TimeoutTakesFailurePath(t *testing.T) {
	remote := &stubRemote{updateFn: func(ctx context.Context, id string, b model.Bucket) (model.Task, error) {
		<-ctx.Done()
		return model.Task{}, ctx.Err()
	}}
	logger, _ := test.NewNullLogger()
	store := NewStore()
	store.Replace(seedTasks())
	c := NewController(store, remote, WithLogger(logger), WithTimeout(10*time.Millisecond))

	req, _ := c.Move("T1", model.BucketDone)
	res := c.Dispatch(context.Background(), *req)
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)

	require.NotNil(t, c.Resolve(res))
	assert.Equal(t, model.BucketTodo, bucketOf(t, c, "T1"))
	assert.False(t, c.IsPending("T1"))
}

func TestDispatch_NoRemote(t *testing.T) {
	c, _ := newTestController(t, nil)
	req, _ := c.Move("T1", model.BucketDone)
	res := c.Dispatch(context.Background(), *req)
	require.Error(t, res.Err)
}
