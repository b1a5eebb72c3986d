package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/model"
)

// Remote is the outbound collaborator that persists a bucket change. It returns
// the canonical task after the update.
type Remote interface {
	UpdateTaskBucket(ctx context.Context, id string, bucket model.Bucket) (model.Task, error)
}

// Request is a remote update to dispatch for a recorded mutation.
type Request struct {
	TaskID string
	Bucket model.Bucket
	Seq    uint64
}

// Result is the outcome of a dispatched Request.
type Result struct {
	Request
	Task model.Task
	Err  error
}

// Succeeded builds the success Result for r.
func (r Request) Succeeded(t model.Task) Result { return Result{Request: r, Task: t} }

// Failed builds the failure Result for r.
func (r Request) Failed(err error) Result {
	if err == nil {
		err = errors.New("update failed")
	}
	return Result{Request: r, Err: err}
}

type NoticeKind int

const (
	// NoticeMoveFailed: the remote rejected a move and the card was rolled back.
	NoticeMoveFailed NoticeKind = iota
	// NoticeTaskGone: the remote reported the task missing; the card was rolled back.
	NoticeTaskGone
)

// Notice is a transient, dismissible message for the UI.
type Notice struct {
	Kind    NoticeKind
	TaskID  string
	Title   string
	Message string
	Err     error
	At      time.Time
}

type Option func(*Controller)

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides time.Now (RequestedAt, Notice.At).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTimeout bounds each dispatched update. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Controller reconciles optimistic moves with the remote.
//
// All methods except Dispatch must be called from a single goroutine (the UI
// event loop). Dispatch only reads immutable configuration and may run anywhere;
// its Result has to be handed back to Resolve on the loop.
type Controller struct {
	store   *Store
	overlay *Overlay
	tracker *Tracker
	remote  Remote

	log     logrus.FieldLogger
	now     func() time.Time
	timeout time.Duration

	seq uint64
	// invalid remembers the last unknown status logged per task so a refresh
	// loop does not repeat the warning.
	invalid map[string]model.Bucket
}

func NewController(store *Store, remote Remote, opts ...Option) *Controller {
	if store == nil {
		store = NewStore()
	}
	c := &Controller{
		store:   store,
		overlay: NewOverlay(),
		tracker: NewTracker(),
		remote:  remote,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		invalid: map[string]model.Bucket{},
	}
	for _, opt := range opts {
		opt(c)
	}
	store.Subscribe(c.onReplace)
	return c
}

func (c *Controller) Store() *Store     { return c.store }
func (c *Controller) Tracker() *Tracker { return c.tracker }

// View is the collection to display.
func (c *Controller) View() Collection { return c.overlay.View(c.store.Snapshot()) }

// Bucket returns the displayed bucket for id.
func (c *Controller) Bucket(id string) (model.Bucket, bool) {
	t, ok := c.View().Get(id)
	if !ok {
		return "", false
	}
	return t.Bucket, true
}

func (c *Controller) IsPending(id string) bool { return c.tracker.IsPending(id) }
func (c *Controller) PendingIDs() []string     { return c.tracker.PendingIDs() }

// Pending returns the overlay mutation held for id, resolved or not.
func (c *Controller) Pending(id string) (PendingMutation, bool) { return c.overlay.Get(id) }

// Refresh replaces the store with tasks fetched starting at generation since.
func (c *Controller) Refresh(since uint64, tasks []model.Task) {
	c.store.ReplaceFetched(since, tasks)
}

func (c *Controller) onReplace(ev ReplaceEvent) {
	for _, m := range c.overlay.Prune(c.store.Snapshot(), ev.Since) {
		if !m.Resolved() {
			c.tracker.End(m.TaskID)
		}
		c.log.WithFields(logrus.Fields{
			"task":    m.TaskID,
			"seq":     m.Seq,
			"outcome": m.Outcome.String(),
			"gen":     ev.Generation,
		}).Info("task vanished from server state; dropping mutation")
	}
	c.warnInvalid(ev.Generation)
}

// warnInvalid logs tasks whose status is not a known bucket. They are kept in
// the store but no column shows them. Each (task, status) pair is logged once.
func (c *Controller) warnInvalid(gen uint64) {
	seen := make(map[string]struct{}, len(c.invalid))
	for _, t := range c.store.Snapshot().Tasks() {
		if t.Bucket.Valid() {
			continue
		}
		seen[t.ID] = struct{}{}
		if prev, ok := c.invalid[t.ID]; ok && prev == t.Bucket {
			continue
		}
		c.invalid[t.ID] = t.Bucket
		c.log.WithFields(logrus.Fields{
			"task":   t.ID,
			"status": string(t.Bucket),
			"gen":    gen,
		}).Warn("task has an unknown status; hiding it from the board")
	}
	for id := range c.invalid {
		if _, ok := seen[id]; !ok {
			delete(c.invalid, id)
		}
	}
}

// Move records an optimistic move of id into target and returns the request to
// dispatch. It returns (nil, nil) when the task already shows target.
//
// If id already has a mutation in flight, the new one supersedes it: the old
// request's result will be discarded, and rollback still targets the last
// confirmed bucket rather than the intermediate optimistic one.
func (c *Controller) Move(id string, target model.Bucket) (*Request, error) {
	log := c.log.WithFields(logrus.Fields{"task": id, "bucket": string(target)})

	if !target.Valid() {
		log.Warn("move ignored: invalid bucket")
		return nil, fmt.Errorf("%w: %q", ErrInvalidBucket, string(target))
	}
	cur, ok := c.Bucket(id)
	if !ok {
		log.Warn("move ignored: unknown task")
		return nil, UnknownTaskError{ID: id}
	}
	if cur == target {
		log.Debug("move ignored: task already in bucket")
		return nil, nil
	}

	confirmed := cur
	if prev, ok := c.overlay.Get(id); ok {
		if prev.Resolved() {
			confirmed = prev.Settled
		} else {
			confirmed = prev.PreviousBucket
			c.tracker.End(id)
			log.WithField("superseded_seq", prev.Seq).Debug("superseding in-flight move")
		}
	} else if t, ok := c.store.Get(id); ok {
		confirmed = t.Bucket
	}

	c.seq++
	m := PendingMutation{
		TaskID:         id,
		PreviousBucket: confirmed,
		TargetBucket:   target,
		RequestedAt:    c.now(),
		Seq:            c.seq,
		Generation:     c.store.Generation(),
	}
	c.overlay.Put(m)
	if err := c.tracker.Begin(id); err != nil {
		// Unreachable while every overlay change goes through the controller.
		log.WithError(err).Error("tracker out of sync")
	}
	log.WithFields(logrus.Fields{"seq": m.Seq, "from": string(confirmed), "gen": m.Generation}).Debug("move recorded")

	return &Request{TaskID: id, Bucket: target, Seq: m.Seq}, nil
}

// Dispatch performs the remote update for req and reports the outcome. It does
// not touch controller state.
func (c *Controller) Dispatch(ctx context.Context, req Request) Result {
	if c.remote == nil {
		return req.Failed(errors.New("no remote configured"))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	t, err := c.remote.UpdateTaskBucket(ctx, req.TaskID, req.Bucket)
	if err != nil {
		return req.Failed(err)
	}
	return req.Succeeded(t)
}

// Resolve applies a dispatched result. Results for superseded or dropped
// mutations are discarded. On failure the card is restored to its last confirmed
// bucket and a Notice is returned for the UI.
func (c *Controller) Resolve(res Result) *Notice {
	id := res.TaskID
	log := c.log.WithFields(logrus.Fields{"task": id, "seq": res.Seq})

	m, ok := c.overlay.Get(id)
	if !ok || m.Seq != res.Seq || m.Resolved() {
		log.Debug("discarding stale move result")
		return nil
	}

	if res.Err == nil && res.Task.ID != id {
		res.Err = fmt.Errorf("remote returned task %q for %q", res.Task.ID, id)
	}
	if res.Err == nil && !res.Task.Bucket.Valid() {
		res.Err = fmt.Errorf("%w: remote returned %q", ErrInvalidBucket, string(res.Task.Bucket))
	}

	c.tracker.End(id)

	if res.Err == nil {
		gen := c.store.Merge(res.Task)
		m.Outcome = OutcomeSucceeded
		m.Settled = res.Task.Bucket
		m.ResolvedGeneration = gen
		c.overlay.Put(m)
		log.WithFields(logrus.Fields{"bucket": string(m.Settled), "gen": gen}).Debug("move confirmed")
		return nil
	}

	t, exists := c.store.Get(id)
	if !exists {
		c.overlay.Delete(id)
		log.WithError(res.Err).Info("move failed for a task no longer in server state; discarding")
		return nil
	}

	m.Outcome = OutcomeFailed
	m.Settled = m.PreviousBucket
	m.ResolvedGeneration = c.store.Advance()
	c.overlay.Put(m)

	n := &Notice{
		Kind:   NoticeMoveFailed,
		TaskID: id,
		Title:  t.Title,
		Err:    res.Err,
		At:     c.now(),
	}
	if errors.Is(res.Err, ErrTaskNotFound) {
		n.Kind = NoticeTaskGone
		n.Message = fmt.Sprintf("%q no longer exists on the server", displayTitle(t))
	} else {
		n.Message = fmt.Sprintf("Could not move %q to %s: %v", displayTitle(t), m.TargetBucket.Label(), res.Err)
	}
	log.WithError(res.Err).WithField("bucket", string(m.Settled)).Warn("move failed; rolled back")
	return n
}

func displayTitle(t model.Task) string {
	if s := strings.TrimSpace(t.Title); s != "" {
		return s
	}
	return t.ID
}
