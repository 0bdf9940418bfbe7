// Package worker runs background tasks in-process with retries.
//
// Delivery is at-least-once while the process lives: a task whose handler
// fails is re-enqueued with exponential backoff until it succeeds, is marked
// Permanent, or runs out of attempts. Tasks that give up are handed to a
// DeadLetter sink.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome of a single task attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetry     Outcome = "retry"
	OutcomeDead      Outcome = "dead"
)

// Task is a unit of background work.
type Task struct {
	ID      uuid.UUID
	Type    string
	UserID  int64
	Dir     string
	Attempt int
}

// Handler processes one task type.
type Handler func(ctx context.Context, task Task) error

// Recorder observes attempt outcomes.
type Recorder interface {
	ObserveTask(taskType string, outcome string)
}

// DeadLetter receives tasks that will not be retried again.
type DeadLetter interface {
	Dead(ctx context.Context, task Task, err error)
}

// Config controls worker count and retry behavior.
type Config struct {
	Workers       int
	QueueSize     int
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
}

const (
	defaultWorkers       = 2
	defaultQueueSize     = 128
	defaultMaxAttempts   = 5
	defaultRetryBackoff  = time.Second
	defaultRetryMaxDelay = time.Minute
)

func (c Config) normalized() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	if c.RetryMaxDelay < c.RetryBackoff {
		c.RetryMaxDelay = c.RetryBackoff
	}
	return c
}

// Option customizes a Queue.
type Option func(*Queue)

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(q *Queue) { q.recorder = r }
}

// WithDeadLetter replaces the default logging sink.
func WithDeadLetter(d DeadLetter) Option {
	return func(q *Queue) { q.dead = d }
}

// Queue dispatches tasks to handlers on a fixed pool of workers.
// Register handlers with Handle before calling Run.
type Queue struct {
	cfg      Config
	log      *zap.Logger
	handlers map[string]Handler
	recorder Recorder
	dead     DeadLetter

	mu      sync.RWMutex
	closed  bool
	tasks   chan Task
	closing chan struct{}
	timers  sync.WaitGroup
}

// New creates a queue. It does not start any workers.
func New(cfg Config, log *zap.Logger, opts ...Option) *Queue {
	cfg = cfg.normalized()
	q := &Queue{
		cfg:      cfg,
		log:      log,
		handlers: make(map[string]Handler),
		tasks:    make(chan Task, cfg.QueueSize),
		closing:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.dead == nil {
		q.dead = LogDeadLetter{Log: log}
	}
	return q
}

// Handle registers h for taskType.
func (q *Queue) Handle(taskType string, h Handler) {
	q.handlers[taskType] = h
}

// Enqueue schedules a task without blocking. A zero ID is filled in.
func (q *Queue) Enqueue(task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return q.push(task)
}

func (q *Queue) push(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks. Workers finish what is already queued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.closing)
	close(q.tasks)
}

// Run processes tasks until ctx is cancelled or Close is called, then drains
// the buffered tasks and returns.
func (q *Queue) Run(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-ctx.Done():
			q.Close()
		case <-q.closing:
		}
		return nil
	})

	workCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		g.Go(func() error {
			for task := range q.tasks {
				q.process(workCtx, task)
			}
			return nil
		})
	}

	q.log.Info("job queue started", zap.Int("workers", q.cfg.Workers))
	err := g.Wait()
	q.timers.Wait()
	q.log.Info("job queue stopped")
	return err
}

func (q *Queue) process(ctx context.Context, task Task) {
	task.Attempt++
	log := q.log.With(
		zap.String("task_id", task.ID.String()),
		zap.String("task_type", task.Type),
		zap.Int64("user_id", task.UserID),
		zap.Int("attempt", task.Attempt),
	)

	handler, ok := q.handlers[task.Type]
	if !ok {
		q.giveUp(ctx, task, Permanent(fmt.Errorf("no handler for task type %q", task.Type)))
		return
	}

	err := call(ctx, handler, task)
	switch {
	case err == nil:
		log.Debug("task succeeded")
		q.observe(task.Type, OutcomeSucceeded)
	case IsPermanent(err) || task.Attempt >= q.cfg.MaxAttempts:
		q.giveUp(ctx, task, err)
	default:
		delay := q.backoff(task.Attempt)
		log.Warn("task failed, retrying", zap.Error(err), zap.Duration("delay", delay))
		q.observe(task.Type, OutcomeRetry)
		q.retryAfter(ctx, task, delay)
	}
}

func (q *Queue) retryAfter(ctx context.Context, task Task, delay time.Duration) {
	q.timers.Add(1)
	timer := time.NewTimer(delay)
	go func() {
		defer q.timers.Done()
		select {
		case <-timer.C:
		case <-q.closing:
			timer.Stop()
			q.giveUp(ctx, task, ErrQueueClosed)
			return
		}
		if err := q.push(task); err != nil {
			q.giveUp(ctx, task, err)
		}
	}()
}

func (q *Queue) giveUp(ctx context.Context, task Task, err error) {
	q.observe(task.Type, OutcomeDead)
	q.dead.Dead(ctx, task, err)
}

// backoff doubles RetryBackoff per attempt, capped at RetryMaxDelay.
func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= q.cfg.RetryMaxDelay {
			return q.cfg.RetryMaxDelay
		}
	}
	return delay
}

func (q *Queue) observe(taskType string, outcome Outcome) {
	if q.recorder != nil {
		q.recorder.ObserveTask(taskType, string(outcome))
	}
}

func call(ctx context.Context, h Handler, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return h(ctx, task)
}

// LogDeadLetter logs dead tasks at error level.
type LogDeadLetter struct {
	Log *zap.Logger
}

func (d LogDeadLetter) Dead(_ context.Context, task Task, err error) {
	d.Log.Error("task dead-lettered",
		zap.String("task_id", task.ID.String()),
		zap.String("task_type", task.Type),
		zap.Int64("user_id", task.UserID),
		zap.String("dir", task.Dir),
		zap.Int("attempts", task.Attempt),
		zap.Error(err),
	)
}
