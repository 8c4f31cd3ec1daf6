package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work with its retry bookkeeping.
type Task struct {
	ID       string
	Kind     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// TaskFunc processes a single task.
type TaskFunc func(context.Context, Task) error

// PoolConfig tunes the worker pool.
type PoolConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Pool is an in-memory task dispatcher. Tasks are processed by a fixed set
// of workers; failed tasks are retried with a delay that grows per attempt.
type Pool struct {
	name string
	fn   TaskFunc
	cfg  PoolConfig

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewPool builds a pool for the given task handler.
func NewPool(name string, fn TaskFunc, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{
		name:  name,
		fn:    fn,
		cfg:   cfg,
		tasks: make(chan Task, cfg.BufferSize),
	}
}

// Start launches the workers. Calling Start on a running pool is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	p.running = true
	p.cfg.Logger.Sugar().Infow("worker pool started", "pool", p.name, "workers", p.cfg.Workers)
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()
	p.wg.Wait()
	p.cfg.Logger.Sugar().Infow("worker pool stopped", "pool", p.name)
}

// Depth reports how many tasks are currently buffered.
func (p *Pool) Depth() int {
	return len(p.tasks)
}

// TrySubmit offers a task without blocking. It returns false when the pool
// is not running or the buffer is full, leaving backpressure decisions to
// the caller.
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return false
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			if err := p.fn(p.ctx, task); err != nil {
				p.retry(task, err)
			}
		}
	}
}

func (p *Pool) retry(task Task, err error) {
	task.Attempt++
	log := p.cfg.Logger.Sugar()
	if task.Attempt > p.cfg.MaxRetries {
		log.Errorw("task abandoned after retries", "pool", p.name, "task_id", task.ID, "kind", task.Kind, "error", err)
		return
	}
	log.Warnw("task failed", "pool", p.name, "task_id", task.ID, "kind", task.Kind, "attempt", task.Attempt, "error", err)

	delay := p.cfg.RetryDelay * time.Duration(task.Attempt)
	go func(t Task) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-p.ctx.Done():
		case <-timer.C:
			if !p.TrySubmit(t) {
				log.Errorw("task requeue failed", "pool", p.name, "task_id", t.ID)
			}
		}
	}(task)
}
