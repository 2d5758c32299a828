package execx

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned for submissions made after Close.
var ErrQueueClosed = errors.New("execx: queue closed")

// Queue is the non-blocking Runner. A single worker goroutine drains
// submissions in FIFO order, so two commands are never live against the same
// environment at once. Run is a suspension point: the calling goroutine
// parks on the reply channel while other goroutines keep the scheduler busy.
type Queue struct {
	delegate Runner

	mu     sync.Mutex
	jobs   chan queueJob
	closed bool

	done sync.WaitGroup
}

type queueJob struct {
	ctx   context.Context
	cmd   Command
	opts  RunOptions
	reply chan Result
}

// NewQueue starts a Queue whose worker executes through delegate. A nil
// delegate uses Local. Buffer sets how many submissions may wait without
// blocking Submit.
func NewQueue(delegate Runner, buffer int) *Queue {
	if delegate == nil {
		delegate = Local{}
	}
	if buffer < 0 {
		buffer = 0
	}

	q := &Queue{
		delegate: delegate,
		jobs:     make(chan queueJob, buffer),
	}
	q.done.Add(1)
	go q.work()
	return q
}

func (q *Queue) work() {
	defer q.done.Done()
	for job := range q.jobs {
		if err := job.ctx.Err(); err != nil {
			// Abandoned while queued; the process was never launched.
			job.reply <- Result{Output: err.Error(), ExitCode: -1, Err: err}
			continue
		}
		job.reply <- q.delegate.Run(job.ctx, job.cmd, job.opts)
	}
}

// Submit enqueues cmd and returns a channel that yields its Result once the
// worker reaches it. The channel is buffered, so the result is delivered
// even if the caller stops listening.
func (q *Queue) Submit(ctx context.Context, cmd Command, opts RunOptions) <-chan Result {
	reply := make(chan Result, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		reply <- Result{Output: ErrQueueClosed.Error(), ExitCode: -1, Err: ErrQueueClosed}
		return reply
	}
	// Held across the send so Close cannot close the channel under us. The
	// worker never takes the lock, so a full buffer still drains.
	q.jobs <- queueJob{ctx: ctx, cmd: cmd, opts: opts, reply: reply}
	q.mu.Unlock()

	return reply
}

// Run submits cmd and suspends until its result arrives or ctx is cancelled.
// A command already launched by the worker runs to completion regardless;
// cancellation here only abandons waiting.
func (q *Queue) Run(ctx context.Context, cmd Command, opts RunOptions) Result {
	reply := q.Submit(ctx, cmd, opts)
	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return Result{Output: ctx.Err().Error(), ExitCode: -1, Err: ctx.Err()}
	}
}

// Close stops accepting submissions and waits for queued work to drain.
// Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.done.Wait()
}
