package queue

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Queue represents a queue where the tasks of a job
// can be pushed and pulled. The idea is a worker will
// use the Pull method to obtain a task. It will run
// it and will then either complete it or drop it.
//
// All its methods have a context.Context as first
// parameter that implementations may use to allow
// timeouts and cancellations on the Queue operations.
type Queue interface {
	// Push takes a task and stores it in the queue or
	// returns an error. The task will count as pending.
	Push(context.Context, *Task) error
	// Pull returns a task and a context that is cancelled
	// when the queue is stopped, or an error.
	// The pulled task will be counted as running from
	// then on.
	// If there are no tasks to pull, implementations
	// should not return an error, but 3 nil values.
	Pull(context.Context) (*Task, context.Context, error)
	// Drop takes the ID for a running task and removes
	// it from the queue without completing it.
	Drop(context.Context, string) error
	// Complete takes the ID for a task. Implementations
	// should remove the task from the running state.
	Complete(context.Context, string) error
	// Count returns the number of
	// pending and running tasks in the queue
	// or an error
	Count(context.Context) (int, int, error)
	// Stops the queue. Implementations should use the
	// call to free resources and cancel pulled
	// contexts.
	Stop(context.Context) error
}

// Work takes a context, a queue and an emptyQueueSleep
// duration and enters a loop in which it:
//   - pulls a task from the queue,
//   - runs it,
//   - marks the task as completed on the queue
//
// If at some point no task can be pulled from the queue and
// the sum of tasks running and pending on the queue is 0, the
// worker ends returning nil. If no task can be pulled but the
// sum is not 0, then the worker will sleep for the given
// emptyQueueSleep duration and then retry, as running tasks
// may still push new ones.
//
// A task that fails is dropped and its error returned, ending
// the worker. Work will also return a non-nil error if the given
// context times out or is cancelled, or if an operation with the
// given queue returns a non-nil error.
func Work(ctx context.Context, q Queue, emptyQueueSleep time.Duration) error {
	for {
		task, tctx, err := q.Pull(ctx)
		if err != nil {
			return err
		}
		if task == nil {
			p, r, err := q.Count(ctx)
			if err != nil {
				return err
			}
			if r+p == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emptyQueueSleep):
			}
			continue
		}
		mctx, cancel := mergeCtxCancel(tctx, ctx)
		err = task.Run(mctx)
		cancel()
		if err != nil {
			err = errors.Wrapf(err, "running task %s", task.ID())
			return multierr.Append(err, q.Drop(ctx, task.ID()))
		}
		if err = q.Complete(ctx, task.ID()); err != nil {
			return err
		}
		if err = ctx.Err(); err != nil {
			return err
		}
	}
}

func mergeCtxCancel(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-mctx.Done():
		case <-ctx2.Done():
			cancel()
		}
	}()
	return mctx, cancel
}
