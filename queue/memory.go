package queue

import (
	"container/list"
	"context"
	"fmt"
)

// memQueue keeps pending tasks in a FIFO list and running ones by ID.
// Its lock is a one-slot channel so that waiting for it can be abandoned
// when the context of an operation is done.
type memQueue struct {
	pending *list.List
	running map[string]*Task
	sem     chan struct{}
	ctx     context.Context
	stop    context.CancelFunc
}

// New returns a queue backed only by the process memory
func New() Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &memQueue{
		pending: list.New(),
		running: make(map[string]*Task),
		sem:     make(chan struct{}, 1),
		ctx:     ctx,
		stop:    cancel,
	}
}

func (mq *memQueue) Push(ctx context.Context, t *Task) error {
	return mq.locked(ctx, func() error {
		if _, ok := mq.running[t.ID()]; ok {
			return fmt.Errorf("task %s is already running", t.ID())
		}
		mq.pending.PushBack(t)
		return nil
	})
}

func (mq *memQueue) Pull(ctx context.Context) (*Task, context.Context, error) {
	var task *Task
	err := mq.locked(ctx, func() error {
		front := mq.pending.Front()
		if front == nil {
			return nil
		}
		task = mq.pending.Remove(front).(*Task)
		mq.running[task.ID()] = task
		return nil
	})
	if err != nil || task == nil {
		return nil, nil, err
	}
	return task, mq.ctx, nil
}

func (mq *memQueue) Drop(ctx context.Context, id string) error {
	return mq.locked(ctx, func() error {
		delete(mq.running, id)
		return nil
	})
}

func (mq *memQueue) Complete(ctx context.Context, id string) error {
	return mq.locked(ctx, func() error {
		if _, ok := mq.running[id]; !ok {
			return fmt.Errorf("completing task %s: not running", id)
		}
		delete(mq.running, id)
		return nil
	})
}

func (mq *memQueue) Count(ctx context.Context) (pending int, running int, err error) {
	err = mq.locked(ctx, func() error {
		pending = mq.pending.Len()
		running = len(mq.running)
		return nil
	})
	return
}

func (mq *memQueue) Stop(ctx context.Context) error {
	mq.stop()
	return nil
}

func (mq *memQueue) String() string {
	pending, running, _ := mq.Count(context.Background())
	return fmt.Sprintf("{Queue pending: %d running: %d}", pending, running)
}

func (mq *memQueue) locked(ctx context.Context, f func() error) error {
	select {
	case mq.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-mq.sem }()
	return f()
}
