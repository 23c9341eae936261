package queue

import (
	"context"
	"fmt"
)

// Task represents a unit of work of a job, such as
// mapping a shard of a dataset or reducing the values
// for a key.
type Task struct {
	// Name identifies the task within its queue
	Name string
	// Run performs the work of the task
	Run func(context.Context) error
}

// ID returns a string that identifies the
// task, its Name.
func (t *Task) ID() string {
	return t.Name
}

func (t *Task) String() string {
	return fmt.Sprintf("{Task %s}", t.Name)
}
