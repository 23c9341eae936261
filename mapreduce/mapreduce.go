/*
Package mapreduce runs jobs made of a map phase over the shards of a
dataset, a shuffle grouping the emitted values by key, and a reduce
phase over every group, spreading the work of each phase over a pool
of workers consuming from a queue.
*/
package mapreduce

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/queue"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const defaultEmptyQueueSleep = 10 * time.Millisecond

// KeyValue is a pair emitted by a mapper or a reducer
type KeyValue struct {
	Key   string
	Value string
}

// Emitter receives the pairs produced by a mapper or a reducer
type Emitter func(key, value string) error

// Mapper processes a single record of the input of a job
type Mapper interface {
	Map(ctx context.Context, record string, emit Emitter) error
}

// MapperFunc adapts a function into a Mapper
type MapperFunc func(ctx context.Context, record string, emit Emitter) error

// Map calls the function
func (mf MapperFunc) Map(ctx context.Context, record string, emit Emitter) error {
	return mf(ctx, record, emit)
}

// Reducer processes all the values emitted for a key
type Reducer interface {
	Reduce(ctx context.Context, key string, values []string, emit Emitter) error
}

// ReducerFunc adapts a function into a Reducer
type ReducerFunc func(ctx context.Context, key string, values []string, emit Emitter) error

// Reduce calls the function
func (rf ReducerFunc) Reduce(ctx context.Context, key string, values []string, emit Emitter) error {
	return rf(ctx, key, values, emit)
}

/*
Job describes the work to run over an input dataset. A job without a
Reducer is a map-only job whose output is the output of its mappers.
*/
type Job struct {
	Name    string
	Input   dataset.Dataset
	Mapper  Mapper
	Reducer Reducer
}

/*
Runner executes jobs with a fixed number of workers. A Runner holds
no state between jobs, so the same one can be used for every job of
a build.
*/
type Runner struct {
	Workers         int
	Logger          logrus.FieldLogger
	EmptyQueueSleep time.Duration
}

/*
NewRunner takes the number of workers and a logger and returns a
Runner. A non-positive number of workers means a single worker.
*/
func NewRunner(workers int, logger logrus.FieldLogger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{Workers: workers, Logger: logger, EmptyQueueSleep: defaultEmptyQueueSleep}
}

/*
Run takes a context and a job and runs it, returning the pairs emitted
by its reducer ordered by key, or the pairs emitted by its mappers in
shard order for map-only jobs.

Values of a key reach the reducer in shard order, and in record order
within a shard. The first error from any mapper or reducer aborts the
job and is returned.
*/
func (r *Runner) Run(ctx context.Context, job Job) ([]KeyValue, error) {
	log := r.logger().WithField("job", job.Name)
	shards, err := job.Input.Shards(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "job %s: listing input shards", job.Name)
	}
	start := time.Now()
	mapOutputs := make([][]KeyValue, len(shards))
	tasks := make([]*queue.Task, 0, len(shards))
	for i, s := range shards {
		i, s := i, s
		tasks = append(tasks, &queue.Task{
			Name: fmt.Sprintf("%s/map-%05d", job.Name, i),
			Run: func(ctx context.Context) error {
				var out []KeyValue
				emit := func(k, v string) error {
					out = append(out, KeyValue{k, v})
					return nil
				}
				err := s.Scan(ctx, func(record string) error {
					return job.Mapper.Map(ctx, record, emit)
				})
				if err != nil {
					return errors.Wrapf(err, "mapping shard %s", s.Name())
				}
				mapOutputs[i] = out
				return nil
			},
		})
	}
	if err = r.execute(ctx, tasks); err != nil {
		return nil, errors.Wrapf(err, "job %s", job.Name)
	}
	log.WithFields(logrus.Fields{"shards": len(shards), "elapsed": time.Since(start)}).Debug("map phase done")
	if job.Reducer == nil {
		var result []KeyValue
		for _, out := range mapOutputs {
			result = append(result, out...)
		}
		return result, nil
	}
	groups := make(map[string][]string)
	for _, out := range mapOutputs {
		for _, kv := range out {
			groups[kv.Key] = append(groups[kv.Key], kv.Value)
		}
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start = time.Now()
	reduceOutputs := make([][]KeyValue, len(keys))
	tasks = make([]*queue.Task, 0, len(keys))
	for i, k := range keys {
		i, k := i, k
		tasks = append(tasks, &queue.Task{
			Name: fmt.Sprintf("%s/reduce-%07d", job.Name, i),
			Run: func(ctx context.Context) error {
				var out []KeyValue
				emit := func(k, v string) error {
					out = append(out, KeyValue{k, v})
					return nil
				}
				if err := job.Reducer.Reduce(ctx, k, groups[k], emit); err != nil {
					return errors.Wrapf(err, "reducing key %q", k)
				}
				reduceOutputs[i] = out
				return nil
			},
		})
	}
	if err = r.execute(ctx, tasks); err != nil {
		return nil, errors.Wrapf(err, "job %s", job.Name)
	}
	log.WithFields(logrus.Fields{"keys": len(keys), "elapsed": time.Since(start)}).Debug("reduce phase done")
	var result []KeyValue
	for _, out := range reduceOutputs {
		result = append(result, out...)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

/*
Filter takes a context, an input dataset, a storage, a name and a keep
function and runs a map-only job writing the records of the input for
which keep returns true into a new dataset with the given name on the
storage, one shard per input shard. It returns the new dataset.
*/
func (r *Runner) Filter(ctx context.Context, input dataset.Dataset, storage dataset.Storage, name string, keep func(context.Context, string) (bool, error)) (dataset.Dataset, error) {
	shards, err := input.Shards(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "filter %s: listing input shards", name)
	}
	if len(shards) == 0 {
		w, err := storage.Create(ctx, name, "part-00000")
		if err != nil {
			return nil, err
		}
		if err = w.Close(); err != nil {
			return nil, err
		}
	}
	tasks := make([]*queue.Task, 0, len(shards))
	for i, s := range shards {
		i, s := i, s
		tasks = append(tasks, &queue.Task{
			Name: fmt.Sprintf("%s/filter-%05d", name, i),
			Run: func(ctx context.Context) (err error) {
				w, err := storage.Create(ctx, name, fmt.Sprintf("part-%05d", i))
				if err != nil {
					return err
				}
				defer func() {
					err = multierr.Append(err, w.Close())
				}()
				return s.Scan(ctx, func(record string) error {
					ok, err := keep(ctx, record)
					if err != nil || !ok {
						return err
					}
					return w.Write(record)
				})
			},
		})
	}
	if err = r.execute(ctx, tasks); err != nil {
		return nil, errors.Wrapf(err, "filter %s", name)
	}
	r.logger().WithFields(logrus.Fields{"dataset": name, "shards": len(shards)}).Debug("filter done")
	return storage.Open(ctx, name)
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

func (r *Runner) execute(ctx context.Context, tasks []*queue.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	q := queue.New()
	defer q.Stop(context.Background())
	for _, t := range tasks {
		if err := q.Push(ctx, t); err != nil {
			return err
		}
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	sleep := r.EmptyQueueSleep
	if sleep <= 0 {
		sleep = defaultEmptyQueueSleep
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return queue.Work(gctx, q, sleep)
		})
	}
	return g.Wait()
}
