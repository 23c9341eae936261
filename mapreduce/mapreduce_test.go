package mapreduce

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordCount(t *testing.T, workers int) []KeyValue {
	logger, _ := test.NewNullLogger()
	r := NewRunner(workers, logger)
	out, err := r.Run(context.Background(), Job{
		Name:  "word-count",
		Input: dataset.Lines([]string{"b a", "c a", "", "a b"}, 3),
		Mapper: MapperFunc(func(ctx context.Context, record string, emit Emitter) error {
			for _, w := range strings.Fields(record) {
				if err := emit(w, "1"); err != nil {
					return err
				}
			}
			return nil
		}),
		Reducer: ReducerFunc(func(ctx context.Context, key string, values []string, emit Emitter) error {
			return emit(key, strconv.Itoa(len(values)))
		}),
	})
	require.NoError(t, err)
	return out
}

func TestRun(t *testing.T) {
	expected := []KeyValue{{"a", "3"}, {"b", "2"}, {"c", "1"}}
	for _, workers := range []int{0, 1, 4, 16} {
		assert.Equal(t, expected, wordCount(t, workers), "%d workers", workers)
	}
}

func TestRunKeepsShardOrderWithinKeys(t *testing.T) {
	r := NewRunner(4, nil)
	var records []string
	for i := 0; i < 100; i++ {
		records = append(records, strconv.Itoa(i))
	}
	out, err := r.Run(context.Background(), Job{
		Name:  "order",
		Input: dataset.Lines(records, 7),
		Mapper: MapperFunc(func(ctx context.Context, record string, emit Emitter) error {
			return emit("all", record)
		}),
		Reducer: ReducerFunc(func(ctx context.Context, key string, values []string, emit Emitter) error {
			return emit(key, strings.Join(values, ","))
		}),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, strings.Join(records, ","), out[0].Value)
}

func TestMapOnly(t *testing.T) {
	r := NewRunner(2, nil)
	out, err := r.Run(context.Background(), Job{
		Name:  "upper",
		Input: dataset.Lines([]string{"a", "b", "c"}, 2),
		Mapper: MapperFunc(func(ctx context.Context, record string, emit Emitter) error {
			return emit(record, strings.ToUpper(record))
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, []KeyValue{{"a", "A"}, {"b", "B"}, {"c", "C"}}, out)
}

func TestRunFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	boom := errors.New("boom")
	r := NewRunner(3, logger)
	_, err := r.Run(context.Background(), Job{
		Name:  "failing",
		Input: dataset.Lines([]string{"a", "b", "c"}, 3),
		Mapper: MapperFunc(func(ctx context.Context, record string, emit Emitter) error {
			return emit(record, record)
		}),
		Reducer: ReducerFunc(func(ctx context.Context, key string, values []string, emit Emitter) error {
			if key == "b" {
				return boom
			}
			return emit(key, values[0])
		}),
	})
	assert.Equal(t, boom, errors.Cause(err))
	assert.Contains(t, err.Error(), "failing")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failing", hook.LastEntry().Data["job"])
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	storage := dataset.NewMemoryStorage()
	r := NewRunner(2, nil)
	filtered, err := r.Filter(ctx, dataset.Lines([]string{"1", "2", "3", "4", "5"}, 2), storage, "odd", func(ctx context.Context, record string) (bool, error) {
		n, err := strconv.Atoi(record)
		return n%2 == 1, err
	})
	require.NoError(t, err)
	out, err := r.Run(ctx, Job{
		Name:  "collect",
		Input: filtered,
		Mapper: MapperFunc(func(ctx context.Context, record string, emit Emitter) error {
			return emit(record, record)
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, []KeyValue{{"1", "1"}, {"3", "3"}, {"5", "5"}}, out)

	empty, err := r.Filter(ctx, dataset.Lines(nil, 1), storage, "empty", func(context.Context, string) (bool, error) { return true, nil })
	require.NoError(t, err)
	n, err := dataset.Count(ctx, empty)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = r.Filter(ctx, dataset.Lines([]string{"x"}, 1), storage, "bad", func(ctx context.Context, record string) (bool, error) {
		_, err := strconv.Atoi(record)
		return false, err
	})
	assert.Error(t, err)
}
