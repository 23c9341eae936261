/*
Package dataset provides the sharded, line oriented record sources trees
are grown from, and the storages where the datasets derived from them
while growing are written.

Every record is a row of comma separated tokens, one per field.
*/
package dataset

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const maxRecordSize = 16 * 1024 * 1024

/*
Dataset represents a collection of records split into shards that
can be processed independently of each other.

Its Shards method returns the shards of the dataset in a stable order.
*/
type Dataset interface {
	Shards(context.Context) ([]Shard, error)
}

/*
Shard is a portion of a Dataset that can be read sequentially.

Its Name method returns a name that identifies the shard within its
dataset.

Its Scan method calls the given function with every record in the
shard, in order. Scanning stops at the first error returned by the
function, which is then returned by Scan.
*/
type Shard interface {
	Name() string
	Scan(context.Context, func(string) error) error
}

/*
Files takes a list of paths to files with one record per line and
returns a Dataset with a shard for each file.
*/
func Files(paths ...string) Dataset {
	shards := make([]Shard, 0, len(paths))
	for _, p := range paths {
		shards = append(shards, &fileShard{p})
	}
	return staticDataset(shards)
}

/*
Dir takes the path to a directory and returns a Dataset with a shard
for each regular file in it whose name does not start with a dot or
an underscore. Shards are listed in lexical order of their names.
*/
func Dir(path string) Dataset {
	return &dirDataset{path}
}

/*
Lines takes a slice of records and a number of shards and returns a
Dataset holding the records in memory, spread over the given number of
shards in contiguous blocks.
*/
func Lines(records []string, shards int) Dataset {
	if shards < 1 {
		shards = 1
	}
	size := (len(records) + shards - 1) / shards
	if size == 0 {
		size = 1
	}
	var result []Shard
	for i := 0; i < len(records); i += size {
		end := i + size
		if end > len(records) {
			end = len(records)
		}
		result = append(result, &memoryShard{name: shardName(len(result)), records: records[i:end]})
	}
	return staticDataset(result)
}

/*
Count takes a Dataset and returns the number of records in it.
*/
func Count(ctx context.Context, ds Dataset) (int64, error) {
	shards, err := ds.Shards(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, s := range shards {
		err = s.Scan(ctx, func(string) error {
			n++
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return n, nil
}

type staticDataset []Shard

func (sd staticDataset) Shards(ctx context.Context) ([]Shard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Shard(sd), nil
}

type dirDataset struct {
	path string
}

func (dd *dirDataset) Shards(ctx context.Context) ([]Shard, error) {
	entries, err := os.ReadDir(dd.path)
	if err != nil {
		return nil, errors.Wrapf(err, "listing shards in %s", dd.path)
	}
	var shards []Shard
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name[0] == '.' || name[0] == '_' {
			continue
		}
		shards = append(shards, &fileShard{filepath.Join(dd.path, name)})
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].Name() < shards[j].Name() })
	return shards, nil
}

type fileShard struct {
	path string
}

func (fs *fileShard) Name() string {
	return filepath.Base(fs.path)
}

func (fs *fileShard) Scan(ctx context.Context, f func(string) error) (err error) {
	file, err := os.Open(fs.path)
	if err != nil {
		return errors.Wrapf(err, "opening shard %s", fs.path)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)
	for scanner.Scan() {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = f(scanner.Text()); err != nil {
			return err
		}
	}
	if err = scanner.Err(); err != nil {
		return errors.Wrapf(err, "reading shard %s", fs.path)
	}
	return nil
}

type memoryShard struct {
	name    string
	records []string
}

func (ms *memoryShard) Name() string {
	return ms.name
}

func (ms *memoryShard) Scan(ctx context.Context, f func(string) error) error {
	for _, r := range ms.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(r); err != nil {
			return err
		}
	}
	return nil
}
