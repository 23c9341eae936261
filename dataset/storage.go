package dataset

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

/*
Writer receives the records of a shard being written. Records written
to it become readable once it has been closed.
*/
type Writer interface {
	Write(record string) error
	Close() error
}

/*
Storage is a path-addressable place where intermediate datasets are
written shard by shard and read back afterwards.

Its Create method returns a Writer for the given shard of the dataset
with the given name.

Its Open method returns the dataset with the given name, made of the
shards that have been written and closed for it.

Its Remove method deletes the dataset with the given name.
*/
type Storage interface {
	Create(ctx context.Context, name, shard string) (Writer, error)
	Open(ctx context.Context, name string) (Dataset, error)
	Remove(ctx context.Context, name string) error
}

type memoryStorage struct {
	lock     sync.Mutex
	datasets map[string]map[string][]string
}

// NewMemoryStorage returns a Storage backed by the process memory
func NewMemoryStorage() Storage {
	return &memoryStorage{datasets: make(map[string]map[string][]string)}
}

func (ms *memoryStorage) Create(ctx context.Context, name, shard string) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{storage: ms, name: name, shard: shard}, nil
}

func (ms *memoryStorage) Open(ctx context.Context, name string) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ds, ok := ms.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q not found in storage", name)
	}
	names := make([]string, 0, len(ds))
	for n := range ds {
		names = append(names, n)
	}
	sort.Strings(names)
	shards := make([]Shard, 0, len(names))
	for _, n := range names {
		shards = append(shards, &memoryShard{name: n, records: ds[n]})
	}
	return staticDataset(shards), nil
}

func (ms *memoryStorage) Remove(ctx context.Context, name string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	delete(ms.datasets, name)
	return nil
}

type memoryWriter struct {
	storage *memoryStorage
	name    string
	shard   string
	records []string
	closed  bool
}

func (mw *memoryWriter) Write(record string) error {
	if mw.closed {
		return fmt.Errorf("writing to closed shard %s/%s", mw.name, mw.shard)
	}
	mw.records = append(mw.records, record)
	return nil
}

func (mw *memoryWriter) Close() error {
	if mw.closed {
		return nil
	}
	mw.closed = true
	mw.storage.lock.Lock()
	defer mw.storage.lock.Unlock()
	ds, ok := mw.storage.datasets[mw.name]
	if !ok {
		ds = make(map[string][]string)
		mw.storage.datasets[mw.name] = ds
	}
	ds[mw.shard] = mw.records
	return nil
}

type dirStorage struct {
	root string
}

/*
NewDirStorage takes the path to a directory and returns a Storage that
keeps each dataset as a subdirectory of it with a file per shard.
*/
func NewDirStorage(root string) Storage {
	return &dirStorage{root}
}

func (ds *dirStorage) Create(ctx context.Context, name, shard string) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(ds.root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating dataset directory %s", dir)
	}
	path := filepath.Join(dir, shard)
	tmp := filepath.Join(dir, "_"+shard)
	f, err := os.Create(tmp)
	if err != nil {
		return nil, errors.Wrapf(err, "creating shard %s", path)
	}
	return &fileWriter{file: f, w: bufio.NewWriter(f), tmp: tmp, path: path}, nil
}

func (ds *dirStorage) Open(ctx context.Context, name string) (Dataset, error) {
	dir := filepath.Join(ds.root, name)
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(err, "opening dataset %q", name)
	}
	return Dir(dir), nil
}

func (ds *dirStorage) Remove(ctx context.Context, name string) error {
	return errors.Wrapf(os.RemoveAll(filepath.Join(ds.root, name)), "removing dataset %q", name)
}

type fileWriter struct {
	file *os.File
	w    *bufio.Writer
	tmp  string
	path string
}

func (fw *fileWriter) Write(record string) error {
	if _, err := fw.w.WriteString(record); err != nil {
		return err
	}
	return fw.w.WriteByte('\n')
}

// Close flushes the shard and moves it into place so that only
// complete shards are ever listed.
func (fw *fileWriter) Close() error {
	err := multierr.Combine(fw.w.Flush(), fw.file.Close())
	if err != nil {
		return errors.Wrapf(err, "closing shard %s", fw.path)
	}
	return errors.Wrapf(os.Rename(fw.tmp, fw.path), "publishing shard %s", fw.path)
}

func shardName(i int) string {
	return fmt.Sprintf("part-%05d", i)
}
