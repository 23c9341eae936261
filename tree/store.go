package tree

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

/*
ErrNoSnapshot is returned when loading from a store to which no tree
has been published yet.
*/
var ErrNoSnapshot = errors.New("no tree snapshot published")

/*
Store is an interface to manage the place where snapshots of a growing
tree are published by its only writer and loaded by its readers.

All its methods take a context that may allow
cancelling the operation (thus forcing the return
of an error) if the implementation allows it.
*/
type Store interface {
	// Publish takes a tree and stores a full snapshot of
	// it, replacing the previous one. It returns an error
	// if the snapshot cannot be stored.
	Publish(ctx context.Context, t *Tree) error
	// Load returns a copy of the last published snapshot,
	// independent from the published tree and from other
	// loaded copies, ErrNoSnapshot if none was published,
	// or another error if it cannot be retrieved.
	Load(ctx context.Context) (*Tree, error)
	// Close closes the store, implementations should
	// free any resources in use before returning (unless
	// the context expires).
	Close(ctx context.Context) error
}

/*
Codec is an interface for objects that encode trees
into documents and decode them back.
*/
type Codec interface {
	Encode(*Tree) ([]byte, error)
	Decode([]byte) (*Tree, error)
}

type memoryStore struct {
	codec    Codec
	snapshot []byte
	lock     *sync.RWMutex
}

// NewMemoryStore takes a codec and returns an implementation
// of Store that keeps the encoded snapshot in the process
// memory space
func NewMemoryStore(codec Codec) Store {
	return &memoryStore{codec: codec, lock: &sync.RWMutex{}}
}

func (ms *memoryStore) Publish(ctx context.Context, t *Tree) error {
	doc, err := ms.codec.Encode(t)
	if err != nil {
		return errors.Wrap(err, "publishing tree snapshot")
	}
	return ms.withLock(ctx, func(ctx context.Context) error {
		ms.snapshot = doc
		return nil
	})
}

func (ms *memoryStore) Load(ctx context.Context) (*Tree, error) {
	var doc []byte
	err := ms.withRLock(ctx, func(ctx context.Context) error {
		doc = ms.snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNoSnapshot
	}
	return ms.codec.Decode(doc)
}

func (ms *memoryStore) Close(ctx context.Context) error {
	return nil
}

func (ms *memoryStore) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.Lock()
		select {
		case <-ctx.Done():
			ms.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.Unlock()
	}
	return f(ctx)
}

func (ms *memoryStore) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.RLock()
		select {
		case <-ctx.Done():
			ms.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.RUnlock()
	}
	return f(ctx)
}
