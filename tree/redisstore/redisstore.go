/*
Package redisstore provides an implementation of tree.Store that
publishes tree snapshots on a redis DB, so that workers on other
hosts can load them.
*/
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ashenfad/hadooptree/tree"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"gopkg.in/redis.v5"
)

// publishScript replaces the snapshot document and bumps its version
// in a single step, so readers never see a version without its document.
const publishScript = `
redis.call("SET", KEYS[1], ARGV[1])
return redis.call("INCR", KEYS[2])
`

const defaultPublishRetries = 3

// Store is a tree.Store backed by a redis DB
type Store struct {
	rc      *redis.Client
	prefix  string
	codec   tree.Codec
	retries uint64
}

// Option configures a store built with New
type Option func(*Store)

// WithPublishRetries sets how many times publishing a snapshot is
// retried when redis fails
func WithPublishRetries(n uint64) Option {
	return func(rs *Store) {
		rs.retries = n
	}
}

// New builds a tree.Store backed by a redis DB that keeps
// the snapshot document and its version under keys with the
// given prefix
func New(rc *redis.Client, prefix string, codec tree.Codec, opts ...Option) *Store {
	rs := &Store{rc: rc, prefix: prefix, codec: codec, retries: defaultPublishRetries}
	for _, o := range opts {
		o(rs)
	}
	return rs
}

func (rs *Store) Publish(ctx context.Context, t *tree.Tree) error {
	data, err := rs.codec.Encode(t)
	if err != nil {
		return errors.Wrap(err, "publishing tree snapshot: encoding tree")
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return rs.rc.Eval(publishScript, []string{rs.keyFor("snapshot"), rs.keyFor("version")}, string(data)).Err()
	}
	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, rs.retries), ctx))
	if err != nil {
		return errors.Wrapf(err, "publishing tree snapshot in redis at %s", rs.keyFor("snapshot"))
	}
	return nil
}

func (rs *Store) Load(ctx context.Context) (*tree.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := rs.rc.Get(rs.keyFor("snapshot")).Result()
	if err == redis.Nil {
		return nil, tree.ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving tree snapshot %q", rs.keyFor("snapshot"))
	}
	return rs.codec.Decode([]byte(data))
}

// Version returns the number of snapshots published so far, so that
// readers can tell whether the snapshot they hold is the last one
func (rs *Store) Version(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := rs.rc.Get(rs.keyFor("version")).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "retrieving tree snapshot version %q", rs.keyFor("version"))
	}
	return v, nil
}

func (rs *Store) Close(ctx context.Context) error {
	return nil
}

func (rs *Store) keyFor(id string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, id)
}
