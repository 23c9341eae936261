/*
Package filestore provides an implementation of tree.Store that keeps
the last published tree snapshot in a file.
*/
package filestore

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ashenfad/hadooptree/tree"
	"github.com/pkg/errors"
)

type fileStore struct {
	path  string
	codec tree.Codec
}

// New builds a tree.Store that writes snapshots to the file at the
// given path, creating its directory if needed
func New(path string, codec tree.Codec) tree.Store {
	return &fileStore{path, codec}
}

// Publish writes the snapshot next to the target file and then moves
// it into place, so a reader never sees a partial document.
func (fs *fileStore) Publish(ctx context.Context, t *tree.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := fs.codec.Encode(t)
	if err != nil {
		return errors.Wrap(err, "publishing tree snapshot: encoding tree")
	}
	if err = os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return errors.Wrapf(err, "publishing tree snapshot to %s", fs.path)
	}
	tmp, err := ioutil.TempFile(filepath.Dir(fs.path), ".snapshot-*")
	if err != nil {
		return errors.Wrapf(err, "publishing tree snapshot to %s", fs.path)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing tree snapshot to %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing tree snapshot to %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), fs.path), "publishing tree snapshot to %s", fs.path)
}

func (fs *fileStore) Load(ctx context.Context) (*tree.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, tree.ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading tree snapshot %s", fs.path)
	}
	return fs.codec.Decode(data)
}

func (fs *fileStore) Close(ctx context.Context) error {
	return nil
}
