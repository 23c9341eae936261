/*
Package mongodataset provides an implementation of dataset.Dataset
that reads its records from a MongoDB collection.
*/
package mongodataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

type mongoDataset struct {
	session    *mgo.Session
	collection string
	columns    []string
}

/*
New takes a MongoDB session, the name of a collection on the default
database of the session and the names of the document fields holding
each field of the instances, in field order, and returns a
dataset.Dataset with a single shard that reads every document of the
collection as a record. Missing document fields become empty tokens.

An error is returned if a column name is not a valid document field name.
*/
func New(session *mgo.Session, collection string, columns []string) (dataset.Dataset, error) {
	for _, c := range columns {
		if c == "_id" {
			return nil, fmt.Errorf("invalid column name %q: reserved collection field", c)
		}
		if c == "" || strings.ContainsAny(c, ".$") {
			return nil, fmt.Errorf("invalid column name %q: empty or contains reserved characters %q or %q", c, ".", "$")
		}
	}
	return &mongoDataset{session, collection, columns}, nil
}

func (md *mongoDataset) Shards(ctx context.Context) ([]dataset.Shard, error) {
	return []dataset.Shard{md}, nil
}

func (md *mongoDataset) Name() string {
	return md.collection
}

func (md *mongoDataset) Scan(ctx context.Context, f func(string) error) (err error) {
	session := md.session.Copy()
	defer session.Close()
	projection := bson.M{"_id": 0}
	for _, c := range md.columns {
		projection[c] = 1
	}
	iter := session.DB("").C(md.collection).Find(nil).Select(projection).Sort("_id").Iter()
	defer func() {
		err = multierr.Append(err, iter.Close())
	}()
	var doc bson.M
	tokens := make([]string, len(md.columns))
	for iter.Next(&doc) {
		if err = ctx.Err(); err != nil {
			return err
		}
		for i, c := range md.columns {
			if tokens[i], err = token(doc[c]); err != nil {
				return errors.Wrapf(err, "document field %s", c)
			}
		}
		if err = f(strings.Join(tokens, ",")); err != nil {
			return err
		}
		doc = nil
	}
	return nil
}

func token(v interface{}) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return feature.FormatNumber(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case bson.ObjectId:
		return v.Hex(), nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}
