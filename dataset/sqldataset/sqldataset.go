/*
Package sqldataset provides an implementation of dataset.Dataset that
reads its records from the rows of an SQL query.

Every row becomes a record with its columns joined by commas, so the
columns of the query must be listed in field order. NULL columns become
empty tokens.
*/
package sqldataset

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type sqlDataset struct {
	db    *sql.DB
	query string
	args  []interface{}
}

type sqlShard struct {
	*sqlDataset
}

/*
New takes a database, a query and its arguments and returns a
dataset.Dataset with a single shard that runs the query every time it
is scanned.
*/
func New(db *sql.DB, query string, args ...interface{}) dataset.Dataset {
	return &sqlDataset{db, query, args}
}

func (sd *sqlDataset) Shards(ctx context.Context) ([]dataset.Shard, error) {
	return []dataset.Shard{&sqlShard{sd}}, nil
}

func (ss *sqlShard) Name() string {
	return "query"
}

func (ss *sqlShard) Scan(ctx context.Context, f func(string) error) (err error) {
	rows, err := ss.db.QueryContext(ctx, ss.query, ss.args...)
	if err != nil {
		return errors.Wrap(err, "running dataset query")
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	values := make([]interface{}, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	tokens := make([]string, len(columns))
	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return errors.Wrap(err, "scanning dataset row")
		}
		for i, v := range values {
			if tokens[i], err = token(v); err != nil {
				return errors.Wrapf(err, "column %s", columns[i])
			}
		}
		if err = f(strings.Join(tokens, ",")); err != nil {
			return err
		}
	}
	return rows.Err()
}

func token(v interface{}) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return feature.FormatNumber(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("unsupported column type %T", v)
}
