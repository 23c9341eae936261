package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/dataset/mongodataset"
	"github.com/ashenfad/hadooptree/dataset/sqldataset"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	mgo "gopkg.in/mgo.v2"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

/*
inputConfig holds the flags describing where instances are read from:
a directory or list of files with one instance per line, an SQLite3
(.db) file or PostgreSQL database queried with an SQL query, or a
MongoDB collection.
*/
type inputConfig struct {
	input      []string
	query      string
	collection string
	columns    []string
	closers    []io.Closer
}

type closerFunc func()

func (cf closerFunc) Close() error {
	cf()
	return nil
}

func (ic *inputConfig) addFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&(ic.input), "input", "i", nil, "directory or files with an instance per line, path to an SQLite3 (.db) file, or a PostgreSQL (postgresql://) or MongoDB (mongodb://) URL to read instances from (required)")
	fs.StringVarP(&(ic.query), "query", "q", "", "SQL query returning the fields of every instance, in order, for SQL inputs")
	fs.StringVar(&(ic.collection), "collection", "", "name of the collection holding the instances, for MongoDB inputs")
	fs.StringSliceVar(&(ic.columns), "columns", nil, "document fields holding the fields of every instance, in order, for MongoDB inputs")
}

func (ic *inputConfig) Validate() error {
	if len(ic.input) == 0 {
		return fmt.Errorf("required input flag was not set")
	}
	if len(ic.input) > 1 {
		return nil
	}
	switch in := ic.input[0]; {
	case strings.HasPrefix(in, "postgresql://") || strings.HasSuffix(in, ".db"):
		if ic.query == "" {
			return fmt.Errorf("query flag is required for SQL input %s", in)
		}
	case strings.HasPrefix(in, "mongodb://"):
		if ic.collection == "" || len(ic.columns) == 0 {
			return fmt.Errorf("collection and columns flags are required for MongoDB input %s", in)
		}
	}
	return nil
}

// dataset opens the input described by the flags
func (ic *inputConfig) dataset(log logrus.FieldLogger) (dataset.Dataset, error) {
	if len(ic.input) > 1 {
		log.WithField("files", len(ic.input)).Info("reading instances from files")
		return dataset.Files(ic.input...), nil
	}
	in := ic.input[0]
	switch {
	case strings.HasPrefix(in, "postgresql://"):
		log.Info("reading instances from PostgreSQL")
		return ic.sqlDataset("postgres", in)
	case strings.HasSuffix(in, ".db"):
		log.WithField("path", in).Info("reading instances from SQLite3")
		return ic.sqlDataset("sqlite3", in)
	case strings.HasPrefix(in, "mongodb://"):
		log.WithField("collection", ic.collection).Info("reading instances from MongoDB")
		session, err := mgo.Dial(in)
		if err != nil {
			return nil, errors.Wrap(err, "connecting to MongoDB")
		}
		ic.closers = append(ic.closers, closerFunc(session.Close))
		return mongodataset.New(session, ic.collection, ic.columns)
	}
	info, err := os.Stat(in)
	if err != nil {
		return nil, errors.Wrapf(err, "opening input %s", in)
	}
	if info.IsDir() {
		log.WithField("dir", in).Info("reading instances from directory")
		return dataset.Dir(in), nil
	}
	log.WithField("path", in).Info("reading instances from file")
	return dataset.Files(in), nil
}

func (ic *inputConfig) sqlDataset(driver, dsn string) (dataset.Dataset, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	ic.closers = append(ic.closers, db)
	return sqldataset.New(db, ic.query), nil
}

// Close releases the connections opened to read the input
func (ic *inputConfig) Close() error {
	var err error
	for _, c := range ic.closers {
		err = multierr.Append(err, c.Close())
	}
	ic.closers = nil
	return err
}
