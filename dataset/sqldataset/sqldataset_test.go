package sqldataset

import (
	"context"
	"database/sql"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashenfad/hadooptree/dataset"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	dir, err := ioutil.TempDir("", "sqldataset")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	db, err := sql.Open("sqlite3", filepath.Join(dir, "iris.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, stmt := range []string{
		"CREATE TABLE iris (petal_length REAL, petal_width INTEGER, species TEXT)",
		"INSERT INTO iris VALUES (1.4, 1, 'setosa'), (4.7, 2, 'versicolor'), (NULL, 3, 'virginica')",
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func scan(t *testing.T, ds dataset.Dataset) ([]string, error) {
	shards, err := ds.Shards(context.Background())
	require.NoError(t, err)
	require.Len(t, shards, 1)
	assert.Equal(t, "query", shards[0].Name())
	var records []string
	err = shards[0].Scan(context.Background(), func(r string) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

func TestScan(t *testing.T) {
	db := openDB(t)
	records, err := scan(t, New(db, "SELECT petal_length, petal_width, species FROM iris WHERE petal_width <= ? ORDER BY rowid", 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"1.4,1,setosa", "4.7,2,versicolor", ",3,virginica"}, records)

	n, err := dataset.Count(context.Background(), New(db, "SELECT species FROM iris"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestScanErrors(t *testing.T) {
	db := openDB(t)
	_, err := scan(t, New(db, "SELECT * FROM missing"))
	assert.Error(t, err)

	shards, err := New(db, "SELECT species FROM iris").Shards(context.Background())
	require.NoError(t, err)
	stop := assert.AnError
	err = shards[0].Scan(context.Background(), func(string) error { return stop })
	assert.Equal(t, stop, err)
}
