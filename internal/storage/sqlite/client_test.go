package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assets.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE spend (YearMonth TEXT, TV REAL, Radio INTEGER, Note TEXT);
		INSERT INTO spend VALUES ('2016-07', 12.5, 3, NULL);
		INSERT INTO spend VALUES ('2016-08', 7, 0, 'promo');
	`)
	require.NoError(t, err)
	return path
}

func TestReadTable(t *testing.T) {
	client, err := NewClient(seed(t))
	require.NoError(t, err)
	defer client.Close()

	header, records, err := client.ReadTable("spend")
	require.NoError(t, err)

	assert.Equal(t, []string{"YearMonth", "TV", "Radio", "Note"}, header)
	assert.Equal(t, [][]string{
		{"2016-07", "12.5", "3", ""},
		{"2016-08", "7", "0", "promo"},
	}, records)
}

func TestReadTableRejectsInjectedName(t *testing.T) {
	client, err := NewClient(seed(t))
	require.NoError(t, err)
	defer client.Close()

	_, _, err = client.ReadTable(`spend"; DROP TABLE spend; --`)
	assert.ErrorIs(t, err, ErrInvalidTableName)
}

func TestReadTableUnknown(t *testing.T) {
	client, err := NewClient(seed(t))
	require.NoError(t, err)
	defer client.Close()

	_, _, err = client.ReadTable("absent")
	assert.Error(t, err)
}

func TestNewClientMissingFile(t *testing.T) {
	_, err := NewClient(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}

func TestClientIsReadOnly(t *testing.T) {
	client, err := NewClient(seed(t))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.db.Exec(`DELETE FROM spend`)
	assert.Error(t, err)
}
