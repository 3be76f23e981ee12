package migration

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_add_index.up.sql":     {Data: []byte("CREATE INDEX a ON t (c);")},
		"m/0002_add_index.down.sql":   {Data: []byte("DROP INDEX a;")},
		"m/0001_init.up.sql":          {Data: []byte("CREATE TABLE t (c INT);")},
		"m/0001_init.down.sql":        {Data: []byte("DROP TABLE t;")},
		"m/0003_half.up.sql":          {Data: []byte("SELECT 1;")},
		"m/README.md":                 {Data: []byte("notes")},
		"m/nested/0004_skip.up.sql":   {Data: []byte("SELECT 1;")},
		"m/nested/0004_skip.down.sql": {Data: []byte("SELECT 1;")},
	}

	files, err := NewSource(fsys, "m").ListMigrations()
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "0001", files[0].Version)
	assert.Equal(t, "init", files[0].Name)
	assert.Equal(t, "m/0001_init.up.sql", files[0].UpPath)
	assert.Equal(t, "0002", files[1].Version)
}

func TestListMigrationsMismatchedNames(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_init.up.sql":    {Data: []byte("SELECT 1;")},
		"m/0001_other.down.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := NewSource(fsys, "m").ListMigrations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched names")
}

func TestLoadAllEmbedded(t *testing.T) {
	migrations, err := Embedded().LoadAll()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "0001", first.Version)
	assert.Equal(t, "create_storefront_schema", first.Name)

	for _, table := range []string{"users", "games", "purchases", "purchase_items", "developers", "studios", "reviews", "review_comments", "admin_notifications"} {
		assert.Contains(t, first.UpSQL, "CREATE TABLE "+table+" (")
		assert.Contains(t, first.DownSQL, "DROP TABLE IF EXISTS "+table)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "0001_init.up.sql", FileName("0001", "init", "up"))
	assert.True(t, strings.HasSuffix(FileName("0002", "x", "down"), ".down.sql"))
}
