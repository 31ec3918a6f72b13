package store

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
	"github.com/dropDatabas3/laneeditor/migrations"
)

func TestParseMigrations_SortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"sqlite/0002_more.sql": {Data: []byte("SELECT 2;")},
		"sqlite/0001_init.sql": {Data: []byte("SELECT 1;")},
		"sqlite/README.md":     {Data: []byte("ignored")},
	}
	migs, err := NewMigrator(fsys, "sqlite").ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	require.Equal(t, 1, migs[0].Version)
	require.Equal(t, "init", migs[0].Name)
	require.Equal(t, 2, migs[1].Version)
}

func TestParseMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/0001_a.sql": {Data: []byte("SELECT 1;")},
		"pg/0001_b.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := NewMigrator(fsys, "pg").ParseMigrations()
	require.Error(t, err)
}

func TestEmbeddedMigrations_BothDrivers(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		migs, err := NewMigrator(migrations.FS, migrations.Dir(driver)).ParseMigrations()
		require.NoError(t, err, driver)
		require.NotEmpty(t, migs, driver)
		require.Contains(t, migs[0].SQL, "road_changes")
	}
}

func TestOpenAdapter_Unknown(t *testing.T) {
	box, err := secretbox.FromSecret("x")
	require.NoError(t, err)
	_, err = OpenAdapter(context.Background(), AdapterConfig{Name: "mysql", Box: box})
	require.Error(t, err)
}

func TestOpenAdapter_RequiresBox(t *testing.T) {
	RegisterAdapter(&fakeAdapter{})
	_, err := OpenAdapter(context.Background(), AdapterConfig{Name: "fake"})
	require.Error(t, err)
	require.Contains(t, ListAdapters(), "fake")

	require.Panics(t, func() { RegisterAdapter(&fakeAdapter{}) })
}

type fakeAdapter struct{}

func (fakeAdapter) Name() string { return "fake" }
func (fakeAdapter) Connect(context.Context, AdapterConfig) (AdapterConnection, error) {
	return nil, nil
}
