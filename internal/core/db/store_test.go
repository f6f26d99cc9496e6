package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSite = types.SiteID("contoso")

// openTestStore opens a migrated SQLite store in a temporary directory.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	database, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "gridview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = MigrateUp(ctx, database)
	require.NoError(t, err)

	store, err := NewStore(database)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSite(ctx, testSite, "Contoso"))
	return store
}

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/db")
	assert.ErrorContains(t, err, "unsupported database scheme")

	_, err = Open(context.Background(), "sqlite://")
	assert.Error(t, err)
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer database.Close()

	statuses, err := MigrateStatus(ctx, database)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, s := range statuses {
		assert.False(t, s.Applied, s.ID)
	}
	assert.Error(t, RequireMigrated(ctx, database))

	ran, err := MigrateUp(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_initial_schema.sql", "002_api_keys.sql"}, ran)

	ran, err = MigrateUp(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, ran, "second run applies nothing")
	assert.NoError(t, RequireMigrated(ctx, database))

	statuses, err = MigrateStatus(ctx, database)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, s.ID)
		assert.NotNil(t, s.AppliedAt, s.ID)
	}

	_, err = database.Exec("UPDATE migrations SET checksum = 'tampered' WHERE migration_id = '001_initial_schema.sql'")
	require.NoError(t, err)
	_, err = MigrateUp(ctx, database)
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestSplitStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (x INT);\n\n-- second\nCREATE INDEX i ON a (x);\n"
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, splitStatements(script))
}

func TestStore_ViewRevisions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	view := types.View{
		Fields: []types.Field{{Name: "location", DisplayName: "Lieu", Groupable: true}},
		Groups: []types.GroupSpec{{Path: "location", Collapsed: true}},
	}
	first, err := store.SaveView(ctx, StoredView{SiteID: testSite, ListName: "Items", Name: "Par lieu", View: view})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 1, first.Revision)

	second, err := store.SaveView(ctx, StoredView{
		ID: first.ID, SiteID: testSite, ListName: "Items", Name: "Par lieu",
		View: view.WithSort("location", true),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Revision)

	latest, err := store.LatestView(ctx, testSite, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Revision)
	assert.Equal(t, []types.SortSpec{{Path: "location", Descending: true}}, latest.View.Sorts)
	assert.Equal(t, view.Groups, latest.View.Groups)

	views, err := store.ListViews(ctx, testSite)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].Revision)

	_, err = store.LatestView(ctx, "other-site", first.ID)
	assert.ErrorIs(t, err, types.ErrViewNotFound)

	_, err = store.SaveView(ctx, StoredView{SiteID: testSite, ListName: "Items", View: types.View{Groups: make([]types.GroupSpec, types.MaxGroupLevels+1)}})
	assert.Error(t, err)
}

func TestStore_Records(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	err := store.UpsertRecords(ctx, testSite, "Items", []KeyedRecord{
		{Key: "1", Record: types.Record{"id": 1, "title": "Item 1", "author": map[string]any{"name": "Marie"}}},
		{Key: "2", Record: types.Record{"id": 2, "title": "Item 2"}},
	})
	require.NoError(t, err)

	err = store.UpsertRecords(ctx, testSite, "Items", []KeyedRecord{
		{Key: "3", Record: types.Record{"id": 3, "title": "Item 3"}},
		{Key: "1", Record: types.Record{"id": 1, "title": "Item 1 bis"}},
	})
	require.NoError(t, err)

	records, err := store.ListRecords(ctx, testSite, "Items")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[0].Key, "update keeps insertion position")
	assert.Equal(t, "Item 1 bis", records[0].Record["title"])
	assert.Equal(t, float64(1), records[0].Record["id"], "payload round-trips through JSON")
	assert.Equal(t, "3", records[2].Key)

	n, err := store.DeleteRecords(ctx, testSite, "Items", []string{"2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err = store.ListRecords(ctx, testSite, "Items")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	other, err := store.ListRecords(ctx, testSite, "Other")
	require.NoError(t, err)
	assert.Empty(t, other)

	err = store.UpsertRecords(ctx, testSite, "Items", []KeyedRecord{{Key: "", Record: types.Record{}}})
	assert.Error(t, err)
}

func TestStore_Expansion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id := types.NewViewID()

	e, err := store.LoadExpansion(ctx, testSite, id)
	require.NoError(t, err)
	assert.Nil(t, e, "never displayed")

	require.NoError(t, store.SaveExpansion(ctx, testSite, id, resolver.NewExpansion([]string{"0_Nantes"}, []string{"0_Paris"})))
	require.NoError(t, store.SaveExpansion(ctx, testSite, id, resolver.NewExpansion([]string{"0_Lyon", "1_Robert"}, []string{"0_Nantes"})))

	e, err = store.LoadExpansion(ctx, testSite, id)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []string{"0_Lyon", "1_Robert"}, e.ExpandedKeys())
	assert.Equal(t, []string{"0_Lyon", "0_Nantes", "1_Robert"}, e.SeenKeys())
}

func TestStore_APIKeys(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	key, err := store.InsertAPIKey(ctx, APIKey{SiteID: testSite, Name: "ci", SecretID: "0123456789abcdef0123456789abcdef", KeyHash: "abc"})
	require.NoError(t, err)
	assert.NotEmpty(t, key.ID)

	var row struct {
		APIKeyID   string `db:"api_key_id"`
		SiteID     string `db:"site_id"`
		RevokedAt  any    `db:"revoked_at"`
		LastUsedAt any    `db:"last_used_at"`
	}
	require.NoError(t, store.Queries().Get(ctx, "get-api-key-by-hash", &row, "abc"))
	assert.Equal(t, key.ID, row.APIKeyID)
	assert.Equal(t, string(testSite), row.SiteID)

	ok, err := store.RevokeAPIKey(ctx, testSite, key.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.RevokeAPIKey(ctx, testSite, key.ID)
	require.NoError(t, err)
	assert.False(t, ok, "already revoked")
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	store, err := NewStore(sqlx.NewDb(mockDB, "sqlite3"))
	require.NoError(t, err)
	return store, mock
}

func TestStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("latest view query failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT view_id, revision").WillReturnError(errors.New("connection reset"))

		_, err := store.LatestView(ctx, testSite, "v1")
		assert.ErrorContains(t, err, "failed to load view")
		assert.NotErrorIs(t, err, types.ErrViewNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT view_id, revision").
			WillReturnRows(sqlmock.NewRows([]string{"view_id", "revision", "site_id", "list_name", "name", "definition", "created_at"}))

		_, err := store.LatestView(ctx, testSite, "v1")
		assert.ErrorIs(t, err, types.ErrViewNotFound)
	})

	t.Run("upsert rolls back on failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
		mock.ExpectExec("INSERT INTO records").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := store.UpsertRecords(ctx, testSite, "Items", []KeyedRecord{{Key: "1", Record: types.Record{"a": 1}}})
		assert.ErrorContains(t, err, "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt expansion payload", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT expanded, seen").
			WillReturnRows(sqlmock.NewRows([]string{"expanded", "seen"}).AddRow("not json", "[]"))

		_, err := store.LoadExpansion(ctx, testSite, "v1")
		assert.ErrorContains(t, err, "failed to decode expanded keys")
	})
}
