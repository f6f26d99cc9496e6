package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
)

/*
 * Store persists views, list records and group expand state per site.
 *
 * Views are append-only: every save writes a new revision and readers take
 * the highest one, so a view being edited never changes under a concurrent
 * resolution. Records keep their first insertion position; updates replace
 * the payload in place so the natural (unsorted) order is stable. Expand
 * state is one row per view holding the expanded and seen group keys.
 *
 * Every operation is scoped by site ID. Values cross the boundary as JSON
 * text (JSONB on PostgreSQL).
 */

// StoredView is one revision of a saved view.
type StoredView struct {
	ID        types.ViewID
	Revision  int
	SiteID    types.SiteID
	ListName  string
	Name      string
	View      types.View
	CreatedAt time.Time
}

// KeyedRecord is a record with its list key.
type KeyedRecord struct {
	Key    string
	Record types.Record
}

// APIKey is a stored API key row. The plaintext key is never stored.
type APIKey struct {
	ID        string
	SiteID    types.SiteID
	Name      string
	SecretID  string
	KeyHash   string
	CreatedAt time.Time
}

// Store is the gridview persistence layer.
type Store struct {
	db      *sqlx.DB
	queries *Queries
	now     func() time.Time
}

// NewStore loads the named queries for db.
func NewStore(db *sqlx.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, queries: queries, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Queries exposes the named queries, e.g. for the authenticator.
func (s *Store) Queries() *Queries {
	return s.queries
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(s.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// EnsureSite creates the site if it does not exist.
func (s *Store) EnsureSite(ctx context.Context, site types.SiteID, name string) error {
	if site == "" {
		return fmt.Errorf("site id cannot be empty")
	}
	if name == "" {
		name = string(site)
	}
	if _, err := s.queries.Exec(ctx, "insert-site", string(site), name, s.now()); err != nil {
		return fmt.Errorf("failed to create site %s: %w", site, err)
	}
	return nil
}

// SaveView validates v.View and stores it as the next revision. A new view
// ID is generated when v.ID is empty. Returns the stored revision.
func (s *Store) SaveView(ctx context.Context, v StoredView) (StoredView, error) {
	if err := v.View.Validate(); err != nil {
		return StoredView{}, fmt.Errorf("invalid view: %w", err)
	}
	if v.ListName == "" {
		return StoredView{}, fmt.Errorf("list name cannot be empty")
	}
	if v.ID == "" {
		v.ID = types.NewViewID()
	}

	definition, err := json.Marshal(v.View)
	if err != nil {
		return StoredView{}, fmt.Errorf("failed to encode view: %w", err)
	}

	v.CreatedAt = s.now()
	err = s.inTx(ctx, func(q *Queries) error {
		if err := q.Get(ctx, "next-view-revision", &v.Revision, string(v.SiteID), string(v.ID)); err != nil {
			return fmt.Errorf("failed to read view revision: %w", err)
		}
		_, err := q.Exec(ctx, "insert-view",
			string(v.ID), v.Revision, string(v.SiteID), v.ListName, v.Name, string(definition), v.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert view: %w", err)
		}
		return nil
	})
	if err != nil {
		return StoredView{}, err
	}
	return v, nil
}

type viewRow struct {
	ViewID     string    `db:"view_id"`
	Revision   int       `db:"revision"`
	SiteID     string    `db:"site_id"`
	ListName   string    `db:"list_name"`
	Name       string    `db:"name"`
	Definition string    `db:"definition"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r viewRow) decode() (StoredView, error) {
	v := StoredView{
		ID:        types.ViewID(r.ViewID),
		Revision:  r.Revision,
		SiteID:    types.SiteID(r.SiteID),
		ListName:  r.ListName,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Definition), &v.View); err != nil {
		return StoredView{}, fmt.Errorf("view %s revision %d: failed to decode definition: %w", r.ViewID, r.Revision, err)
	}
	return v, nil
}

// LatestView returns the highest revision of a view, or ErrViewNotFound.
func (s *Store) LatestView(ctx context.Context, site types.SiteID, id types.ViewID) (StoredView, error) {
	var row viewRow
	err := s.queries.Get(ctx, "get-latest-view", &row, string(site), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return StoredView{}, fmt.Errorf("%s: %w", id, types.ErrViewNotFound)
	}
	if err != nil {
		return StoredView{}, fmt.Errorf("failed to load view: %w", err)
	}
	return row.decode()
}

// ListViews returns the latest revision of every view of a site.
func (s *Store) ListViews(ctx context.Context, site types.SiteID) ([]StoredView, error) {
	var rows []viewRow
	if err := s.queries.Select(ctx, "list-views", &rows, string(site)); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	views := make([]StoredView, 0, len(rows))
	for _, r := range rows {
		v, err := r.decode()
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// ListRecords returns the records of a list in insertion order.
func (s *Store) ListRecords(ctx context.Context, site types.SiteID, list string) ([]KeyedRecord, error) {
	var rows []struct {
		Key     string `db:"record_key"`
		Payload string `db:"payload"`
	}
	if err := s.queries.Select(ctx, "list-records", &rows, string(site), list); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]KeyedRecord, len(rows))
	for i, r := range rows {
		var rec types.Record
		if err := json.Unmarshal([]byte(r.Payload), &rec); err != nil {
			return nil, fmt.Errorf("record %s: failed to decode payload: %w", r.Key, err)
		}
		records[i] = KeyedRecord{Key: r.Key, Record: rec}
	}
	return records, nil
}

// UpsertRecords inserts or replaces records by key in one transaction.
func (s *Store) UpsertRecords(ctx context.Context, site types.SiteID, list string, records []KeyedRecord) error {
	if len(records) > types.MaxRecordsPerRequest {
		return fmt.Errorf("%d records exceeds limit of %d", len(records), types.MaxRecordsPerRequest)
	}
	now := s.now()
	return s.inTx(ctx, func(q *Queries) error {
		var position int64
		if err := q.Get(ctx, "next-record-position", &position, string(site), list); err != nil {
			return fmt.Errorf("failed to read record position: %w", err)
		}
		for _, r := range records {
			if r.Key == "" {
				return fmt.Errorf("record key cannot be empty")
			}
			payload, err := json.Marshal(r.Record)
			if err != nil {
				return fmt.Errorf("record %s: failed to encode payload: %w", r.Key, err)
			}
			// position is ignored by the conflict branch, so updates keep their slot
			if _, err := q.Exec(ctx, "upsert-record", string(site), list, r.Key, position, string(payload), now); err != nil {
				return fmt.Errorf("record %s: failed to store: %w", r.Key, err)
			}
			position++
		}
		return nil
	})
}

// DeleteRecords removes records by key and returns how many existed.
func (s *Store) DeleteRecords(ctx context.Context, site types.SiteID, list string, keys []string) (int, error) {
	deleted := 0
	err := s.inTx(ctx, func(q *Queries) error {
		for _, key := range keys {
			res, err := q.Exec(ctx, "delete-record", string(site), list, key)
			if err != nil {
				return fmt.Errorf("record %s: failed to delete: %w", key, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				deleted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// SaveExpansion stores the expand state of a view's group tree.
func (s *Store) SaveExpansion(ctx context.Context, site types.SiteID, id types.ViewID, e *resolver.Expansion) error {
	if e == nil {
		return nil
	}
	expanded, err := json.Marshal(e.ExpandedKeys())
	if err != nil {
		return err
	}
	seen, err := json.Marshal(e.SeenKeys())
	if err != nil {
		return err
	}
	if _, err := s.queries.Exec(ctx, "upsert-expansion", string(site), string(id), string(expanded), string(seen), s.now()); err != nil {
		return fmt.Errorf("failed to save expansion: %w", err)
	}
	return nil
}

// LoadExpansion returns the stored expand state of a view, or nil when the
// view has never been displayed.
func (s *Store) LoadExpansion(ctx context.Context, site types.SiteID, id types.ViewID) (*resolver.Expansion, error) {
	var row struct {
		Expanded string `db:"expanded"`
		Seen     string `db:"seen"`
	}
	err := s.queries.Get(ctx, "get-expansion", &row, string(site), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expansion: %w", err)
	}

	var expanded, seen []string
	if err := json.Unmarshal([]byte(row.Expanded), &expanded); err != nil {
		return nil, fmt.Errorf("failed to decode expanded keys: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Seen), &seen); err != nil {
		return nil, fmt.Errorf("failed to decode seen keys: %w", err)
	}
	return resolver.NewExpansion(expanded, seen), nil
}

// InsertAPIKey stores a generated API key.
func (s *Store) InsertAPIKey(ctx context.Context, key APIKey) (APIKey, error) {
	if key.ID == "" {
		key.ID = types.NewAPIKeyID()
	}
	key.CreatedAt = s.now()
	_, err := s.queries.Exec(ctx, "insert-api-key",
		key.ID, string(key.SiteID), key.Name, key.SecretID, key.KeyHash, key.CreatedAt)
	if err != nil {
		return APIKey{}, fmt.Errorf("failed to store api key: %w", err)
	}
	return key, nil
}

// RevokeAPIKey marks a key revoked. Reports whether an active key was found.
func (s *Store) RevokeAPIKey(ctx context.Context, site types.SiteID, id string) (bool, error) {
	res, err := s.queries.Exec(ctx, "revoke-api-key", s.now(), id, string(site))
	if err != nil {
		return false, fmt.Errorf("failed to revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
