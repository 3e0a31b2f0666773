package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marktr/adsbot/core/logger"
)

// ErrClientNotFound is returned when no cached client matches a slug.
var ErrClientNotFound = errors.New("workspace client not found")

// ClientRecord is one med-spa client mirrored from the workspace tool.
type ClientRecord struct {
	Slug      string    `db:"slug"`
	Name      string    `db:"name"`
	Stage     string    `db:"stage"`
	PageID    string    `db:"page_id"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store is the Postgres cache of workspace clients.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Get returns the cached client for slug.
func (s *Store) Get(ctx context.Context, slug string) (ClientRecord, error) {
	var rec ClientRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT slug, name, stage, page_id, updated_at FROM workspace_clients WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return ClientRecord{}, fmt.Errorf("%w: %s", ErrClientNotFound, slug)
	}
	if err != nil {
		return ClientRecord{}, fmt.Errorf("workspace: get %s: %w", slug, err)
	}
	return rec, nil
}

// ListAll returns every cached client ordered by name.
func (s *Store) ListAll(ctx context.Context) ([]ClientRecord, error) {
	recs := []ClientRecord{}
	err := s.db.SelectContext(ctx, &recs,
		`SELECT slug, name, stage, page_id, updated_at FROM workspace_clients ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("workspace: list: %w", err)
	}
	return recs, nil
}

// ReplaceAll swaps the whole cache for records in one transaction, so
// readers never observe a half-applied sync.
func (s *Store) ReplaceAll(ctx context.Context, records []ClientRecord) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("workspace: begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM workspace_clients`); err != nil {
		return fmt.Errorf("workspace: clearing cache: %w", err)
	}
	for _, rec := range records {
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO workspace_clients (slug, name, stage, page_id, updated_at)
			 VALUES (:slug, :name, :stage, :page_id, :updated_at)`, rec)
		if err != nil {
			return fmt.Errorf("workspace: inserting %s: %w", rec.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("workspace: commit replace: %w", err)
	}

	logger.CACHE.Info("client cache replaced",
		slog.String("event", "workspace.replace"),
		slog.Int("clients", len(records)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))))
	return nil
}
