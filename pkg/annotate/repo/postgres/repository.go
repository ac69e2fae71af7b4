// Package postgres provides the PostgreSQL RecordStore.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/image-annotate/pkg/annotate"
)

// DBTX allows using either a connection pool or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements annotate.RecordStore using PostgreSQL.
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL record store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL record store with a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// wrapError maps driver failures onto the store error taxonomy. Unique
// violations become ErrDuplicateKey; everything else that isn't a no-rows
// result is an availability problem.
func wrapError(op, key string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s %q: %w", op, key, annotate.ErrDuplicateKey)
	}
	return &annotate.StoreError{Op: op, Key: key, Err: fmt.Errorf("%w: %v", annotate.ErrStoreUnavailable, err)}
}

func (s *Store) CreatePending(ctx context.Context, key, displayName string) (uuid.UUID, error) {
	query := `
		INSERT INTO records (id, key, display_name, annotation_status, thumbnail_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	id := uuid.New()
	_, err := s.db.Exec(ctx, query, id, key, displayName,
		annotate.StatusPending, annotate.StatusPending)
	if err != nil {
		return uuid.Nil, wrapError("create pending", key, err)
	}
	return id, nil
}

func (s *Store) UpdateAnnotation(ctx context.Context, key string, text *string, status annotate.Status) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: annotation status must be terminal, got %q", annotate.ErrInvalidInput, status)
	}

	query := `
		UPDATE records
		SET annotation = $2, annotation_status = $3, updated_at = NOW()
		WHERE key = $1`

	tag, err := s.db.Exec(ctx, query, key, text, status)
	if err != nil {
		return false, wrapError("update annotation", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdateThumbnail(ctx context.Context, key string, thumbnailKey *string, status annotate.Status) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: thumbnail status must be terminal, got %q", annotate.ErrInvalidInput, status)
	}

	query := `
		UPDATE records
		SET thumbnail_key = $2, thumbnail_status = $3, updated_at = NOW()
		WHERE key = $1`

	tag, err := s.db.Exec(ctx, query, key, thumbnailKey, status)
	if err != nil {
		return false, wrapError("update thumbnail", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Get(ctx context.Context, key string) (*annotate.Record, error) {
	query := `
		SELECT id, key, display_name, annotation, annotation_status,
		       thumbnail_key, thumbnail_status, created_at, updated_at
		FROM records WHERE key = $1`

	var rec annotate.Record
	err := s.db.QueryRow(ctx, query, key).Scan(
		&rec.ID, &rec.Key, &rec.DisplayName, &rec.Annotation, &rec.AnnotationStatus,
		&rec.ThumbnailKey, &rec.ThumbnailStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, annotate.ErrRecordNotFound
		}
		return nil, wrapError("get", key, err)
	}
	return &rec, nil
}

func (s *Store) List(ctx context.Context) ([]*annotate.Record, error) {
	query := `
		SELECT id, key, display_name, annotation, annotation_status,
		       thumbnail_key, thumbnail_status, created_at, updated_at
		FROM records ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, wrapError("list", "", err)
	}
	defer rows.Close()

	var records []*annotate.Record
	for rows.Next() {
		var rec annotate.Record
		if err := rows.Scan(
			&rec.ID, &rec.Key, &rec.DisplayName, &rec.Annotation, &rec.AnnotationStatus,
			&rec.ThumbnailKey, &rec.ThumbnailStatus, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, wrapError("list", "", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list", "", err)
	}
	return records, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if pool, ok := s.db.(*pgxpool.Pool); ok {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %v", annotate.ErrStoreUnavailable, err)
		}
		return nil
	}
	if _, err := s.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("%w: %v", annotate.ErrStoreUnavailable, err)
	}
	return nil
}
