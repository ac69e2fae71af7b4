// Package memory provides an in-memory RecordStore used by tests and the
// development server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/image-annotate/pkg/annotate"
)

// Store implements annotate.RecordStore with a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	records map[string]*annotate.Record
}

// New creates a new in-memory record store.
func New() *Store {
	return &Store{records: make(map[string]*annotate.Record)}
}

func (s *Store) CreatePending(ctx context.Context, key, displayName string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key]; exists {
		return uuid.Nil, fmt.Errorf("create pending record for %q: %w", key, annotate.ErrDuplicateKey)
	}

	now := time.Now().UTC()
	rec := &annotate.Record{
		ID:               uuid.New(),
		Key:              key,
		DisplayName:      displayName,
		AnnotationStatus: annotate.StatusPending,
		ThumbnailStatus:  annotate.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.records[key] = rec
	return rec.ID, nil
}

func (s *Store) UpdateAnnotation(ctx context.Context, key string, text *string, status annotate.Status) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: annotation status must be terminal, got %q", annotate.ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]
	if !exists {
		return false, nil
	}
	rec.Annotation = copyString(text)
	rec.AnnotationStatus = status
	rec.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) UpdateThumbnail(ctx context.Context, key string, thumbnailKey *string, status annotate.Status) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: thumbnail status must be terminal, got %q", annotate.ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]
	if !exists {
		return false, nil
	}
	rec.ThumbnailKey = copyString(thumbnailKey)
	rec.ThumbnailStatus = status
	rec.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) (*annotate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[key]
	if !exists {
		return nil, annotate.ErrRecordNotFound
	}
	// Return a copy to prevent external modifications.
	cp := *rec
	cp.Annotation = copyString(rec.Annotation)
	cp.ThumbnailKey = copyString(rec.ThumbnailKey)
	return &cp, nil
}

func (s *Store) List(ctx context.Context) ([]*annotate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*annotate.Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		cp.Annotation = copyString(rec.Annotation)
		cp.ThumbnailKey = copyString(rec.ThumbnailKey)
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
