// Package draft persists the user's in-progress, unsent message per
// invitation token so a page reload does not lose typed text.
//
// Persistence is strictly best-effort: the widget must keep working when the
// underlying storage is unavailable, degrading to "draft is lost on reload".
// Callers therefore log store errors and continue; nothing here is fatal.
package draft

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
	"github.com/nmikhaylov/go-interview-widget/internal/repo"
)

// keyPrefix namespaces draft rows so the table can never collide with other
// client-local state keyed by the same token.
const keyPrefix = "chat_draft_"

// Store persists one draft string per invitation token.
//
// Save with empty text removes the entry instead of storing an empty string.
// Load reports presence via its second return value.
type Store interface {
	Load(ctx context.Context, token string) (string, bool, error)
	Save(ctx context.Context, token, text string) error
	Clear(ctx context.Context, token string) error
}

// SQLiteStore is the durable Store implementation backed by GORM/SQLite.
type SQLiteStore struct {
	db *gorm.DB
}

// Open creates (or opens) the draft database at path and migrates its schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(db, &domain.DraftRecord{}); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an already-open GORM handle (tests, shared databases).
func NewSQLiteStore(db *gorm.DB) *SQLiteStore { return &SQLiteStore{db: db} }

// Load returns the stored draft for token, with ok=false when none exists.
func (s *SQLiteStore) Load(ctx context.Context, token string) (string, bool, error) {
	var rec domain.DraftRecord
	err := s.db.WithContext(ctx).First(&rec, "key = ?", keyPrefix+token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Content, true, nil
}

// Save upserts the draft for token. Empty text clears the entry.
func (s *SQLiteStore) Save(ctx context.Context, token, text string) error {
	if text == "" {
		return s.Clear(ctx, token)
	}
	rec := domain.DraftRecord{Key: keyPrefix + token, Content: text}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).
		Create(&rec).Error
}

// Clear removes the draft for token. Clearing a missing entry is a no-op.
func (s *SQLiteStore) Clear(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).
		Delete(&domain.DraftRecord{}, "key = ?", keyPrefix+token).Error
}

// MemoryStore is an in-process Store used in tests and as the degraded
// fallback when the SQLite database cannot be opened.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[keyPrefix+token]
	return v, ok, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, token, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		delete(s.m, keyPrefix+token)
		return nil
	}
	s.m[keyPrefix+token] = text
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, keyPrefix+token)
	return nil
}
