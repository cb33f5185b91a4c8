package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Record is the GORM model backing GormStore. The principal is stored as a
// JSON blob so the schema stays stable as claims evolve.
type Record struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Principal []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName implements the GORM table-name convention override.
func (Record) TableName() string { return "sessions" }

// GormStore persists sessions through a caller-supplied *gorm.DB. The
// caller owns the connection and driver choice; the store only issues
// queries against the sessions table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore and migrates the sessions table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed migrating sessions table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save implements Store.
func (g *GormStore) Save(ctx context.Context, s Session) error {
	data, err := json.Marshal(s.Principal)
	if err != nil {
		return fmt.Errorf("failed encoding principal: %w", err)
	}
	rec := Record{ID: s.ID, Principal: data, ExpiresAt: s.ExpiresAt}
	if err := g.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed storing session: %w", err)
	}
	return nil
}

// Load implements Store.
func (g *GormStore) Load(ctx context.Context, id string) (Session, bool, error) {
	var rec Record
	err := g.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("failed loading session: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(rec.Principal, &p); err != nil {
		return Session{}, false, fmt.Errorf("failed decoding principal: %w", err)
	}
	return Session{ID: rec.ID, Principal: p, ExpiresAt: rec.ExpiresAt}, true, nil
}

// Delete implements Store.
func (g *GormStore) Delete(ctx context.Context, id string) error {
	if err := g.db.WithContext(ctx).Delete(&Record{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed deleting session: %w", err)
	}
	return nil
}

var _ Store = (*GormStore)(nil)
