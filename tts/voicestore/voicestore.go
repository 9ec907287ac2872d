// Package voicestore persists the alias to cloned-voice mapping used by the
// voice clone provider, so a resolved or enrolled voice survives restarts.
package voicestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/voicegate/database"
)

// Entry sources.
const (
	SourceListVoices = "list_voices"
	SourceExisting   = "existing"
	SourceEnrollment = "enrollment"
)

// Entry maps an alias to a cloned voice.
type Entry struct {
	Alias       string    `gorm:"primaryKey;size:64" json:"alias"`
	VoiceID     string    `gorm:"not null;index" json:"voice_id"`
	TargetModel string    `json:"target_model"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	AudioURL    string    `json:"audio_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the GORM table name.
func (Entry) TableName() string { return "voice_entries" }

// Store reads and writes entries.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// New migrates the entry table and returns a Store on db.
func New(db *database.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Get returns the entry for alias, or nil if there is none.
func (s *Store) Get(ctx context.Context, alias string) (*Entry, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, nil
	}
	var e Entry
	err := s.db.WithContext(ctx).First(&e, "alias = ?", alias).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "voice entry")
	}
	return &e, nil
}

// Upsert creates or replaces the entry for e.Alias. An empty alias is ignored.
func (s *Store) Upsert(ctx context.Context, e Entry) error {
	e.Alias = strings.TrimSpace(e.Alias)
	if e.Alias == "" {
		return nil
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = s.now().UTC()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&e).Error
	if err != nil {
		return database.FromDatabase(err, "voice entry")
	}
	return nil
}

// List returns every entry ordered by alias.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Order("alias").Find(&entries).Error; err != nil {
		return nil, database.FromDatabase(err, "voice entry")
	}
	return entries, nil
}

// DeleteVoice removes every entry pointing at voiceID and returns how many
// were removed.
func (s *Store) DeleteVoice(ctx context.Context, voiceID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("voice_id = ?", strings.TrimSpace(voiceID)).Delete(&Entry{})
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, "voice entry")
	}
	return res.RowsAffected, nil
}
