// Package repo implements the data persistence layer of the advisor backend,
// backed by GORM. This file provides repository functions for the
// UserPreference model.
//
// Preferences follow insert-or-update semantics keyed on (user_id, pref_key):
// answering a question updates "frequent_topics", feedback ratings tune
// "response_style". The uniqueness is enforced by the ux_pref_user_key index.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gestioweb/go-advisor-backend/internal/domain"
)

// Well-known preference keys.
const (
	PrefResponseStyle  = "response_style"
	PrefFrequentTopics = "frequent_topics"
)

// UpsertPreference inserts or updates the preference (userID, key) -> value.
// On conflict with an existing row, only the value and UpdatedAt change.
func UpsertPreference(ctx context.Context, db *gorm.DB, userID, key, value string) error {
	now := time.Now().UTC()
	p := &domain.UserPreference{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "pref_key"}},
			DoUpdates: clause.Assignments(map[string]any{"pref_value": value, "updated_at": now}),
		}).
		Create(p).Error
}

// GetPreference returns the stored value for (userID, key), or the empty
// string when no row exists. A missing preference is not an error.
func GetPreference(ctx context.Context, db *gorm.DB, userID, key string) (string, error) {
	var p domain.UserPreference
	err := db.WithContext(ctx).
		Where("user_id = ? AND pref_key = ?", userID, key).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Value, nil
}
