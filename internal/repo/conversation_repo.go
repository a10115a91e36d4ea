// Package repo implements the data persistence layer of the advisor backend,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a conversation is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. Best-effort policies (swallowing
//     persistence failures) live in the service layer, not here.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestioweb/go-advisor-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateConversation inserts a question/answer exchange for userID.
// The conversation ID is a randomly generated UUID and CreatedAt is set to UTC.
func CreateConversation(ctx context.Context, db *gorm.DB, userID, sessionID, question, answer, contextJSON string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Context:   contextJSON,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a single conversation by ID, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateConversationRating sets the rating of a conversation. It returns
// false (without error) when no row matched the given id. Rating range
// validation belongs to the service layer.
func UpdateConversationRating(ctx context.Context, db *gorm.DB, id string, rating int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("rating", rating)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListRecentConversations returns the user's most recent conversations that
// are either unrated or rated >= 3, newest first. This is the working set
// for topic-frequency insights: poorly rated answers are excluded so they
// do not reinforce themselves.
func ListRecentConversations(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("rating IS NULL OR rating >= ?", 3).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountConversations returns the total number of conversations for userID.
func CountConversations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListConversationsPage returns a paginated slice of conversations for
// userID, newest first. Use CountConversations for pagination metadata.
func ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SearchRatedAnswers performs the "learned answer" lookup for questions no
// rule matched: it scans well-rated (>= 3) conversations whose stored answer
// contains at least minShared of the supplied keywords (LIKE-based, matched
// case-insensitively) and returns the most recent limit rows.
//
// When userID is non-empty the search is scoped to that user's history.
// Keywords shorter than three characters are ignored.
func SearchRatedAnswers(ctx context.Context, db *gorm.DB, userID string, keywords []string, minShared, limit int) ([]domain.Conversation, error) {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if len([]rune(k)) >= 3 {
			terms = append(terms, k)
		}
	}
	if len(terms) == 0 || minShared <= 0 {
		return []domain.Conversation{}, nil
	}

	q := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("rating >= ?", 3)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	// Candidate pre-filter in SQL: any keyword present in the answer. The
	// >= minShared constraint is applied in Go on the bounded candidate set.
	or := db.Where("LOWER(answer) LIKE ?", "%"+terms[0]+"%")
	for _, t := range terms[1:] {
		or = or.Or("LOWER(answer) LIKE ?", "%"+t+"%")
	}
	var candidates []domain.Conversation
	if err := q.Where(or).Order("created_at desc").Limit(50).Find(&candidates).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Conversation, 0, limit)
	for _, c := range candidates {
		answer := strings.ToLower(c.Answer)
		shared := 0
		for _, t := range terms {
			if strings.Contains(answer, t) {
				shared++
			}
		}
		if shared >= minShared {
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
