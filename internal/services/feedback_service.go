// Package services – FeedbackService.
//
// Users rate advisor answers 1–5. The rating validates before any database
// access, and tuning the response style is a deliberate side effect: poor
// ratings (≤2) force concise answers, good ones (≥4) force detailed
// answers, a 3 leaves the style untouched. Database failures are reported
// as "not updated" rather than raised, matching the best-effort posture of
// the rest of the pipeline.
package services

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gestioweb/go-advisor-backend/internal/repo"
)

// FeedbackService records conversation ratings and tunes preferences.
type FeedbackService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// GiveFeedback sets the rating of a conversation.
//
// Semantics:
//   - rating outside [1,5] returns ErrInvalidRating and never reaches the DB;
//   - a nonexistent conversation id returns (false, nil);
//   - rating <= 2 sets the author's response_style to "conciso",
//     rating >= 4 to "dettagliato", rating == 3 leaves it unchanged;
//   - DB failures are logged and reported as (false, nil).
func (s *FeedbackService) GiveFeedback(ctx context.Context, conversationID string, rating int) (bool, error) {
	if rating < 1 || rating > 5 {
		return false, ErrInvalidRating
	}

	conv, err := repo.GetConversation(ctx, s.DB, conversationID)
	if err != nil {
		if err != repo.ErrNotFound {
			s.Log.Warn().Err(err).Str("conversation_id", conversationID).Msg("feedback lookup degraded")
		}
		return false, nil
	}

	updated, err := repo.UpdateConversationRating(ctx, s.DB, conversationID, rating)
	if err != nil {
		s.Log.Warn().Err(err).Str("conversation_id", conversationID).Msg("rating update degraded")
		return false, nil
	}

	if updated && conv.UserID != "" {
		var style string
		switch {
		case rating <= 2:
			style = styleConciso
		case rating >= 4:
			style = styleDettagliato
		}
		if style != "" {
			if err := repo.UpsertPreference(ctx, s.DB, conv.UserID, repo.PrefResponseStyle, style); err != nil {
				s.Log.Warn().Err(err).Str("user_id", conv.UserID).Msg("style tuning degraded")
			}
		}
	}
	return updated, nil
}
