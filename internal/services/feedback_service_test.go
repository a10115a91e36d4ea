package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gestioweb/go-advisor-backend/internal/repo"
)

func TestGiveFeedback_RejectsOutOfRangeRating(t *testing.T) {
	svc := &FeedbackService{DB: newTestDB(t), Log: zerolog.Nop()}
	for _, rating := range []int{0, 6, -1} {
		if _, err := svc.GiveFeedback(context.Background(), "whatever", rating); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("rating %d: err = %v, want ErrInvalidRating", rating, err)
		}
	}
}

func TestGiveFeedback_UnknownConversation(t *testing.T) {
	svc := &FeedbackService{DB: newTestDB(t), Log: zerolog.Nop()}
	updated, err := svc.GiveFeedback(context.Background(), "missing-id", 4)
	if err != nil {
		t.Fatal(err)
	}
	if updated {
		t.Fatal("reported an update for a nonexistent conversation")
	}
}

func TestGiveFeedback_TunesResponseStyle(t *testing.T) {
	db := newTestDB(t)
	svc := &FeedbackService{DB: db, Log: zerolog.Nop()}
	ctx := context.Background()

	cases := []struct {
		rating    int
		wantStyle string
	}{
		{1, "conciso"},
		{2, "conciso"},
		{4, "dettagliato"},
		{5, "dettagliato"},
	}
	for _, tc := range cases {
		userID := "u" + string(rune('a'+tc.rating))
		c, err := repo.CreateConversation(ctx, db, userID, "s", "q", "a", "[]")
		if err != nil {
			t.Fatal(err)
		}
		updated, err := svc.GiveFeedback(ctx, c.ID, tc.rating)
		if err != nil || !updated {
			t.Fatalf("rating %d: updated=%v err=%v", tc.rating, updated, err)
		}
		style, err := repo.GetPreference(ctx, db, userID, repo.PrefResponseStyle)
		if err != nil {
			t.Fatal(err)
		}
		if style != tc.wantStyle {
			t.Fatalf("rating %d: style = %q, want %q", tc.rating, style, tc.wantStyle)
		}
	}
}

func TestGiveFeedback_NeutralRatingLeavesStyle(t *testing.T) {
	db := newTestDB(t)
	svc := &FeedbackService{DB: db, Log: zerolog.Nop()}
	ctx := context.Background()

	if err := repo.UpsertPreference(ctx, db, "u1", repo.PrefResponseStyle, "conciso"); err != nil {
		t.Fatal(err)
	}
	c, err := repo.CreateConversation(ctx, db, "u1", "s", "q", "a", "[]")
	if err != nil {
		t.Fatal(err)
	}
	updated, err := svc.GiveFeedback(ctx, c.ID, 3)
	if err != nil || !updated {
		t.Fatalf("updated=%v err=%v", updated, err)
	}
	style, err := repo.GetPreference(ctx, db, "u1", repo.PrefResponseStyle)
	if err != nil {
		t.Fatal(err)
	}
	if style != "conciso" {
		t.Fatalf("neutral rating changed style to %q", style)
	}
}

func TestGiveFeedback_AnonymousConversationSkipsStyle(t *testing.T) {
	db := newTestDB(t)
	svc := &FeedbackService{DB: db, Log: zerolog.Nop()}
	ctx := context.Background()

	c, err := repo.CreateConversation(ctx, db, "", "s", "q", "a", "[]")
	if err != nil {
		t.Fatal(err)
	}
	updated, err := svc.GiveFeedback(ctx, c.ID, 5)
	if err != nil || !updated {
		t.Fatalf("updated=%v err=%v", updated, err)
	}

	got, err := repo.GetConversation(ctx, db, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Fatalf("rating = %v, want 5", got.Rating)
	}
}
