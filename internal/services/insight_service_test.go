package services

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gestioweb/go-advisor-backend/internal/repo"
)

func seedQuestions(t *testing.T, svc *InsightService, userID string, questions []string) {
	t.Helper()
	for _, q := range questions {
		if _, err := repo.CreateConversation(context.Background(), svc.DB, userID, "s", q, "a", "[]"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAnalyzePastConversations_StrictMajority(t *testing.T) {
	svc := &InsightService{DB: newTestDB(t), Log: zerolog.Nop()}
	seedQuestions(t, svc, "u1", []string{
		"stato del ticket 42",
		"il ticket è ancora aperto?",
		"apri un ticket per il guasto",
		"dammi il report mensile",
	})

	got := svc.AnalyzePastConversations(context.Background(), "u1")
	if !strings.Contains(got, "assistenza") {
		t.Fatalf("insight = %q, want the support sentence", got)
	}
}

func TestAnalyzePastConversations_TieYieldsNothing(t *testing.T) {
	svc := &InsightService{DB: newTestDB(t), Log: zerolog.Nop()}
	seedQuestions(t, svc, "u1", []string{
		"stato del ticket",
		"apri un ticket",
		"report di marzo",
		"report di aprile",
	})

	if got := svc.AnalyzePastConversations(context.Background(), "u1"); got != "" {
		t.Fatalf("tie produced insight %q", got)
	}
}

func TestAnalyzePastConversations_NoUserNoHistory(t *testing.T) {
	svc := &InsightService{DB: newTestDB(t), Log: zerolog.Nop()}
	if got := svc.AnalyzePastConversations(context.Background(), ""); got != "" {
		t.Fatalf("anonymous insight = %q", got)
	}
	if got := svc.AnalyzePastConversations(context.Background(), "nobody"); got != "" {
		t.Fatalf("empty-history insight = %q", got)
	}
}

func TestAnalyzePastConversations_IgnoresPoorlyRated(t *testing.T) {
	svc := &InsightService{DB: newTestDB(t), Log: zerolog.Nop()}
	ctx := context.Background()

	// One well-regarded report question, one badly rated ticket question:
	// the latter must not count.
	if _, err := repo.CreateConversation(ctx, svc.DB, "u1", "s", "report del trimestre", "a", "[]"); err != nil {
		t.Fatal(err)
	}
	bad, err := repo.CreateConversation(ctx, svc.DB, "u1", "s", "stato del ticket", "a", "[]")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpdateConversationRating(ctx, svc.DB, bad.ID, 1); err != nil {
		t.Fatal(err)
	}

	got := svc.AnalyzePastConversations(ctx, "u1")
	if !strings.Contains(got, "report") {
		t.Fatalf("insight = %q, want the report sentence", got)
	}
}
