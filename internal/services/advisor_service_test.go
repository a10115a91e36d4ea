package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/snapshot"
	"github.com/gestioweb/go-advisor-backend/internal/domain"
	"github.com/gestioweb/go-advisor-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:advisorsvc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newAdvisorService(t *testing.T, db *gorm.DB) *AdvisorService {
	t.Helper()
	insights := &InsightService{DB: db, Log: zerolog.Nop()}
	return NewAdvisorService(db, snapshot.NewBuilder(db, zerolog.Nop()), insights, zerolog.Nop())
}

// pinNow freezes the service clock for the duration of the test.
func pinNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFn
	nowFn = func() time.Time { return now }
	t.Cleanup(func() { nowFn = prev })
}

func TestGenerate_ClientCountFromSnapshot(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	pinNow(t, now)

	for i := 0; i < 12; i++ {
		c := domain.Client{ID: uuid.NewString(), Name: fmt.Sprintf("Cliente %d", i), CreatedAt: now.Add(-time.Duration(i) * time.Hour)}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed client: %v", err)
		}
	}

	svc := newAdvisorService(t, db)
	resp, err := svc.Generate(context.Background(), GenerateRequest{
		Question:  "Quanti clienti ho gestito?",
		PeriodKey: period.KeyLast7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Answer, "12") {
		t.Fatalf("answer missing client count: %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Ultimi 7 giorni") {
		t.Fatalf("answer missing period label: %q", resp.Answer)
	}
	if len(resp.ContextLines) == 0 {
		t.Fatal("no context lines")
	}
}

func TestGenerate_EmptyQuestion(t *testing.T) {
	svc := newAdvisorService(t, newTestDB(t))
	if _, err := svc.Generate(context.Background(), GenerateRequest{Question: "   "}); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v, want ErrEmptyQuestion", err)
	}
}

func TestGenerate_InvalidCustomPeriod(t *testing.T) {
	svc := newAdvisorService(t, newTestDB(t))
	_, err := svc.Generate(context.Background(), GenerateRequest{
		Question:  "report",
		PeriodKey: period.KeyCustom,
	})
	if !errors.Is(err, period.ErrMissingCustomBounds) {
		t.Fatalf("err = %v, want ErrMissingCustomBounds", err)
	}
}

func TestGenerate_TracksFrequentTopic(t *testing.T) {
	db := newTestDB(t)
	svc := newAdvisorService(t, db)

	if _, err := svc.Generate(context.Background(), GenerateRequest{Question: "Quanti ticket aperti?", UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	topic, err := repo.GetPreference(context.Background(), db, "u1", repo.PrefFrequentTopics)
	if err != nil {
		t.Fatal(err)
	}
	if topic != "ticket" {
		t.Fatalf("frequent topic = %q, want ticket", topic)
	}
}

func TestGenerate_UnmatchedQuestionKeepsFrequentTopic(t *testing.T) {
	db := newTestDB(t)
	svc := newAdvisorService(t, db)
	ctx := context.Background()

	if err := repo.UpsertPreference(ctx, db, "u1", repo.PrefFrequentTopics, "report"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Generate(ctx, GenerateRequest{Question: "Buongiorno!", UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	topic, err := repo.GetPreference(ctx, db, "u1", repo.PrefFrequentTopics)
	if err != nil {
		t.Fatal(err)
	}
	if topic != "report" {
		t.Fatalf("frequent topic = %q, want report untouched", topic)
	}
}

func TestGenerate_SavesConversationOnlyWithUser(t *testing.T) {
	db := newTestDB(t)
	svc := newAdvisorService(t, db)

	anon, err := svc.Generate(context.Background(), GenerateRequest{Question: "Quanti clienti?"})
	if err != nil {
		t.Fatal(err)
	}
	if anon.ConversationID != nil {
		t.Fatalf("anonymous call persisted a conversation: %v", *anon.ConversationID)
	}

	resp, err := svc.Generate(context.Background(), GenerateRequest{Question: "Quanti clienti?", UserID: "u1", SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ConversationID == nil {
		t.Fatal("no conversation id for identified user")
	}
	saved, err := repo.GetConversation(context.Background(), db, *resp.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.UserID != "u1" || saved.SessionID != "s1" || saved.Answer != resp.Answer {
		t.Fatalf("saved conversation = %+v", saved)
	}
}

func TestGenerate_ConciseStyleTruncates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Past history with a strict-majority client topic makes the insight
	// sentence the third sentence of the answer.
	for i := 0; i < 4; i++ {
		if _, err := repo.CreateConversation(ctx, db, "u1", "s", "come gestisco un cliente?", "a", "[]"); err != nil {
			t.Fatal(err)
		}
	}

	svc := newAdvisorService(t, db)
	detailed, err := svc.Generate(ctx, GenerateRequest{Question: "Quanti clienti ho?", UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(detailed.Answer, "Ultimamente") {
		t.Fatalf("detailed answer missing insight: %q", detailed.Answer)
	}

	if err := repo.UpsertPreference(ctx, db, "u1", repo.PrefResponseStyle, "conciso"); err != nil {
		t.Fatal(err)
	}
	concise, err := svc.Generate(ctx, GenerateRequest{Question: "Quanti clienti ho?", UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(concise.Answer, "Ultimamente") {
		t.Fatalf("concise answer not truncated: %q", concise.Answer)
	}
	if n := strings.Count(concise.Answer, "."); n > 2 {
		t.Fatalf("concise answer has %d sentences: %q", n, concise.Answer)
	}
}

func TestGenerate_AppendsTurnsToHistory(t *testing.T) {
	svc := newAdvisorService(t, newTestDB(t))
	resp, err := svc.Generate(context.Background(), GenerateRequest{
		Question: "Quanti clienti?",
		History:  []ChatMessage{{Role: "user", Content: "ciao"}, {Role: "assistant", Content: "ciao!"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.History) != 4 {
		t.Fatalf("history len = %d, want 4", len(resp.History))
	}
	last := resp.History[len(resp.History)-1]
	if last.Role != "assistant" || last.Content != resp.Answer {
		t.Fatalf("last turn = %+v", last)
	}
}

func TestGenerate_LearnedAnswerFromRatedHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, err := repo.CreateConversation(ctx, db, "u1", "s", "come rinnovo?", "Per il rinnovo della fornitura energia in scadenza apri la scheda e usa Rinnova.", "[]")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpdateConversationRating(ctx, db, c.ID, 5); err != nil {
		t.Fatal(err)
	}

	svc := newAdvisorService(t, db)
	resp, err := svc.Generate(ctx, GenerateRequest{Question: "rinnovo fornitura energia scadenza", UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Answer, "usa Rinnova") {
		t.Fatalf("rated answer not reused: %q", resp.Answer)
	}
}

func TestListConversations_Paginates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := repo.CreateConversation(ctx, db, "u1", "s", fmt.Sprintf("q%d", i), "a", "[]"); err != nil {
			t.Fatal(err)
		}
	}

	svc := newAdvisorService(t, db)
	rows, total, err := svc.ListConversations(ctx, "u1", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("total = %d, page len = %d", total, len(rows))
	}

	rows, total, err = svc.ListConversations(ctx, "u2", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(rows) != 0 {
		t.Fatalf("expected empty listing, got total %d len %d", total, len(rows))
	}
}

func TestFirstSentences(t *testing.T) {
	got := firstSentences("Prima frase. Seconda frase. Terza frase.", 2)
	if got != "Prima frase. Seconda frase." {
		t.Fatalf("got %q", got)
	}
	if got := firstSentences("Senza punto", 2); got != "Senza punto." {
		t.Fatalf("got %q", got)
	}
}
