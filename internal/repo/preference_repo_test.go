package repo

import (
	"context"
	"testing"

	"github.com/gestioweb/go-advisor-backend/internal/domain"
)

func TestUpsertPreference_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := UpsertPreference(ctx, db, "u1", PrefResponseStyle, "conciso"); err != nil {
		t.Fatal(err)
	}
	if err := UpsertPreference(ctx, db, "u1", PrefResponseStyle, "dettagliato"); err != nil {
		t.Fatal(err)
	}

	// One row, latest value.
	var n int64
	if err := db.Model(&domain.UserPreference{}).Where("user_id = ?", "u1").Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	v, err := GetPreference(ctx, db, "u1", PrefResponseStyle)
	if err != nil {
		t.Fatal(err)
	}
	if v != "dettagliato" {
		t.Fatalf("value = %q", v)
	}
}

func TestUpsertPreference_KeysAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := UpsertPreference(ctx, db, "u1", PrefResponseStyle, "conciso"); err != nil {
		t.Fatal(err)
	}
	if err := UpsertPreference(ctx, db, "u1", PrefFrequentTopics, "clienti"); err != nil {
		t.Fatal(err)
	}

	style, err := GetPreference(ctx, db, "u1", PrefResponseStyle)
	if err != nil || style != "conciso" {
		t.Fatalf("style=%q err=%v", style, err)
	}
	topic, err := GetPreference(ctx, db, "u1", PrefFrequentTopics)
	if err != nil || topic != "clienti" {
		t.Fatalf("topic=%q err=%v", topic, err)
	}
}

func TestGetPreference_MissingIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	v, err := GetPreference(context.Background(), db, "ghost", PrefResponseStyle)
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Fatalf("value = %q, want empty", v)
	}
}
