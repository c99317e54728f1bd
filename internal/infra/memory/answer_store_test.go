package memory

import (
	"context"
	"testing"
	"time"

	"anxiety-quiz-bot/internal/domain"
)

func TestAnswerStoreOverwritesAnswers(t *testing.T) {
	ctx := context.Background()
	store := NewAnswerStore(time.UTC)

	_ = store.PutAnswer(ctx, domain.Answer{UserID: 1, Ordinal: 1, Label: "A"})
	_ = store.PutAnswer(ctx, domain.Answer{UserID: 1, Ordinal: 1, Label: "C"})
	_ = store.PutAnswer(ctx, domain.Answer{UserID: 2, Ordinal: 1, Label: "B"})

	got := store.Answers(1)
	if len(got) != 1 || got[1] != "C" {
		t.Fatalf("expected single overwritten answer C, got %v", got)
	}
}

func TestAnswerStoreResultsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewAnswerStore(time.UTC)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_ = store.PutResult(ctx, domain.Result{ID: "r1", UserID: 1, Type: domain.ResultCalm, CreatedAt: base})
	_ = store.PutResult(ctx, domain.Result{ID: "r2", UserID: 1, Type: domain.ResultMixed, CreatedAt: base.Add(time.Hour)})
	_ = store.PutResult(ctx, domain.Result{ID: "r3", UserID: 2, Type: domain.ResultCalm, CreatedAt: base})

	results, err := store.GetResults(ctx, 1)
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	if len(results) != 2 || results[0].ID != "r2" || results[1].ID != "r1" {
		t.Fatalf("unexpected order: %+v", results)
	}
}

func TestAnswerStoreCountToday(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, 5, 2, 1, 0, 0, 0, loc)
	store := NewAnswerStoreWithClock(loc, func() time.Time { return now })

	// 22:30 UTC on May 1 is 01:30 on May 2 in UTC+3
	_ = store.PutResult(ctx, domain.Result{ID: "today", UserID: 1, CreatedAt: time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC)})
	_ = store.PutResult(ctx, domain.Result{ID: "yesterday", UserID: 1, CreatedAt: time.Date(2024, 5, 1, 20, 59, 0, 0, time.UTC)})

	count, err := store.CountToday(ctx)
	if err != nil {
		t.Fatalf("count today: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 result today, got %d", count)
	}
}
