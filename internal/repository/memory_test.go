package repository

import (
	"context"
	"testing"
	"time"

	"github.com/safin-krmavi/Bulltrek/internal/models"
)

func strPtr(s string) *string { return &s }

func TestMemoryStoreStrategies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, typ := range []string{"smart-grid", "growth-dca", "smart-grid"} {
		if err := s.InsertStrategy(ctx, &models.StrategyRecord{Type: typ, UserID: "u1"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	items, err := s.ListStrategies(ctx, ListStrategiesParams{Type: strPtr("smart-grid")})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != 3 || items[1].ID != 1 {
		t.Fatalf("items=%+v", items)
	}

	items, _ = s.ListStrategies(ctx, ListStrategiesParams{Limit: 1, Offset: 1})
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("page=%+v", items)
	}
	items, _ = s.ListStrategies(ctx, ListStrategiesParams{UserID: strPtr("u2")})
	if len(items) != 0 {
		t.Fatalf("other user items=%+v", items)
	}
}

func TestMemoryStoreActions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := &models.ActionRecord{ID: "a", StrategyType: "smart-grid", StrategyID: "9", Kind: "backtest", State: "submitting", StartedAt: base}
	b := &models.ActionRecord{ID: "b", StrategyType: "smart-grid", StrategyID: "9", Kind: "live-trade", State: "failed", StartedAt: base.Add(time.Minute)}
	_ = s.InsertAction(ctx, a)
	_ = s.InsertAction(ctx, b)

	done := base.Add(time.Second)
	a.State = "succeeded"
	a.FinishedAt = &done
	if err := s.SaveAction(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	items, _ := s.ListActions(ctx, ListActionsParams{StrategyType: strPtr("smart-grid"), StrategyID: strPtr("9")})
	if len(items) != 2 || items[0].ID != "b" || items[1].State != "succeeded" {
		t.Fatalf("items=%+v", items)
	}
	items, _ = s.ListActions(ctx, ListActionsParams{Kind: strPtr("backtest")})
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("by kind=%+v", items)
	}

	n, err := s.DeleteActionsBefore(ctx, base.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("deleted=%d err=%v want=1", n, err)
	}
	if n, _ := s.DeleteActionsBefore(ctx, time.Time{}); n != 0 {
		t.Fatalf("zero cutoff deleted=%d", n)
	}
}
