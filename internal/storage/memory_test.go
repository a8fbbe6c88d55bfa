package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

func TestMemoryStoreHistory(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(0, log)
	ctx := context.Background()

	// Empty.
	if _, err := store.Latest(ctx); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Save.
	first := &domain.Narration{Text: "A quiet courtyard.", Source: domain.ModeExplore}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ID == "" || first.SpokenAt.IsZero() {
		t.Fatal("save should assign an ID and timestamp")
	}
	second := &domain.Narration{Text: "The old bell tower.", Source: domain.ModeExplore}
	store.Save(ctx, second)

	// Latest.
	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Text != second.Text {
		t.Fatalf("expected latest %q, got %q", second.Text, latest.Text)
	}
	if first.ID == second.ID {
		t.Fatal("IDs should be unique")
	}

	// List.
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != first.ID {
		t.Fatalf("expected two narrations oldest first, got %d", len(all))
	}
}

func TestMemoryStoreCapacity(t *testing.T) {
	store := NewMemoryStore(3, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Save(ctx, &domain.Narration{Text: fmt.Sprintf("n%d", i)})
	}

	all, _ := store.List(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 narrations, got %d", len(all))
	}
	if all[0].Text != "n2" || all[2].Text != "n4" {
		t.Fatalf("expected n2..n4, got %s..%s", all[0].Text, all[2].Text)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(100, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Save(ctx, &domain.Narration{Text: fmt.Sprintf("n%d", i)})
		}(i)
		go func() {
			defer wg.Done()
			store.Latest(ctx)
			store.List(ctx)
		}()
	}
	wg.Wait()

	all, _ := store.List(ctx)
	if len(all) != 50 {
		t.Fatalf("expected 50 narrations, got %d", len(all))
	}
}
