package memory

import (
	"context"
	"testing"
)

func TestCheckpointRepo_GetSet(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckpointRepo()

	if _, found, err := repo.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected miss on empty repo, got found=%v err=%v", found, err)
	}

	if err := repo.Set(ctx, "k", 42); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := repo.Set(ctx, "k", 43); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, found, err := repo.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if v != 43 {
		t.Errorf("expected 43, got %d", v)
	}
}
