//go:build sqlite

package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for step := 3; step >= 1; step-- {
		point := LossPoint{Step: step, Loss: float64(step) / 10, At: time.Now()}
		if err := store.AddLoss(ctx, "run1", point); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.AddPiece(ctx, "run1", Piece{Step: 2, Roll: []byte{7}, At: time.Now()}); err != nil {
		t.Fatal(err)
	}

	losses, err := store.Losses(ctx, "run1")
	if err != nil {
		t.Fatal(err)
	}
	if len(losses) != 3 {
		t.Fatalf("losses: expected 3 got %d", len(losses))
	}
	for i, p := range losses {
		if p.Step != i+1 {
			t.Errorf("loss %d has step %d", i, p.Step)
		}
	}

	pieces, err := store.Pieces(ctx, "run1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) != 1 || len(pieces[0].Roll) != 1 {
		t.Errorf("unexpected pieces: %+v", pieces)
	}

	empty, err := store.Losses(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown run should be empty, got %d", len(empty))
	}
}

func TestSQLiteStoreUninitialized(t *testing.T) {
	store := NewSQLiteStore("")
	if err := store.Init(context.Background()); err == nil {
		t.Error("expected an error for a missing path")
	}
	if err := store.AddLoss(context.Background(), "r", LossPoint{}); err == nil {
		t.Error("expected an error before Init")
	}
}
