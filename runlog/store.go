// Package runlog records the history of training runs:
// the loss after each step and the pieces generated along
// the way.
package runlog

import (
	"context"
	"time"
)

// A LossPoint is the loss measured after one training
// step.
type LossPoint struct {
	Step int
	Loss float64
	At   time.Time
}

// A Piece is a generated roll recorded during a run,
// encoded with songs.EncodeRoll.
type Piece struct {
	Step int
	Roll []byte
	At   time.Time
}

// Store persists run histories. Implementations are safe
// for concurrent use.
type Store interface {
	Init(ctx context.Context) error
	AddLoss(ctx context.Context, run string, point LossPoint) error
	AddPiece(ctx context.Context, run string, piece Piece) error

	// Losses and Pieces return a run's records ordered by
	// step. An unknown run yields an empty slice.
	Losses(ctx context.Context, run string) ([]LossPoint, error)
	Pieces(ctx context.Context, run string) ([]Piece, error)
}
