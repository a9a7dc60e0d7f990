//go:build sqlite

package runlog

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps run histories in a SQLite database.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) AddLoss(ctx context.Context, run string, point LossPoint) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO losses (run, step, loss, at)
		VALUES (?, ?, ?, ?)
	`, run, point.Step, point.Loss, point.At.UnixNano())
	return err
}

func (s *SQLiteStore) AddPiece(ctx context.Context, run string, piece Piece) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO pieces (run, step, roll, at)
		VALUES (?, ?, ?, ?)
	`, run, piece.Step, piece.Roll, piece.At.UnixNano())
	return err
}

func (s *SQLiteStore) Losses(ctx context.Context, run string) ([]LossPoint, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT step, loss, at FROM losses
		WHERE run = ?
		ORDER BY step
	`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []LossPoint{}
	for rows.Next() {
		var point LossPoint
		var at int64
		if err := rows.Scan(&point.Step, &point.Loss, &at); err != nil {
			return nil, err
		}
		point.At = time.Unix(0, at)
		res = append(res, point)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) Pieces(ctx context.Context, run string) ([]Piece, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT step, roll, at FROM pieces
		WHERE run = ?
		ORDER BY step
	`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Piece{}
	for rows.Next() {
		var piece Piece
		var at int64
		if err := rows.Scan(&piece.Step, &piece.Roll, &at); err != nil {
			return nil, err
		}
		piece.At = time.Unix(0, at)
		res = append(res, piece)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS losses (
			run TEXT NOT NULL,
			step INTEGER NOT NULL,
			loss REAL NOT NULL,
			at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pieces (
			run TEXT NOT NULL,
			step INTEGER NOT NULL,
			roll BLOB NOT NULL,
			at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS losses_run ON losses(run);
		CREATE INDEX IF NOT EXISTS pieces_run ON pieces(run);
	`)
	return err
}
