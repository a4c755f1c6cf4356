package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps one row per (room, key). Content is stored as text since every record is JSON.
type SQLite struct {
	database *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite allows a single writer at a time
	db.SetMaxOpenConns(1)
	s := &SQLite{database: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	if _, err := s.database.Exec(
		`CREATE TABLE IF NOT EXISTS room_records (
		room_id text not null,
		key text not null,
		content text not null,
		primary key (room_id, key)
		)`,
	); err != nil {
		return fmt.Errorf("failed to create room_records table: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, room, key string) ([]byte, error) {
	var rawContent string
	if err := s.database.QueryRowContext(
		ctx,
		`SELECT content FROM room_records WHERE room_id = ? AND key = ?`,
		room, key,
	).Scan(&rawContent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return []byte(rawContent), nil
}

func (s *SQLite) Put(ctx context.Context, room, key string, value []byte) error {
	res, err := s.database.ExecContext(
		ctx,
		`INSERT INTO room_records (room_id, key, content) VALUES (?, ?, ?)
		ON CONFLICT (room_id, key) DO UPDATE SET content = excluded.content`,
		room, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}
	if r, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to count rows affected by upsert: %w", err)
	} else if r == 0 {
		return fmt.Errorf("no rows affected by upsert of %s/%s", room, key)
	}
	return nil
}

func (s *SQLite) Scan(ctx context.Context, key string, fn func(room string, value []byte) error) error {
	rows, err := s.database.QueryContext(
		ctx,
		`SELECT room_id, content FROM room_records WHERE key = ? ORDER BY room_id`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var room, rawContent string
		if err := rows.Scan(&room, &rawContent); err != nil {
			return fmt.Errorf("failed to scan: %w", err)
		}
		if err := fn(room, []byte(rawContent)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) Close() error {
	return s.database.Close()
}
