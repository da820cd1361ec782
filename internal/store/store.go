// Package store provides the SQLite trade journal.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"okx-trader/internal/models"
)

// SQLiteStore persists submitted orders and their fills.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the journal database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		inst_id TEXT NOT NULL,
		side TEXT NOT NULL,
		order_type TEXT NOT NULL,
		quantity REAL NOT NULL,
		quote_quantity REAL NOT NULL,
		price REAL NOT NULL,
		client_order_id TEXT,
		approved INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS fills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		inst_id TEXT NOT NULL,
		ts INTEGER NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		quantity REAL NOT NULL,
		fee REAL NOT NULL,
		exchange_order_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fills_inst ON fills(inst_id, ts);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordOrder journals an order and its risk-gate outcome.
func (s *SQLiteStore) RecordOrder(order models.Order, approved bool) error {
	_, err := s.db.Exec(`
		INSERT INTO orders (inst_id, side, order_type, quantity, quote_quantity, price, client_order_id, approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.InstID, string(order.Side), string(order.Type),
		order.Quantity, order.QuoteQuantity, order.Price,
		order.ClientOrderID, approved)
	if err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}
	return nil
}

// RecordFill journals an executed fill.
func (s *SQLiteStore) RecordFill(fill models.Fill) error {
	_, err := s.db.Exec(`
		INSERT INTO fills (inst_id, ts, side, price, quantity, fee, exchange_order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fill.InstID, fill.TS, string(fill.Side),
		fill.Price, fill.Quantity, fill.Fee,
		fill.Meta["okx_order_id"])
	if err != nil {
		return fmt.Errorf("failed to record fill: %w", err)
	}
	return nil
}

// FillRecord is a journaled fill row.
type FillRecord struct {
	ID              int64
	InstID          string
	TS              int64
	Side            string
	Price           float64
	Quantity        float64
	Fee             float64
	ExchangeOrderID string
	CreatedAt       time.Time
}

// ListFills returns the most recent fills, newest first.
func (s *SQLiteStore) ListFills(ctx context.Context, limit int) ([]FillRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inst_id, ts, side, price, quantity, fee, exchange_order_id, created_at
		FROM fills ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.ID, &f.InstID, &f.TS, &f.Side, &f.Price, &f.Quantity, &f.Fee, &f.ExchangeOrderID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
