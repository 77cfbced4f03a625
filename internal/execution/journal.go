package execution

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scalper/internal/model"
)

// Journal persists fills to SQLite as an audit log. Nothing is restored
// from it on startup.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    TEXT NOT NULL UNIQUE,
		symbol      TEXT NOT NULL,
		side        TEXT NOT NULL,
		type        TEXT NOT NULL,
		amount      REAL NOT NULL,
		price       REAL NOT NULL,
		slippage    REAL DEFAULT 0,
		status      TEXT NOT NULL,
		filled_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_filled_at ON trades(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	slog.Info("trade journal opened", slog.String("path", dbPath))
	return &Journal{db: db}, nil
}

// RecordFill persists a fill to the journal.
func (j *Journal) RecordFill(f Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	o := f.Order
	_, err := j.db.Exec(
		`INSERT INTO trades (order_id, symbol, side, type, amount, price, slippage, status, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Symbol, string(o.Side), o.Type, o.Amount, o.Price, f.Slippage, o.Status,
		o.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal insert %s: %w", o.ID, err)
	}
	return nil
}

// RecordCancel marks a journaled order cancelled.
func (j *Journal) RecordCancel(orderID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.db.Exec(`UPDATE trades SET status = ? WHERE order_id = ?`, model.OrderStatusCancelled, orderID); err != nil {
		return fmt.Errorf("journal cancel %s: %w", orderID, err)
	}
	return nil
}

// TradeRecord represents a row from the trades table.
type TradeRecord struct {
	ID       int64   `json:"id"`
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
	Slippage float64 `json:"slippage"`
	Status   string  `json:"status"`
	FilledAt string  `json:"filled_at"`
}

// GetTrades returns the last N trades, newest first.
func (j *Journal) GetTrades(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, order_id, symbol, side, type, amount, price, slippage, status, filled_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Side, &t.Type,
			&t.Amount, &t.Price, &t.Slippage, &t.Status, &t.FilledAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// DB exposes the handle for the liveness checker.
func (j *Journal) DB() *sql.DB { return j.db }

// Ping checks the database connection for health reporting.
func (j *Journal) Ping() error {
	return j.db.Ping()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
