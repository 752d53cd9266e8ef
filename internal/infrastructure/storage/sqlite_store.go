// Package storage persists accounts, positions and the last-known price table.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"brokerage_tracker/internal/app/port"
	"brokerage_tracker/internal/domain/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id   TEXT PRIMARY KEY,
	seq  INTEGER NOT NULL,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	id         TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	account_id TEXT NOT NULL DEFAULT '',
	symbol     TEXT NOT NULL,
	quantity   REAL NOT NULL DEFAULT 0,
	cost_basis REAL NOT NULL DEFAULT 0,
	notes      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS prices (
	symbol TEXT PRIMARY KEY,
	price  REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	metaVersion         = "version"
	metaPricesUpdatedAt = "prices_updated_at"
)

var _ port.PortfolioRepository = (*SQLiteStore)(nil)

// SQLiteStore implements port.PortfolioRepository on a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger port.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway store.
func OpenSQLite(path string, logger port.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("Opened portfolio database", "path", path)
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements port.PortfolioRepository.
func (s *SQLiteStore) Load(ctx context.Context) (entity.StoreState, error) {
	state := entity.EmptyStoreState()

	accRows, err := s.db.QueryContext(ctx, `SELECT id, name FROM accounts ORDER BY seq`)
	if err != nil {
		return state, fmt.Errorf("failed to query accounts: %w", err)
	}
	for accRows.Next() {
		var a entity.Account
		if err := accRows.Scan(&a.ID, &a.Name); err != nil {
			_ = accRows.Close()
			return state, fmt.Errorf("failed to scan account: %w", err)
		}
		state.Accounts = append(state.Accounts, a)
	}
	if err := closeRows(accRows); err != nil {
		return state, fmt.Errorf("failed to read accounts: %w", err)
	}

	posRows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, symbol, quantity, cost_basis, notes FROM positions ORDER BY seq`)
	if err != nil {
		return state, fmt.Errorf("failed to query positions: %w", err)
	}
	for posRows.Next() {
		var p entity.Position
		if err := posRows.Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Quantity, &p.CostBasis, &p.Notes); err != nil {
			_ = posRows.Close()
			return state, fmt.Errorf("failed to scan position: %w", err)
		}
		state.Positions = append(state.Positions, p)
	}
	if err := closeRows(posRows); err != nil {
		return state, fmt.Errorf("failed to read positions: %w", err)
	}

	priceRows, err := s.db.QueryContext(ctx, `SELECT symbol, price FROM prices`)
	if err != nil {
		return state, fmt.Errorf("failed to query prices: %w", err)
	}
	for priceRows.Next() {
		var (
			raw   string
			price float64
		)
		if err := priceRows.Scan(&raw, &price); err != nil {
			_ = priceRows.Close()
			return state, fmt.Errorf("failed to scan price: %w", err)
		}
		if sym, ok := entity.NormalizeSymbol(raw); ok && !state.Prices.Set(sym, price) {
			s.logger.Warn("Ignoring stored price that is not usable", "symbol", raw, "price", price)
		}
	}
	if err := closeRows(priceRows); err != nil {
		return state, fmt.Errorf("failed to read prices: %w", err)
	}

	updatedAt, err := s.meta(ctx, metaPricesUpdatedAt)
	if err != nil {
		return state, err
	}
	if updatedAt != "" {
		t, perr := time.Parse(time.RFC3339Nano, updatedAt)
		if perr != nil {
			s.logger.Warn("Ignoring malformed price timestamp", "value", updatedAt, "error", perr)
		} else {
			state.PricesUpdatedAt = t
		}
	}
	return state, nil
}

// Save implements port.PortfolioRepository. The stored contents are replaced
// in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, state entity.StoreState) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Failed to roll back save", "error", rbErr)
			}
		}
	}()

	for _, table := range []string{"accounts", "positions", "prices", "meta"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, a := range state.Accounts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (id, seq, name) VALUES (?, ?, ?)`, a.ID, i, a.Name); err != nil {
			return fmt.Errorf("failed to insert account %s: %w", a.ID, err)
		}
	}
	for i, p := range state.Positions {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO positions (id, seq, account_id, symbol, quantity, cost_basis, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, p.AccountID, p.Symbol, p.Quantity, p.CostBasis, p.Notes); err != nil {
			return fmt.Errorf("failed to insert position %s: %w", p.ID, err)
		}
	}
	for sym, price := range state.Prices {
		if !entity.IsValidPrice(price) {
			continue
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO prices (symbol, price) VALUES (?, ?)`, sym.String(), price); err != nil {
			return fmt.Errorf("failed to insert price %s: %w", sym, err)
		}
	}

	meta := map[string]string{metaVersion: strconv.Itoa(entity.StoreVersion)}
	if !state.PricesUpdatedAt.IsZero() {
		meta[metaPricesUpdatedAt] = state.PricesUpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	for k, v := range meta {
		if _, err = tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write meta %s: %w", k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	s.logger.Debug("Saved portfolio state",
		"accounts", len(state.Accounts),
		"positions", len(state.Positions),
		"prices", len(state.Prices))
	return nil
}

func (s *SQLiteStore) meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}
