package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"pairs_go/internal/domain"
	"pairs_go/pkg/quant"
)

// TradeJournal is the append-only trade-event log, kept in SQLite so the
// history survives restarts and stays queryable for status replies.
type TradeJournal struct {
	db *sql.DB
}

// NewTradeJournal opens (or creates) the journal database with WAL mode.
func NewTradeJournal(dbPath string) (*TradeJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			sym1 TEXT NOT NULL,
			sym2 TEXT NOT NULL,
			side1 TEXT NOT NULL,
			side2 TEXT NOT NULL,
			price1 INTEGER NOT NULL,
			price2 INTEGER NOT NULL,
			qty1 INTEGER NOT NULL,
			qty2 INTEGER NOT NULL,
			action TEXT NOT NULL,
			pnl INTEGER
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("create trades table: %w", err)
	}

	return &TradeJournal{db: db}, nil
}

// Append writes one trade event.
func (j *TradeJournal) Append(ctx context.Context, ev domain.TradeEvent) error {
	var pnl sql.NullInt64
	if ev.PnLMicros != nil {
		pnl = sql.NullInt64{Int64: *ev.PnLMicros, Valid: true}
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (ts, sym1, sym2, side1, side2, price1, price2, qty1, qty2, action, pnl)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(ev.TsUnixM), ev.Sym1, ev.Sym2, string(ev.Side1), string(ev.Side2),
		int64(ev.Price1), int64(ev.Price2), int64(ev.Qty1), int64(ev.Qty2),
		ev.Action, pnl,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Recent returns the newest n events, oldest first.
func (j *TradeJournal) Recent(ctx context.Context, n int) ([]domain.TradeEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT ts, sym1, sym2, side1, side2, price1, price2, qty1, qty2, action, pnl
		 FROM (SELECT * FROM trades ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var events []domain.TradeEvent
	for rows.Next() {
		var ev domain.TradeEvent
		var ts, price1, price2, qty1, qty2 int64
		var side1, side2 string
		var pnl sql.NullInt64

		if err := rows.Scan(&ts, &ev.Sym1, &ev.Sym2, &side1, &side2,
			&price1, &price2, &qty1, &qty2, &ev.Action, &pnl); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		ev.TsUnixM = quant.TimeStamp(ts)
		ev.Side1 = domain.Side(side1)
		ev.Side2 = domain.Side(side2)
		ev.Price1 = quant.PriceMicros(price1)
		ev.Price2 = quant.PriceMicros(price2)
		ev.Qty1 = quant.QtySats(qty1)
		ev.Qty2 = quant.QtySats(qty2)
		if pnl.Valid {
			v := pnl.Int64
			ev.PnLMicros = &v
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return events, nil
}

// Close closes the database connection.
func (j *TradeJournal) Close() error {
	return j.db.Close()
}
