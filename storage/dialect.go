package storage

import (
	"context"
	"database/sql"
	"strconv"
)

// Dialect captures the few places where PostgreSQL and SQLite differ.
type Dialect struct {
	Name   string
	driver string
	schema string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder func(n int) string
	// readOnly runs fn with the connection restricted to reads.
	readOnly func(ctx context.Context, conn *sql.Conn, fn func(q querier) error) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Postgres is the primary store dialect.
var Postgres = Dialect{
	Name:        "postgres",
	driver:      "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	schema: `
		CREATE TABLE IF NOT EXISTS car_sales (
			id            SERIAL PRIMARY KEY,
			rank_num      INTEGER,
			brand         VARCHAR(100)     NOT NULL DEFAULT '',
			series        VARCHAR(200)     NOT NULL DEFAULT '',
			price_range   TEXT             NOT NULL DEFAULT '',
			min_price     DOUBLE PRECISION,
			max_price     DOUBLE PRECISION,
			monthly_sales BIGINT,
			category      VARCHAR(100)     NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_car_sales_min_price ON car_sales(min_price);
		CREATE INDEX IF NOT EXISTS idx_car_sales_sales     ON car_sales(monthly_sales);
		CREATE INDEX IF NOT EXISTS idx_car_sales_category  ON car_sales(category);
	`,
	readOnly: func(ctx context.Context, conn *sql.Conn, fn func(q querier) error) error {
		tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		return fn(tx)
	},
}

// SQLite is the single-file local dialect.
var SQLite = Dialect{
	Name:        "sqlite",
	driver:      "sqlite",
	Placeholder: func(int) string { return "?" },
	schema: `
		CREATE TABLE IF NOT EXISTS car_sales (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			rank_num      INTEGER,
			brand         TEXT NOT NULL DEFAULT '',
			series        TEXT NOT NULL DEFAULT '',
			price_range   TEXT NOT NULL DEFAULT '',
			min_price     REAL,
			max_price     REAL,
			monthly_sales INTEGER,
			category      TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_car_sales_min_price ON car_sales(min_price);
		CREATE INDEX IF NOT EXISTS idx_car_sales_sales     ON car_sales(monthly_sales);
		CREATE INDEX IF NOT EXISTS idx_car_sales_category  ON car_sales(category);
	`,
	readOnly: func(ctx context.Context, conn *sql.Conn, fn func(q querier) error) error {
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return err
		}
		defer func() { _, _ = conn.ExecContext(context.Background(), "PRAGMA query_only = OFF") }()
		return fn(conn)
	},
}
