package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"car-sales/models"
	"car-sales/normalize"
)

const batchSize = 50

// SQLStore persists listings in the car_sales table of a SQL database.
// Every operation takes its own connection from the pool and returns it on
// all paths.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	name    string
}

// NewPostgresStore opens a PostgreSQL-backed store. No connection is made until
// the first operation, so an unreachable server surfaces as ErrUnavailable there.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open(Postgres.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return NewSQLStore(db, Postgres), nil
}

// NewSQLiteStore opens (creating if needed) a single-file SQLite store.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	db, err := sql.Open(SQLite.driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := NewSQLStore(db, SQLite)
	s.name = "sqlite:" + path
	return s, nil
}

// NewSQLStore wraps an existing handle. Tests use it with sqlmock.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d, name: d.Name}
}

// Name identifies the store in results and logs.
func (s *SQLStore) Name() string { return s.name }

// Dialect returns the SQL dialect of the store.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", s.dialect.Name, ErrUnavailable, err)
	}
	defer conn.Close()
	return fn(conn)
}

// Ping checks that a connection can be acquired and used.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("%s: %w: %v", s.dialect.Name, ErrUnavailable, err)
		}
		return nil
	})
}

// EnsureSchema creates the car_sales table and its indexes if missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, s.dialect.schema); err != nil {
			return fmt.Errorf("%s: ensure schema: %w", s.dialect.Name, err)
		}
		return nil
	})
}

// Write replaces the stored snapshot with listings: the table is cleared and
// refilled in batches inside one transaction.
func (s *SQLStore) Write(ctx context.Context, listings []*models.Listing) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%s: begin: %w", s.dialect.Name, err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM car_sales"); err != nil {
			return fmt.Errorf("%s: clear: %w", s.dialect.Name, err)
		}

		for i := 0; i < len(listings); i += batchSize {
			end := i + batchSize
			if end > len(listings) {
				end = len(listings)
			}
			if err := s.insertBatch(ctx, tx, listings[i:end]); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: commit: %w", s.dialect.Name, err)
		}
		return nil
	})
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sql.Tx, batch []*models.Listing) error {
	const cols = 8
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, l := range batch {
		marks := make([]string, cols)
		for c := range marks {
			marks[c] = s.dialect.Placeholder(idx*cols + c + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(marks, ",")+")")
		valueArgs = append(valueArgs,
			nullInt(l.Rank), l.Brand, l.Series, l.PriceRange,
			nullFloat(l.MinPrice), nullFloat(l.MaxPrice), nullInt64(l.MonthlySales), l.Category)
	}

	query := fmt.Sprintf(`INSERT INTO car_sales (rank_num, brand, series, price_range, min_price, max_price, monthly_sales, category) VALUES %s`,
		strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("%s: insert batch: %w", s.dialect.Name, err)
	}
	return nil
}

// BackfillPrices recomputes min/max price for rows that have neither, from
// their stored price text. Rows whose text yields no price are left alone, so
// running it twice updates nothing the second time.
func (s *SQLStore) BackfillPrices(ctx context.Context) (int, error) {
	type pending struct {
		id       int64
		min, max *float64
	}

	updated := 0
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			"SELECT id, price_range FROM car_sales WHERE min_price IS NULL AND max_price IS NULL")
		if err != nil {
			return fmt.Errorf("%s: backfill scan: %w", s.dialect.Name, err)
		}

		var todo []pending
		for rows.Next() {
			var (
				id   int64
				text sql.NullString
			)
			if err := rows.Scan(&id, &text); err != nil {
				rows.Close()
				return fmt.Errorf("%s: backfill row: %w", s.dialect.Name, err)
			}
			if lo, hi := normalize.Price(text.String); lo != nil {
				todo = append(todo, pending{id: id, min: lo, max: hi})
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%s: backfill rows: %w", s.dialect.Name, err)
		}

		stmt := fmt.Sprintf("UPDATE car_sales SET min_price = %s, max_price = %s WHERE id = %s",
			s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3))
		for _, p := range todo {
			if _, err := conn.ExecContext(ctx, stmt, *p.min, *p.max, p.id); err != nil {
				return fmt.Errorf("%s: backfill update %d: %w", s.dialect.Name, p.id, err)
			}
			updated++
		}
		return nil
	})
	return updated, err
}

// Query returns listings matching f, best sellers first.
func (s *SQLStore) Query(ctx context.Context, f models.Filter) ([]*models.Listing, error) {
	query, args := FilterQuery(f, s.dialect.Placeholder)

	var listings []*models.Listing
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: query: %w", s.dialect.Name, err)
		}
		defer rows.Close()

		for rows.Next() {
			l, err := scanListing(rows)
			if err != nil {
				return fmt.Errorf("%s: scan row: %w", s.dialect.Name, err)
			}
			listings = append(listings, l)
		}
		return rows.Err()
	})
	return listings, err
}

// QuerySQL runs an already vetted SELECT with reads only, capped at limit rows.
// Columns are matched by name, so expressions may select any subset.
func (s *SQLStore) QuerySQL(ctx context.Context, expr string, limit int) ([]*models.Listing, error) {
	stmt := fmt.Sprintf("SELECT * FROM (%s) AS ai_query LIMIT %d", expr, limit)

	var listings []*models.Listing
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return s.dialect.readOnly(ctx, conn, func(q querier) error {
			rows, err := q.QueryContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("%s: expression: %w", s.dialect.Name, err)
			}
			defer rows.Close()

			listings, err = scanByName(rows)
			if err != nil {
				return fmt.Errorf("%s: expression rows: %w", s.dialect.Name, err)
			}
			return nil
		})
	})
	return listings, err
}

// Close releases the pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func scanListing(rows *sql.Rows) (*models.Listing, error) {
	var (
		l        models.Listing
		rank     sql.NullInt64
		minPrice sql.NullFloat64
		maxPrice sql.NullFloat64
		sales    sql.NullInt64
	)
	if err := rows.Scan(&l.ID, &rank, &l.Brand, &l.Series, &l.PriceRange,
		&minPrice, &maxPrice, &sales, &l.Category); err != nil {
		return nil, err
	}
	if rank.Valid {
		r := int(rank.Int64)
		l.Rank = &r
	}
	if minPrice.Valid {
		l.MinPrice = &minPrice.Float64
	}
	if maxPrice.Valid {
		l.MaxPrice = &maxPrice.Float64
	}
	if sales.Valid {
		l.MonthlySales = &sales.Int64
	}
	return &l, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
