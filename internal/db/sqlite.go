package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/jonathan/showstart-scout/internal/types"
)

// SQLiteStore implements Store on a local SQLite database.
// It backs single-node deployments and the in-process tests.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// OpenSQLite opens (or creates) the SQLite database at dsn.
// In-memory databases are pinned to a single connection so every operation sees the same data.
func OpenSQLite(dsn string, opts Options) (*SQLiteStore, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite3://")
	dsn = strings.TrimPrefix(dsn, "sqlite://")

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLiteStore{db: db, opts: opts}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates rapper_performances if absent
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return opError("ensure schema", err)
	}
	return nil
}

// ExpirePast deletes the performer's records dated before today.
// Dates are stored as YYYY-MM-DD text, so string comparison is date comparison.
func (s *SQLiteStore) ExpirePast(ctx context.Context, rapperName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rapper_performances WHERE rapper_name = ? AND performance_date < ?`,
		rapperName, s.opts.today(),
	)
	if err != nil {
		return 0, opError("expire past", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, opError("expire past", err)
	}
	return n, nil
}

// Insert stores one record and fills in its generated id and timestamps
func (s *SQLiteStore) Insert(ctx context.Context, record *types.PerformanceRecord) (int64, error) {
	guests, err := encodeGuests(record.Guests)
	if err != nil {
		return 0, opError("insert", err)
	}

	now := s.opts.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rapper_performances (
			rapper_name, performance_date, performance_time_text, venue, address,
			price_presale, price_regular, price_vip, purchase_url, guests_json, source,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RapperName, record.PerformanceDateString(), record.PerformanceTimeText,
		record.Venue, record.Address,
		record.PricePresale, record.PriceRegular, record.PriceVIP,
		record.PurchaseURL, string(guests), sourceOrDefault(record.Source),
		now, now,
	)
	if err != nil {
		return 0, opError("insert", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, opError("insert", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	return affected, nil
}

// InsertBatch inserts records sequentially without a shared transaction
func (s *SQLiteStore) InsertBatch(ctx context.Context, records []types.PerformanceRecord, rapperName string) (int64, error) {
	return insertEach(ctx, s.Insert, records, rapperName)
}

// ListByPerformer returns stored records for a performer
func (s *SQLiteStore) ListByPerformer(ctx context.Context, rapperName string) ([]types.PerformanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM rapper_performances
		 WHERE rapper_name = ? ORDER BY performance_date, id`,
		rapperName,
	)
	if err != nil {
		return nil, opError("list", err)
	}
	defer func() { _ = rows.Close() }()

	var records []types.PerformanceRecord
	for rows.Next() {
		var r types.PerformanceRecord
		var timeText, guests sql.NullString
		if err := rows.Scan(&r.ID, &r.RapperName, &r.PerformanceDate, &timeText,
			&r.Venue, &r.Address, &r.PricePresale, &r.PriceRegular, &r.PriceVIP,
			&r.PurchaseURL, &guests, &r.Source, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, opError("list", fmt.Errorf("failed to scan record: %w", err))
		}
		if timeText.Valid {
			text := timeText.String
			r.PerformanceTimeText = &text
		}
		r.Guests, err = decodeGuests([]byte(guests.String))
		if err != nil {
			return nil, opError("list", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, opError("list", err)
	}
	return records, nil
}
