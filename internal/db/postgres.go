package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/showstart-scout/internal/types"
)

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
	opts Options
}

// ConnectPostgres establishes a connection pool to the database
func ConnectPostgres(ctx context.Context, databaseURL string, opts Options) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, opts: opts}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates rapper_performances if absent
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return opError("ensure schema", err)
	}
	return nil
}

// ExpirePast deletes the performer's records dated before today
func (s *PostgresStore) ExpirePast(ctx context.Context, rapperName string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM rapper_performances WHERE rapper_name = $1 AND performance_date < $2::date`,
		rapperName, s.opts.today(),
	)
	if err != nil {
		return 0, opError("expire past", err)
	}
	return tag.RowsAffected(), nil
}

// Insert stores one record and fills in its generated id and timestamps
func (s *PostgresStore) Insert(ctx context.Context, record *types.PerformanceRecord) (int64, error) {
	guests, err := encodeGuests(record.Guests)
	if err != nil {
		return 0, opError("insert", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO rapper_performances (
			rapper_name, performance_date, performance_time_text, venue, address,
			price_presale, price_regular, price_vip, purchase_url, guests_json, source
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		record.RapperName, record.PerformanceDateString(), record.PerformanceTimeText,
		record.Venue, record.Address,
		record.PricePresale, record.PriceRegular, record.PriceVIP,
		record.PurchaseURL, guests, sourceOrDefault(record.Source),
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return 0, opError("insert", err)
	}
	return 1, nil
}

// InsertBatch inserts records sequentially without a shared transaction
func (s *PostgresStore) InsertBatch(ctx context.Context, records []types.PerformanceRecord, rapperName string) (int64, error) {
	return insertEach(ctx, s.Insert, records, rapperName)
}

// ListByPerformer returns stored records for a performer
func (s *PostgresStore) ListByPerformer(ctx context.Context, rapperName string) ([]types.PerformanceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM rapper_performances
		 WHERE rapper_name = $1 ORDER BY performance_date, id`,
		rapperName,
	)
	if err != nil {
		return nil, opError("list", err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.PerformanceRecord, error) {
		var r types.PerformanceRecord
		var guests []byte
		if err := row.Scan(&r.ID, &r.RapperName, &r.PerformanceDate, &r.PerformanceTimeText,
			&r.Venue, &r.Address, &r.PricePresale, &r.PriceRegular, &r.PriceVIP,
			&r.PurchaseURL, &guests, &r.Source, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return r, err
		}
		decoded, decodeErr := decodeGuests(guests)
		if decodeErr != nil {
			return r, decodeErr
		}
		r.Guests = decoded
		return r, nil
	})
	if err != nil {
		return nil, opError("list", err)
	}
	return records, nil
}

func encodeGuests(guests []string) ([]byte, error) {
	if guests == nil {
		guests = []string{}
	}
	data, err := json.Marshal(guests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal guests: %w", err)
	}
	return data, nil
}

func decodeGuests(data []byte) ([]string, error) {
	guests := []string{}
	if len(data) == 0 {
		return guests, nil
	}
	if err := json.Unmarshal(data, &guests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guests: %w", err)
	}
	if guests == nil {
		guests = []string{}
	}
	return guests, nil
}
