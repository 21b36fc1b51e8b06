// Package db provides the persistence gateway for performance records.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/showstart-scout/internal/types"
)

// Table is the single table owned by the gateway.
const Table = "rapper_performances"

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Store is the persistence gateway. Every operation runs on its own pooled
// connection and commits on its own; no two operations share a transaction.
type Store interface {
	// EnsureSchema creates the table and index if absent. Safe on every start.
	EnsureSchema(ctx context.Context) error
	// ExpirePast deletes the performer's records dated strictly before today.
	ExpirePast(ctx context.Context, rapperName string) (int64, error)
	// Insert stores one record without any deduplication.
	Insert(ctx context.Context, record *types.PerformanceRecord) (int64, error)
	// InsertBatch inserts records one by one, stamping rapperName on each.
	// It stops at the first failure; rows already inserted stay.
	InsertBatch(ctx context.Context, records []types.PerformanceRecord, rapperName string) (int64, error)
	// ListByPerformer returns the performer's records ordered by date then id.
	ListByPerformer(ctx context.Context, rapperName string) ([]types.PerformanceRecord, error)
	// Close releases the underlying pool.
	Close() error
}

// Clock returns the current time; the gateway derives "today" from it.
type Clock func() time.Time

// Options configures a Store.
type Options struct {
	Clock Clock
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// today formats the clock's current date as YYYY-MM-DD.
func (o Options) today() string {
	return o.now().Format(time.DateOnly)
}

// Open connects to the store named by driver. An empty driver is inferred from the URL.
func Open(ctx context.Context, driver, databaseURL string, opts Options) (Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if driver == "" {
		driver = inferDriver(databaseURL)
	}

	switch driver {
	case DriverPostgres, "pgx", "postgresql":
		return ConnectPostgres(ctx, databaseURL, opts)
	case DriverSQLite, "sqlite":
		return OpenSQLite(databaseURL, opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func inferDriver(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// insertEach runs insert for every record, summing affected rows.
func insertEach(ctx context.Context, insert func(context.Context, *types.PerformanceRecord) (int64, error), records []types.PerformanceRecord, rapperName string) (int64, error) {
	var total int64
	for i := range records {
		if rapperName != "" {
			records[i].RapperName = rapperName
		}
		n, err := insert(ctx, &records[i])
		if err != nil {
			return total, fmt.Errorf("batch insert stopped at record %d of %d: %w", i+1, len(records), err)
		}
		total += n
	}
	return total, nil
}

func sourceOrDefault(source string) string {
	if source == "" {
		return types.SourceShowstart
	}
	return source
}
