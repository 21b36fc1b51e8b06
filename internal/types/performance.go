// Package types provides type definitions for structured data used throughout the showstart-scout system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceShowstart tags records extracted from showstart.com.
const SourceShowstart = "showstart"

// TicketPrices holds the free-form price text per ticket tier
type TicketPrices struct {
	Presale string `json:"presale,omitempty"`
	Regular string `json:"regular,omitempty"`
	VIP     string `json:"vip,omitempty"`
}

// PerformanceListing is one event as reported by the agent, before normalization.
// JSON keys follow the shape the agent is primed to emit.
type PerformanceListing struct {
	Address        string       `json:"address"`
	Venue          string       `json:"venue"`
	Date           string       `json:"date"`
	Guests         []string     `json:"guest"`
	TicketPrices   TicketPrices `json:"ticket_prices"`
	PerformanceURL string       `json:"performance_url"`
}

// PerformanceResults is the wrapper shape returned by the agent (wrapper for schema)
type PerformanceResults struct {
	Performances []PerformanceListing `json:"performances"`
}

// PerformanceRecord is one persisted row of rapper_performances
type PerformanceRecord struct {
	ID                  int64               `json:"id"`
	RapperName          string              `json:"rapper_name"`
	PerformanceDate     time.Time           `json:"performance_date"`
	PerformanceTimeText *string             `json:"performance_time_text,omitempty"`
	Venue               string              `json:"venue"`
	Address             string              `json:"address"`
	PricePresale        decimal.NullDecimal `json:"price_presale"`
	PriceRegular        decimal.NullDecimal `json:"price_regular"`
	PriceVIP            decimal.NullDecimal `json:"price_vip"`
	PurchaseURL         string              `json:"purchase_url"`
	Guests              []string            `json:"guests"`
	Source              string              `json:"source"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`

	// DateFallback is set when the date text could not be parsed and
	// PerformanceDate holds the current date instead. Not persisted.
	DateFallback bool `json:"-"`
}

// PerformanceDateString returns the performance date as YYYY-MM-DD.
func (r *PerformanceRecord) PerformanceDateString() string {
	return r.PerformanceDate.Format(time.DateOnly)
}
