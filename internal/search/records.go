package search

import (
	"time"

	"github.com/jonathan/showstart-scout/internal/normalize"
	"github.com/jonathan/showstart-scout/internal/types"
)

// NewRecord turns a validated listing into a row for rapperName.
// Unparseable dates fall back to today and set DateFallback.
func NewRecord(rapperName string, listing types.PerformanceListing, now time.Time) types.PerformanceRecord {
	date := normalize.ParseDate(listing.Date, now)

	var timeText *string
	if listing.Date != "" {
		text := listing.Date
		timeText = &text
	}

	guests := make([]string, len(listing.Guests))
	copy(guests, listing.Guests)

	return types.PerformanceRecord{
		RapperName:          rapperName,
		PerformanceDate:     date.Date,
		PerformanceTimeText: timeText,
		Venue:               listing.Venue,
		Address:             listing.Address,
		PricePresale:        normalize.ParsePrice(listing.TicketPrices.Presale),
		PriceRegular:        normalize.ParsePrice(listing.TicketPrices.Regular),
		PriceVIP:            normalize.ParsePrice(listing.TicketPrices.VIP),
		PurchaseURL:         listing.PerformanceURL,
		Guests:              guests,
		Source:              types.SourceShowstart,
		DateFallback:        date.Fallback,
	}
}
