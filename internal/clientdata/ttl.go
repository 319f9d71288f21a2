package clientdata

import "time"

// TTL constants for market data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLCurrentPrice  = time.Minute      // last trade moves constantly
	TTLDailyStats    = 15 * time.Minute // previous-session open/high/low
	TTLAggregates    = time.Hour        // hourly bars
	TTLTickerDetails = 24 * time.Hour   // company reference data

	// StaleRetention is how long expired rows are kept as a fallback for
	// when the upstream API is failing.
	StaleRetention = 24 * time.Hour
)
