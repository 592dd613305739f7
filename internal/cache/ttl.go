package cache

import "time"

// Default TTLs for the cached data categories. These are added to
// time.Now() when storing. Config can override each one.
const (
	// Daily data (one refresh per day is plenty)
	TTLSectors      = 24 * time.Hour // Sector ETF rolling returns
	TTLEvents       = 24 * time.Hour // Economic calendar
	TTLConstituents = 24 * time.Hour // ETF holdings breakdown

	// Short-lived data (changes during the trading day)
	TTLNews         = time.Hour      // General market news
	TTLWorldMarkets = 5 * time.Minute // Global index quotes

	// Watchlist quotes are never cached - they must reflect explicit
	// add/remove immediately, so every fetch goes to origin.
)
