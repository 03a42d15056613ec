package domain

import "time"

// CacheEntry is one immutable translation result, keyed by
// (tenant, catalog number, fingerprint). A content change produces a new
// fingerprint and therefore a new entry; superseded entries are retained
// and stay queryable by catalog number.
type CacheEntry struct {
	ID             int64
	Tenant         string
	CatalogNumber  string
	Code           string
	Status         string
	Fingerprint    string
	Translated     Record
	SourceModified time.Time
	CreatedAt      time.Time
}

// CacheStats summarizes the translation store.
type CacheStats struct {
	Entries        int64
	CatalogNumbers int64
	LatestModified *time.Time
}
