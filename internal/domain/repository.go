package domain

import "context"

// CacheRepository persists translation results keyed by
// (tenant, catalog number, fingerprint).
type CacheRepository interface {
	// Lookup returns the entry for the key, or ErrNotFound.
	Lookup(ctx context.Context, id Identity, fingerprint string) (*CacheEntry, error)
	// InsertIfAbsent commits the entry unless one already exists for its
	// key. It reports false, with no error, when another writer got there
	// first.
	InsertIfAbsent(ctx context.Context, entry *CacheEntry) (bool, error)
	// Recent lists entries ordered by source-modified time, newest first.
	Recent(ctx context.Context, limit int) ([]CacheEntry, error)
	// ByCatalogNumber lists every entry recorded for one catalog number.
	ByCatalogNumber(ctx context.Context, catalogNumber string) ([]CacheEntry, error)
	// Stats reports entry counts and the latest source-modified time.
	Stats(ctx context.Context) (CacheStats, error)
}
