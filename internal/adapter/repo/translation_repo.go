package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"prodtrans/internal/domain"
	"prodtrans/internal/infra"
	"prodtrans/internal/sqlinline"
)

const defaultRecentLimit = 20

// TranslationRepositoryPG implements domain.CacheRepository backed by PostgreSQL.
type TranslationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewTranslationRepository creates a new TranslationRepositoryPG.
func NewTranslationRepository(sql infra.SQLExecutor) *TranslationRepositoryPG {
	return &TranslationRepositoryPG{sql: sql}
}

var _ domain.CacheRepository = (*TranslationRepositoryPG)(nil)

// EnsureSchema creates the translations tables when they do not exist yet.
func (r *TranslationRepositoryPG) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{
		sqlinline.QCreateTranslationsTable,
		sqlinline.QCreateTranslationsCatalogIndex,
	} {
		if _, err := r.sql.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure translations schema: %v: %w", err, domain.ErrStoreUnavailable)
		}
	}
	return nil
}

// Lookup returns the committed entry for the identity and fingerprint, or
// domain.ErrNotFound on a cache miss.
func (r *TranslationRepositoryPG) Lookup(ctx context.Context, id domain.Identity, fingerprint string) (*domain.CacheEntry, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QLookupTranslation, id.Tenant, id.CatalogNumber, fingerprint)
	return scanTranslation(row)
}

// InsertIfAbsent commits the entry unless one with the same identity and
// fingerprint already exists. It reports whether this call won the insert.
func (r *TranslationRepositoryPG) InsertIfAbsent(ctx context.Context, entry *domain.CacheEntry) (bool, error) {
	raw, err := json.Marshal(entry.Translated)
	if err != nil {
		return false, fmt.Errorf("encode translated record: %w", err)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QInsertTranslation,
		entry.Tenant,
		entry.CatalogNumber,
		entry.Code,
		entry.Status,
		entry.Fingerprint,
		raw,
		entry.SourceModified,
	)
	if err != nil {
		return false, fmt.Errorf("insert translation: %v: %w", err, domain.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return true, nil
}

// Recent returns entries for the most recently modified sources, newest first.
func (r *TranslationRepositoryPG) Recent(ctx context.Context, limit int) ([]domain.CacheEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QRecentTranslations, limit)
	if err != nil {
		return nil, fmt.Errorf("recent translations: %v: %w", err, domain.ErrStoreUnavailable)
	}
	defer rows.Close()
	return collectTranslations(rows)
}

// ByCatalogNumber returns every committed entry for the catalog number,
// newest first.
func (r *TranslationRepositoryPG) ByCatalogNumber(ctx context.Context, catalogNumber string) ([]domain.CacheEntry, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QTranslationsByCatalogNumber, catalogNumber)
	if err != nil {
		return nil, fmt.Errorf("translations by catalog number: %v: %w", err, domain.ErrStoreUnavailable)
	}
	defer rows.Close()
	return collectTranslations(rows)
}

// Stats summarizes the cache contents.
func (r *TranslationRepositoryPG) Stats(ctx context.Context) (domain.CacheStats, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QTranslationStats)
	var stats domain.CacheStats
	var latest *time.Time
	if err := row.Scan(&stats.Entries, &stats.CatalogNumbers, &latest); err != nil {
		return domain.CacheStats{}, fmt.Errorf("translation stats: %v: %w", err, domain.ErrStoreUnavailable)
	}
	stats.LatestModified = latest
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranslation(row rowScanner) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	var translated []byte
	err := row.Scan(
		&e.ID,
		&e.Tenant,
		&e.CatalogNumber,
		&e.Code,
		&e.Status,
		&e.Fingerprint,
		&translated,
		&e.SourceModified,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan translation: %v: %w", err, domain.ErrStoreUnavailable)
	}
	if err := json.Unmarshal(translated, &e.Translated); err != nil {
		return nil, fmt.Errorf("decode translated record: %w", err)
	}
	return &e, nil
}

func collectTranslations(rows pgx.Rows) ([]domain.CacheEntry, error) {
	var entries []domain.CacheEntry
	for rows.Next() {
		e, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %v: %w", err, domain.ErrStoreUnavailable)
	}
	return entries, nil
}
