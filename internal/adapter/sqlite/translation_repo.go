package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"prodtrans/internal/domain"
)

var translationColumns = []string{
	"id",
	"tenant",
	"catalog_number",
	"code",
	"status",
	"fingerprint",
	"translated",
	"source_modified",
	"created_at",
}

// TranslationRepo implements domain.CacheRepository over a local SQLite file.
type TranslationRepo struct {
	DB *sql.DB
	SQ sq.StatementBuilderType
}

func NewTranslationRepo(db *sql.DB) *TranslationRepo {
	return &TranslationRepo{DB: db, SQ: sq.StatementBuilder}
}

var _ domain.CacheRepository = (*TranslationRepo)(nil)

func (r *TranslationRepo) Lookup(ctx context.Context, id domain.Identity, fingerprint string) (*domain.CacheEntry, error) {
	q := r.SQ.Select(translationColumns...).
		From("translations").
		Where(sq.Eq{
			"tenant":         id.Tenant,
			"catalog_number": id.CatalogNumber,
			"fingerprint":    fingerprint,
		}).
		Limit(1)
	sqlStr, args, _ := q.ToSql()
	entry, err := scanEntry(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *TranslationRepo) InsertIfAbsent(ctx context.Context, entry *domain.CacheEntry) (bool, error) {
	raw, err := json.Marshal(entry.Translated)
	if err != nil {
		return false, fmt.Errorf("encode translated record: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	q := r.SQ.Insert("translations").
		Columns("tenant", "catalog_number", "code", "status", "fingerprint", "translated", "source_modified", "created_at").
		Values(
			entry.Tenant,
			entry.CatalogNumber,
			entry.Code,
			entry.Status,
			entry.Fingerprint,
			string(raw),
			entry.SourceModified.UTC().Format(time.RFC3339),
			createdAt.Format(time.RFC3339),
		).
		Suffix("ON CONFLICT(tenant, catalog_number, fingerprint) DO NOTHING")
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, fmt.Errorf("insert translation: %v: %w", err, domain.ErrStoreUnavailable)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert translation: %v: %w", err, domain.ErrStoreUnavailable)
	}
	if affected == 0 {
		return false, nil
	}
	entry.CreatedAt = createdAt
	return true, nil
}

func (r *TranslationRepo) Recent(ctx context.Context, limit int) ([]domain.CacheEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.SQ.Select(translationColumns...).
		From("translations").
		OrderBy("source_modified DESC", "id DESC").
		Limit(uint64(limit))
	return r.query(ctx, q)
}

func (r *TranslationRepo) ByCatalogNumber(ctx context.Context, catalogNumber string) ([]domain.CacheEntry, error) {
	q := r.SQ.Select(translationColumns...).
		From("translations").
		Where(sq.Eq{"catalog_number": catalogNumber}).
		OrderBy("created_at DESC", "id DESC")
	return r.query(ctx, q)
}

func (r *TranslationRepo) Stats(ctx context.Context) (domain.CacheStats, error) {
	q := r.SQ.Select(
		"count(*)",
		"count(distinct catalog_number)",
		"max(source_modified)",
	).From("translations")
	sqlStr, args, _ := q.ToSql()
	var stats domain.CacheStats
	var latest sql.NullString
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&stats.Entries, &stats.CatalogNumbers, &latest); err != nil {
		return domain.CacheStats{}, fmt.Errorf("translation stats: %v: %w", err, domain.ErrStoreUnavailable)
	}
	if latest.Valid {
		at, err := time.Parse(time.RFC3339, latest.String)
		if err != nil {
			return domain.CacheStats{}, fmt.Errorf("parse latest modified: %w", err)
		}
		stats.LatestModified = &at
	}
	return stats, nil
}

func (r *TranslationRepo) query(ctx context.Context, q sq.SelectBuilder) ([]domain.CacheEntry, error) {
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query translations: %v: %w", err, domain.ErrStoreUnavailable)
	}
	defer rows.Close()

	var entries []domain.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %v: %w", err, domain.ErrStoreUnavailable)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	var translated, sourceModified, createdAt string
	err := row.Scan(
		&e.ID,
		&e.Tenant,
		&e.CatalogNumber,
		&e.Code,
		&e.Status,
		&e.Fingerprint,
		&translated,
		&sourceModified,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan translation: %v: %w", err, domain.ErrStoreUnavailable)
	}
	if err := json.Unmarshal([]byte(translated), &e.Translated); err != nil {
		return nil, fmt.Errorf("decode translated record: %w", err)
	}
	if e.SourceModified, err = time.Parse(time.RFC3339, sourceModified); err != nil {
		return nil, fmt.Errorf("parse source modified: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created at: %w", err)
	}
	return &e, nil
}
