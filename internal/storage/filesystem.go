package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"prodtrans/internal/domain"
)

// ExportStore writes cached translations as JSON documents onto the local
// filesystem, one file per entry.
type ExportStore struct {
	basePath string
}

// NewExportStore initializes an ExportStore rooted at basePath.
func NewExportStore(basePath string) (*ExportStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &ExportStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *ExportStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// EntryKey returns the relative path an entry is exported under. Entries of
// the same catalog number share a directory; the fingerprint keeps
// superseded exports side by side.
func EntryKey(e domain.CacheEntry) string {
	return path.Join(e.Tenant, e.CatalogNumber, e.Fingerprint+".json")
}

// MarshalEntry renders the export document for one entry.
func MarshalEntry(e domain.CacheEntry) ([]byte, error) {
	doc := map[string]any{
		"tenant":          e.Tenant,
		"catalog_number":  e.CatalogNumber,
		"code":            e.Code,
		"status":          e.Status,
		"fingerprint":     e.Fingerprint,
		"source_modified": e.SourceModified,
		"created_at":      e.CreatedAt,
		"record":          e.Translated,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: marshal entry: %w", err)
	}
	return data, nil
}

// WriteEntry persists the entry under EntryKey and returns the key written.
func (s *ExportStore) WriteEntry(ctx context.Context, e domain.CacheEntry) (string, error) {
	data, err := MarshalEntry(e)
	if err != nil {
		return "", err
	}
	return s.Write(ctx, EntryKey(e), data)
}

// Write persists the provided bytes at the given relative key and returns the
// canonicalized storage key. Keys are cleaned to prevent directory traversal.
func (s *ExportStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
