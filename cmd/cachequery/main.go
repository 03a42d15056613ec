package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"prodtrans/internal/adapter/repo"
	"prodtrans/internal/domain"
	"prodtrans/internal/infra"
	"prodtrans/internal/storage"
	"prodtrans/pkg/zip"
)

// exportLimit caps an export that names no selection of its own.
const exportLimit = 1000

func main() {
	var (
		recentFlag  int
		catalogFlag string
		statsFlag   bool
		exportFlag  string
		zipFlag     bool
	)

	flag.IntVar(&recentFlag, "recent", 0, "list the N most recent cache entries")
	flag.StringVar(&catalogFlag, "catalog", "", "list every cached translation of one catalog number")
	flag.BoolVar(&statsFlag, "stats", false, "print cache totals")
	flag.StringVar(&exportFlag, "export", "", "export the selected entries as JSON files into this directory")
	flag.BoolVar(&zipFlag, "zip", false, "bundle the export into a single translations.zip")
	flag.Parse()

	_ = godotenv.Load()

	if recentFlag <= 0 && catalogFlag == "" && !statsFlag && exportFlag == "" {
		exitWithError(errors.New("one of -recent, -catalog, -stats, or -export must be provided"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "cachequery").Logger()
	cache := repo.NewTranslationRepository(infra.NewSQLRunner(pool, logger))

	if statsFlag {
		stats, err := cache.Stats(ctx)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load stats: %w", err))
		}
		fmt.Printf("entries=%d\n", stats.Entries)
		fmt.Printf("catalog_numbers=%d\n", stats.CatalogNumbers)
		if stats.LatestModified != nil {
			fmt.Printf("latest_modified=%s\n", stats.LatestModified.Format(time.RFC3339))
		}
	}

	var entries []domain.CacheEntry
	switch {
	case catalogFlag != "":
		entries, err = cache.ByCatalogNumber(ctx, catalogFlag)
	case recentFlag > 0:
		entries, err = cache.Recent(ctx, recentFlag)
	case exportFlag != "":
		entries, err = cache.Recent(ctx, exportLimit)
	}
	if err != nil {
		exitWithError(fmt.Errorf("failed to load entries: %w", err))
	}

	if exportFlag == "" && (recentFlag > 0 || catalogFlag != "") {
		printEntries(entries)
		return
	}

	if exportFlag != "" {
		if err := exportEntries(ctx, exportFlag, entries, zipFlag); err != nil {
			exitWithError(err)
		}
	}
}

func printEntries(entries []domain.CacheEntry) {
	for _, e := range entries {
		fmt.Printf("%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Tenant, e.CatalogNumber, e.Status, e.Fingerprint,
			e.CreatedAt.Format(time.RFC3339))
	}
}

func exportEntries(ctx context.Context, dir string, entries []domain.CacheEntry, bundle bool) error {
	store, err := storage.NewExportStore(dir)
	if err != nil {
		return err
	}

	if bundle {
		files := make([]zip.File, 0, len(entries))
		for _, e := range entries {
			data, err := storage.MarshalEntry(e)
			if err != nil {
				return err
			}
			files = append(files, zip.File{Name: storage.EntryKey(e), Data: data})
		}
		archive, err := zip.Archive(files)
		if err != nil {
			return err
		}
		key, err := store.Write(ctx, "translations.zip", archive)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d entries to %s\n", len(entries), filepath.Join(store.BasePath(), key))
		return nil
	}

	for _, e := range entries {
		if _, err := store.WriteEntry(ctx, e); err != nil {
			return err
		}
	}
	fmt.Printf("exported %d entries to %s\n", len(entries), store.BasePath())
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
