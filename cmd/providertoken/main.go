package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"prodtrans/internal/infra"
	"prodtrans/internal/infra/credentials"
)

func main() {
	var (
		keyFlag  string
		showFlag bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key to store (falls back to INTENTO_API_KEY)")
	flag.BoolVar(&showFlag, "show", false, "print the stored key instead of writing one")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "providertoken").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	execCtx, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()

	if err := store.EnsureSchema(execCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ensure token table: %v\n", err)
		os.Exit(1)
	}

	if showFlag {
		token, err := store.IntentoAPIKey(execCtx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load intento api key: %v\n", err)
			os.Exit(1)
		}
		if token == "" {
			fmt.Println("no Intento API key stored")
			return
		}
		fmt.Println(token)
		return
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("INTENTO_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "Intento API key is required via -key or INTENTO_API_KEY")
		os.Exit(1)
	}

	if err := store.SetIntentoAPIKey(execCtx, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist intento api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Intento API key stored successfully")
}
