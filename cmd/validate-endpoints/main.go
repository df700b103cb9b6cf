package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/marcelsud/mes-webhooks/config"
	"github.com/marcelsud/mes-webhooks/endpoints"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/postgres"
	"github.com/marcelsud/mes-webhooks/webhook/validation"
)

/* validate-endpoints - Standalone CLI tool to validate endpoints.yaml
 * Usage: go run cmd/validate-endpoints/main.go [--sync] [endpoints.yaml]
 * Every URL is also resolved and checked against the blocked address ranges.
 * With --sync the valid file is written to the Postgres registry at DATABASE_URL.
 * Exit codes: 0 = valid (and synced), 1 = invalid or sync failed
 */

func main() {
	// Get endpoints file path from args or use default
	endpointsFile := "endpoints.yaml"
	syncDB := false
	for _, arg := range os.Args[1:] {
		if arg == "--sync" {
			syncDB = true
			continue
		}
		endpointsFile = arg
	}

	fmt.Printf("Validating endpoints file: %s\n", endpointsFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := endpoints.NewLoader()
	if err := loader.Load(endpointsFile); err != nil {
		fmt.Fprintf(os.Stderr, "VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	validator := validation.NewURLValidator()
	loaded := loader.List()
	failed := 0

	fmt.Printf("Loaded %d endpoint(s):\n", len(loaded))
	for i, e := range loaded {
		fmt.Printf("\n%d. Endpoint: %s\n", i+1, e.ID)
		fmt.Printf("   URL:          %s\n", e.URL)
		fmt.Printf("   Event type:   %s\n", e.EventType)
		fmt.Printf("   Enabled:      %t\n", e.Enabled)
		fmt.Printf("   Signed:       %t\n", e.Secret != "")
		if e.Timeout > 0 {
			fmt.Printf("   Timeout:      %s\n", e.Timeout)
		}
		if e.MaxAttempts > 0 {
			fmt.Printf("   Max attempts: %d\n", e.MaxAttempts)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := validator.Validate(ctx, e.URL)
		cancel()
		if err != nil {
			failed++
			fmt.Printf("   URL check:    FAILED (%v)\n", err)
			continue
		}
		fmt.Printf("   URL check:    ok\n")
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\nVALIDATION FAILED: %d endpoint(s) have unsafe or invalid URLs\n", failed)
		os.Exit(1)
	}
	fmt.Printf("\nAll endpoints are valid!\n")

	if syncDB {
		if err := syncToPostgres(loaded); err != nil {
			fmt.Fprintf(os.Stderr, "\nSYNC FAILED: %v\n", err)
			os.Exit(1)
		}
	}
	os.Exit(0)
}

func syncToPostgres(loaded []webhook.Endpoint) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if !cfg.UsePostgres() {
		return errors.New("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := postgres.NewRepository(ctx, cfg.DatabaseURL, cfg.PostgresMaxConns)
	if err != nil {
		return err
	}
	defer pg.Close(ctx)
	if err := pg.Migrate(ctx); err != nil {
		return err
	}

	report, err := syncEndpoints(ctx, pg, loaded)
	fmt.Printf("\nSynced to postgres: %d added, %d updated, %d unchanged\n", report.Added, report.Updated, report.Unchanged)
	return err
}

// endpointStore is the part of the Postgres registry the sync needs
type endpointStore interface {
	GetEndpoint(ctx context.Context, id string) (webhook.Endpoint, error)
	UpsertEndpoint(ctx context.Context, e webhook.Endpoint) error
}

type syncReport struct {
	Added     int
	Updated   int
	Unchanged int
}

// syncEndpoints writes every endpoint that is missing or differs from the stored row
func syncEndpoints(ctx context.Context, store endpointStore, loaded []webhook.Endpoint) (syncReport, error) {
	var report syncReport
	for _, e := range loaded {
		current, err := store.GetEndpoint(ctx, e.ID)
		switch {
		case errors.Is(err, postgres.ErrNotFound):
			if err := store.UpsertEndpoint(ctx, e); err != nil {
				return report, fmt.Errorf("adding %s: %w", e.ID, err)
			}
			report.Added++
		case err != nil:
			return report, fmt.Errorf("reading %s: %w", e.ID, err)
		case current.Equal(e):
			report.Unchanged++
		default:
			if err := store.UpsertEndpoint(ctx, e); err != nil {
				return report, fmt.Errorf("updating %s: %w", e.ID, err)
			}
			report.Updated++
		}
	}
	return report, nil
}
