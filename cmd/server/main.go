package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/scentsync/backend/config"
	httpDelivery "github.com/scentsync/backend/internal/delivery/http"
	"github.com/scentsync/backend/internal/domain"
	"github.com/scentsync/backend/internal/infrastructure/feed"
	"github.com/scentsync/backend/internal/infrastructure/shopify"
	"github.com/scentsync/backend/internal/infrastructure/tagcache"
	"github.com/scentsync/backend/internal/usecase"
)

func main() {
	once := flag.Bool("once", false, "run a single reconciliation and exit")
	flag.Parse()

	// Local development convenience; a missing .env is fine.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting ScentSync Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Primary store: %s (location %s)", cfg.Primary.Domain, cfg.Primary.LocationID)
	if cfg.Secondary.Enabled() {
		log.Printf("Secondary store: %s (location %s)", cfg.Secondary.Domain, cfg.Secondary.LocationID)
	} else {
		log.Printf("Secondary store: not configured")
	}
	log.Printf("Feed source: %s", cfg.Feed.Source)

	// Initialize infrastructure dependencies
	cache, err := tagcache.New(cfg.Cache.Path)
	if err != nil {
		log.Fatalf("Failed to open tag cache: %v", err)
	}
	defer cache.Close()

	primary, err := newStoreClient(cfg, cfg.Primary, "primary")
	if err != nil {
		log.Fatalf("Failed to create primary store client: %v", err)
	}

	var secondary domain.CatalogAPI
	if cfg.Secondary.Enabled() {
		client, err := newStoreClient(cfg, cfg.Secondary, "secondary")
		if err != nil {
			log.Fatalf("Failed to create secondary store client: %v", err)
		}
		secondary = client
	}

	feedSource := feed.NewCSVSource(cfg.Feed.Source, cfg.Feed.NumberColumn, cfg.Feed.CountColumn)

	// Initialize usecase layer
	syncService := usecase.NewSyncService(primary, secondary, cache, feedSource, usecase.SyncServiceConfig{
		Rules:                domain.DefaultRules(),
		PrimaryCollections:   cfg.Primary.Collections,
		SecondaryCollections: cfg.Secondary.Collections,
		ExcludeTitles:        cfg.Sync.ExcludeTitles,
	})

	if *once {
		summary, err := syncService.Run(context.Background())
		if err != nil {
			log.Fatalf("Sync run failed: %v", err)
		}
		log.Printf("Sync run %s completed in %s", summary.RunID, summary.Duration)
		return
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(syncService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newStoreClient(cfg *config.Config, store config.StoreConfig, label string) (*shopify.Client, error) {
	return shopify.NewClient(shopify.ClientConfig{
		Domain:        store.Domain,
		Token:         store.Token,
		LocationID:    store.LocationID,
		Label:         label,
		PageSize:      cfg.Sync.PageSize,
		CallInterval:  cfg.Sync.CallInterval,
		RetryInterval: cfg.Sync.RetryInterval,
		MaxRetries:    cfg.Sync.MaxRetries,
	})
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
