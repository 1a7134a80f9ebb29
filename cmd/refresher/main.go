// Command refresher runs the market data ingest and liquidity refresh
// cycle: fetch the three marketplaces, then rebuild the scored snapshot.
// Runs a single cycle with -once, otherwise loops on the configured
// interval.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csgo-liquidity/internal/config"
	"csgo-liquidity/internal/database"
	"csgo-liquidity/internal/fetcher"
	"csgo-liquidity/internal/liquidity"
	"csgo-liquidity/internal/models"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	runOnce   = flag.Bool("once", false, "run one cycle and exit")
	clean     = flag.Bool("clean", false, "wipe the market_data table before fetching")
	skipFetch = flag.Bool("skip-fetch", false, "skip upstream fetchers, only rebuild the snapshot")
	interval  = flag.Duration("interval", 0, "override the refresh interval (default from env, 3h)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	cycleInterval := cfg.RefreshInterval
	if *interval > 0 {
		cycleInterval = *interval
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	store := liquidity.NewStore(liquidity.NewGormSource(db))

	log.Printf("Refresher started (interval %v, once=%v)", cycleInterval, *runOnce)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	runCycle(db, store, cfg)
	if *runOnce {
		return
	}

	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			log.Println("Shutdown signal received, exiting")
			return
		case <-ticker.C:
			runCycle(db, store, cfg)
		}
	}
}

func runCycle(db *gorm.DB, store *liquidity.Store, cfg *config.Config) {
	startedAt := time.Now().UTC()
	log.Printf("===== refresh run @ %s =====", startedAt.Format(time.RFC3339))

	ctx := context.Background()
	sourceRows := 0

	if *clean {
		if err := db.Where("item_key <> ?", "").Delete(&models.MarketRecord{}).Error; err != nil {
			log.Printf("Failed to clean market_data: %v", err)
		}
	}

	if !*skipFetch {
		sourceRows = runFetchers(ctx, db, cfg)
	}

	stats, err := store.Refresh(ctx)
	audit := models.RefreshLog{
		StartedAt:  startedAt,
		Duration:   time.Since(startedAt).Milliseconds(),
		SourceRows: stats.SourceRows,
		ScoredRows: stats.ScoredRows,
		Success:    err == nil,
	}
	if err != nil {
		audit.Error = err.Error()
		log.Printf("Liquidity refresh failed: %v", err)
	} else {
		log.Printf("Liquidity refresh done: %d rows scored in %v (upserted %d)", stats.ScoredRows, stats.Duration, sourceRows)
	}
	if dbErr := db.Create(&audit).Error; dbErr != nil {
		log.Printf("Failed to write refresh log: %v", dbErr)
	}
}

// runFetchers runs the three ingests in sequence. A failing source is
// logged and skipped; the snapshot rebuild still runs on whatever the
// table holds.
func runFetchers(ctx context.Context, db *gorm.DB, cfg *config.Config) int {
	total := 0

	log.Println("Fetching WhiteMarket...")
	wm := fetcher.NewWhiteMarket(db, cfg.WhiteMarketCSVURL, cfg.WhiteMarketToken, cfg.UpsertBatch)
	if n, err := wm.Run(ctx); err != nil {
		log.Printf("WhiteMarket ingest failed: %v", err)
	} else {
		total += n
		log.Printf("WhiteMarket: %d items", n)
	}

	log.Println("Fetching CSFloat...")
	cf := fetcher.NewCSFloat(db, cfg.CSFloatURL, cfg.UpsertBatch)
	if n, err := cf.Run(ctx); err != nil {
		log.Printf("CSFloat ingest failed: %v", err)
	} else {
		total += n
		log.Printf("CSFloat: %d items", n)
	}

	log.Println("Fetching Buff163...")
	bf := fetcher.NewBuff163(db, cfg.Buff163URL, cfg.UpsertBatch)
	if n, err := bf.Run(ctx); err != nil {
		log.Printf("Buff163 ingest failed: %v", err)
	} else {
		total += n
		log.Printf("Buff163: %d items", n)
	}

	return total
}
