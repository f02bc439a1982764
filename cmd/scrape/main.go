// Command scrape runs one scrape of the listing site and submits the records
// to a running API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sjsage522/jobworker/config"
	"sjsage522/jobworker/internal/crawler"
	"sjsage522/jobworker/logger"
	"sjsage522/jobworker/services/bulk"
	"sjsage522/jobworker/services/cache"
	"sjsage522/jobworker/services/worker"
)

func main() {
	godotenv.Load()
	logger.Init()
	log := logger.Default

	cfg := config.LoadConfig()

	limit := flag.Int("limit", 60, "number of job records to collect")
	headless := flag.Bool("headless", cfg.ScrapeHeadless, "run the browser without a window")
	apiBase := flag.String("api-base", cfg.ScrapeAPIBase, "base URL of the jobs API")
	baseURL := flag.String("base-url", cfg.ScrapeBaseURL, "listing page to scrape")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var guard *cache.BlockGuard
	memcache := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := memcache.Ping(); err == nil {
		guard = cache.NewBlockGuard(memcache, worker.BlockKey, cfg.ScrapeBlockTime)
	}

	w := worker.NewWorker(
		crawler.NewChromeSession,
		bulk.NewClient(cfg.BulkChunkSize, cfg.BulkPause),
		guard,
		cfg.ScrapeDetailFetch,
	)

	report, err := w.Run(ctx, worker.RunOptions{
		Limit:    *limit,
		Headless: *headless,
		APIBase:  *apiBase,
		BaseURL:  *baseURL,
	}, func(fetched, limit int) {
		log.Info().Int("fetched", fetched).Int("limit", limit).Msg("Progress")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Scrape failed")
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
