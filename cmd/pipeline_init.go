package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/enrich"
	"github.com/overviewer/sheetscan/internal/mapping"
	"github.com/overviewer/sheetscan/internal/reconcile"
	"github.com/overviewer/sheetscan/internal/scrape"
	"github.com/overviewer/sheetscan/internal/store"
	"github.com/overviewer/sheetscan/internal/summarize"
	anthropicpkg "github.com/overviewer/sheetscan/pkg/anthropic"
	"github.com/overviewer/sheetscan/pkg/jina"
)

// pipelineEnv holds the initialized store and pipeline stages shared by the
// run and serve commands.
type pipelineEnv struct {
	Store      store.Store
	Mapper     mapping.Mapper
	Reconciler *reconcile.Reconciler
	Enricher   *enrich.Orchestrator
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: SHEETSCAN_STORE_DATABASE_URL is required for the postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

// initPipeline sets up the store and every pipeline stage. Callers should
// defer env.Close(). Without an Anthropic key, header mapping falls back to
// heuristics only and summarization is unavailable.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Anthropic.Key == "" {
		_ = st.Close()
		return nil, eris.New("anthropic: SHEETSCAN_ANTHROPIC_KEY is required")
	}
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	mapper := mapping.WithFallback(
		mapping.NewClaudeMapper(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens),
		mapping.NewHeuristicMapper(),
	)

	// Scrape chain: static tier first, rendering fallback when configured.
	tiers := []scrape.Scraper{scrape.NewSiteScraper(scrape.Options{
		Timeout:          time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		MinContentLength: cfg.Scrape.MinContentLength,
		MaxSubpages:      cfg.Scrape.MaxSubpages,
		RequestsPerHost:  cfg.Scrape.RequestsPerSecond,
	})}
	if cfg.Reader.Key != "" {
		readerClient := jina.NewClient(cfg.Reader.Key, jina.WithBaseURL(cfg.Reader.BaseURL))
		tiers = append(tiers, scrape.NewReaderScraper(readerClient, cfg.Scrape.MinContentLength))
		zap.L().Info("reader rendering fallback enabled")
	} else {
		zap.L().Debug("SHEETSCAN_READER_KEY not set, rendering fallback disabled")
	}
	scraper := scrape.NewChain(tiers...)

	summarizer := summarize.NewClaudeSummarizer(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)

	matcher := store.NewMatcher(st, cfg.Enrich.MatchWindowMonths)
	persister := store.NewPersister(st)

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("model", cfg.Anthropic.Model),
		zap.Int("max_concurrent_rows", cfg.Enrich.MaxConcurrentRows),
	)

	return &pipelineEnv{
		Store:      st,
		Mapper:     mapper,
		Reconciler: reconcile.New(matcher),
		Enricher:   enrich.New(scraper, summarizer, persister, cfg.Enrich.MaxConcurrentRows),
	}, nil
}
