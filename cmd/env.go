package main

import (
	"context"

	"github.com/tpeters15/theme-score-nexus/internal/classify"
	"github.com/tpeters15/theme-score-nexus/internal/store"
	"github.com/tpeters15/theme-score-nexus/pkg/anthropic"
	"github.com/tpeters15/theme-score-nexus/pkg/firecrawl"
	"github.com/tpeters15/theme-score-nexus/pkg/perplexity"
)

func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

// buildClassifier wires the classification pipeline from config. The scraper
// and researcher are optional; the pipeline degrades without them.
func buildClassifier(st store.Store) (*classify.Classifier, error) {
	if err := cfg.Validate("classify"); err != nil {
		return nil, err
	}

	var scraper firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		opts := []firecrawl.Option{}
		if cfg.Firecrawl.BaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		}
		scraper = firecrawl.NewClient(cfg.Firecrawl.Key, opts...)
	}

	ai := anthropic.NewClient(cfg.Anthropic.Key)

	var researcher perplexity.Client
	if cfg.Perplexity.Key != "" {
		opts := []perplexity.Option{perplexity.WithRateLimit(cfg.Perplexity.RPS)}
		if cfg.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
		}
		if cfg.Perplexity.Model != "" {
			opts = append(opts, perplexity.WithModel(cfg.Perplexity.Model))
		}
		researcher = perplexity.NewClient(cfg.Perplexity.Key, opts...)
	}

	return classify.New(st, scraper, ai, researcher, cfg), nil
}
