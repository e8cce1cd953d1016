package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/store"
)

// SyncResult summarizes one ingestion pass.
type SyncResult struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"` // already present (same URL)
}

// Ingestor pulls signals from sources into the store.
type Ingestor struct {
	store store.Store
}

// NewIngestor creates an Ingestor.
func NewIngestor(st store.Store) *Ingestor {
	return &Ingestor{store: st}
}

// Sync fetches all signals from a source and inserts the ones not already
// present. URL is the dedup key, so repeated syncs are idempotent.
func (in *Ingestor) Sync(ctx context.Context, source SignalSource) (*SyncResult, error) {
	signals, err := source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{Fetched: len(signals)}
	for i := range signals {
		inserted, err := in.store.InsertSignal(ctx, &signals[i])
		if err != nil {
			return res, err
		}
		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}

	zap.L().Info("ingest: signal sync complete",
		zap.String("source", source.Name()),
		zap.Int("fetched", res.Fetched),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
