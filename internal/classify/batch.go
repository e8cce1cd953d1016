package classify

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 4

// BatchItem pairs a request with its outcome. Err is set when that company's
// pipeline failed; other items are unaffected.
type BatchItem struct {
	Request Request
	Result  *Result
	Err     error
}

// ClassifyBatch runs the pipeline for many companies with bounded
// concurrency. One company failing never aborts the batch; results are
// returned in request order.
func (c *Classifier) ClassifyBatch(ctx context.Context, reqs []Request, concurrency int) []BatchItem {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	items := make([]BatchItem, len(reqs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.Classify(gCtx, req)
			mu.Lock()
			items[i] = BatchItem{Request: req, Result: res, Err: err}
			mu.Unlock()
			if err != nil {
				zap.L().Error("classify: batch item failed",
					zap.String("name", req.Name),
					zap.String("company_id", req.CompanyID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return items
}
