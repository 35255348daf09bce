// Package batch runs an orchestrator over a list of links with a per-link
// failure boundary and lease.
package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/resilience"
)

// releaseTimeout bounds the lease release after a link finishes, including
// when the run itself was canceled.
const releaseTimeout = 5 * time.Second

// Processor handles one link. Both orchestrators satisfy it.
type Processor interface {
	Run(ctx context.Context, link *model.Link) error
}

// Leaser takes and returns per-link leases.
type Leaser interface {
	Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id int64, owner string) error
}

// Summary counts the outcome of one run.
type Summary struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// Runner schedules links onto a Processor.
type Runner struct {
	leaser      Leaser
	concurrency int
	lease       time.Duration
}

// NewRunner returns a runner. concurrency below 1 runs sequentially and a
// zero lease defaults to five minutes.
func NewRunner(leaser Leaser, concurrency int, lease time.Duration) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return &Runner{leaser: leaser, concurrency: concurrency, lease: lease}
}

// Run processes links in order. A failing link is logged and counted; it
// never stops the batch. Canceling ctx stops scheduling; links not yet
// started count as skipped.
func (r *Runner) Run(ctx context.Context, links []model.Link, p Processor) Summary {
	runID := uuid.NewString()
	log := zap.L().Named("batch").With(zap.String("run_id", runID))
	log.Info("batch: starting", zap.Int("links", len(links)), zap.Int("concurrency", r.concurrency))
	start := time.Now()

	var succeeded, failed, skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i := range links {
		if ctx.Err() != nil {
			skipped.Add(int64(len(links) - i))
			log.Warn("batch: canceled, not scheduling remaining links", zap.Int("remaining", len(links)-i))
			break
		}

		link := &links[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Add(1)
				return nil
			}
			switch err := r.process(ctx, runID, link, p); {
			case errors.Is(err, errNotClaimed):
				skipped.Add(1)
			case err != nil:
				failed.Add(1)
				log.Error("batch: link failed",
					zap.Int64("link_id", link.ID),
					zap.String("domain", link.Domain),
					zap.String("error_type", resilience.ClassifyError(err)),
					zap.Error(err),
				)
			default:
				succeeded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s := Summary{
		RunID:     runID,
		Total:     len(links),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
	}
	log.Info("batch: complete",
		zap.Int("total", s.Total),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Int("skipped", s.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return s
}
