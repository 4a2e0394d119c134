// Package batch decodes several independent documents concurrently. Each
// document is still decoded by one goroutine from start to finish.
package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/scttfrdmn/bioconv-go/pkg/format"
)

// LoadFunc fetches the bytes of one input.
type LoadFunc func(ctx context.Context, location string) ([]byte, error)

// Result is one decoded input.
type Result struct {
	Location string
	Document *format.Document
}

// Runner decodes inputs with a shared pipeline.
type Runner struct {
	cfg      *Config
	pipeline *format.Pipeline
	load     LoadFunc
	logger   *zap.Logger
}

// NewRunner validates cfg. A nil logger is replaced by zap.NewNop().
func NewRunner(cfg *Config, p *format.Pipeline, load LoadFunc, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, pipeline: p, load: load, logger: logger}, nil
}

// Run decodes every location as the named format. Results keep the order of
// locations. The first failure cancels inputs not yet started and is
// returned wrapped with its location; the bioerr kind survives the wrap.
func (r *Runner) Run(ctx context.Context, name string, locations []string) ([]Result, error) {
	results := make([]Result, len(locations))
	mem := semaphore.NewWeighted(r.cfg.MemoryBudget)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, loc := range locations {
		i, loc := i, loc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := r.load(ctx, loc)
			if err != nil {
				return err
			}

			// Inputs larger than the whole budget run alone.
			weight := min(int64(len(data)), r.cfg.MemoryBudget)
			if err := mem.Acquire(ctx, weight); err != nil {
				return err
			}
			defer mem.Release(weight)

			doc, err := r.pipeline.Decode(name, data, r.cfg.Mode, r.cfg.Options)
			if err != nil {
				return fmt.Errorf("%s: %w", loc, err)
			}
			r.logger.Debug("decoded input",
				zap.String("location", loc),
				zap.Int("bytes", len(data)),
				zap.Int("rows", doc.Count()))
			results[i] = Result{Location: loc, Document: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
