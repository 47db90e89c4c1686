package anneal

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/farlane/lastmile/internal/routing"
)

// Solve runs cfg.Restarts independent annealing searches and returns the
// best result. Restarts share the stop set and matrix but each draws its own
// seed derived from the configured one, so the whole ensemble is
// reproducible. Ties go to the lowest restart index.
func Solve(ctx context.Context, stops *routing.StopSet, matrix *routing.DistanceMatrix, cfg Config, logger *zap.Logger) (*routing.RouteResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Restarts == 1 {
		a, err := New(stops, matrix, cfg, logger)
		if err != nil {
			return nil, err
		}
		return a.Optimize(ctx)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	base := effectiveSeed(cfg.RandomSeed)
	results := make([]*routing.RouteResult, cfg.Restarts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < cfg.Restarts; i++ {
		g.Go(func() error {
			runCfg := cfg
			runCfg.Restarts = 1
			runCfg.RandomSeed = deriveSeed(base, uint64(i))
			a, err := New(stops, matrix, runCfg, logger.With(zap.Int("restart", i)))
			if err != nil {
				return err
			}
			res, err := a.Optimize(gctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := results[0]
	for _, res := range results[1:] {
		if res.Cost < best.Cost {
			best = res
		}
	}
	logger.Info("restart ensemble finished",
		zap.Int("restarts", cfg.Restarts),
		zap.Int64("base_seed", base),
		zap.Float64("best_cost", best.Cost),
	)
	return best, nil
}
