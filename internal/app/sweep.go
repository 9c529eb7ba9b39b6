package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"orgsim/internal/config"
	"orgsim/internal/engine"
)

// SweepOptions run the same config under consecutive seeds.
type SweepOptions struct {
	Runs      int
	FirstSeed uint64
	// Parallel bounds concurrent runs; zero means unbounded.
	Parallel int
	Engine   engine.Options
	MaxTicks int
}

// Sweep runs one independent engine per seed concurrently and returns the
// reports in seed order.
func Sweep(ctx context.Context, cfg *config.SimulationConfig, opts SweepOptions) ([]Report, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if opts.Runs < 1 {
		return nil, errors.New("runs must be at least 1")
	}
	reports := make([]Report, opts.Runs)
	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i := 0; i < opts.Runs; i++ {
		g.Go(func() error {
			eo := opts.Engine
			eo.Seed = opts.FirstSeed + uint64(i)
			eo.Rand = nil
			eng := engine.New(eo)
			if err := eng.Initialize(cfg); err != nil {
				return fmt.Errorf("seed %d: %w", eo.Seed, err)
			}
			r, err := Run(ctx, eng, RunOptions{MaxTicks: opts.MaxTicks})
			if err != nil {
				return fmt.Errorf("seed %d: %w", eo.Seed, err)
			}
			r.Seed = eo.Seed
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// SweepSummary aggregates completion ticks over the runs that finished.
type SweepSummary struct {
	Runs      int     `json:"runs"`
	Completed int     `json:"completed"`
	MinTicks  int     `json:"minTicks"`
	MaxTicks  int     `json:"maxTicks"`
	MeanTicks float64 `json:"meanTicks"`
}

func Summarize(reports []Report) SweepSummary {
	s := SweepSummary{Runs: len(reports)}
	total := 0
	for _, r := range reports {
		if !r.Completed() {
			continue
		}
		if s.Completed == 0 || r.Ticks < s.MinTicks {
			s.MinTicks = r.Ticks
		}
		if r.Ticks > s.MaxTicks {
			s.MaxTicks = r.Ticks
		}
		s.Completed++
		total += r.Ticks
	}
	if s.Completed > 0 {
		s.MeanTicks = float64(total) / float64(s.Completed)
	}
	return s
}
