package simulate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/metrics"
	"github.com/finscope/walletsim/internal/rng"
	"github.com/finscope/walletsim/internal/usecase/fx"
)

// Seed strides keeping per-trajectory and per-day streams disjoint for
// realistic ensemble sizes, and the market stream independent of both.
const (
	trajectorySeedStride = 1_000_003
	daySeedStride        = 9_973
	marketSeedMask       = 0x5f5e100
)

// RunConfig describes one ensemble run.
type RunConfig struct {
	Days           int
	EnsembleSize   int
	Workers        int
	Seed           int64
	RateVolatility float64 // daily symmetric perturbation magnitude for stored pair rates
}

// Validate ensures the run configuration adheres to domain rules
// Returns an error if validation fails
func (c *RunConfig) Validate() error {
	if c.Days <= 0 {
		return fmt.Errorf("%w: run needs at least one day", domain.ErrInvalidInput)
	}
	if c.EnsembleSize <= 0 {
		return fmt.Errorf("%w: run needs at least one trajectory", domain.ErrInvalidInput)
	}
	if c.RateVolatility < 0 {
		return fmt.Errorf("%w: rate volatility cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}

// Runner produces trajectory ensembles in parallel.
type Runner struct {
	stepper   *Stepper
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewRunner creates a Runner. Logger and collector may be nil.
func NewRunner(stepper *Stepper, logger *zap.Logger, collector *metrics.Collector) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{stepper: stepper, logger: logger, collector: collector}
}

// Run simulates the configured ensemble from the given initial state.
//
// Market semantics: one ensemble, one market path. The per-day rate tables
// are computed once up front from a dedicated market stream and shared
// read-only by every worker, so all trajectories see the same day's rates.
// Each trajectory then draws its asset noise from its own derived seed, so
// members are independent given the shared market path.
func (r *Runner) Run(ctx context.Context, initial domain.WalletState, table *domain.ExchangeRateTable, cfg RunConfig) (domain.Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	dayTables := r.marketPath(table, cfg)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > cfg.EnsembleSize {
		workers = cfg.EnsembleSize
	}

	r.logger.Info("starting ensemble run",
		zap.Int("days", cfg.Days),
		zap.Int("ensemble_size", cfg.EnsembleSize),
		zap.Int("workers", workers),
		zap.Int64("seed", cfg.Seed),
	)

	ensemble := make(domain.Ensemble, cfg.EnsembleSize)
	jobs := make(chan int)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var workerErr error
			for idx := range jobs {
				if workerErr != nil {
					continue // drain remaining jobs so the producer never blocks
				}
				trajectory, err := r.simulate(initial, dayTables, cfg, idx)
				if err != nil {
					workerErr = fmt.Errorf("trajectory %d: %w", idx, err)
					continue
				}
				ensemble[idx] = trajectory
			}
			if workerErr != nil {
				errs <- workerErr
			}
		}()
	}

dispatch:
	for i := 0; i < cfg.EnsembleSize; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	r.logger.Info("ensemble run complete", zap.Int("trajectories", len(ensemble)))
	return ensemble, nil
}

// marketPath precomputes the shared per-day rate tables. Index d holds the
// table in force on day d; day 0 uses the caller's snapshot untouched.
func (r *Runner) marketPath(table *domain.ExchangeRateTable, cfg RunConfig) []domain.ExchangeRateTable {
	tables := make([]domain.ExchangeRateTable, cfg.Days+1)
	tables[0] = table.Snapshot()
	market := rng.New(cfg.Seed ^ marketSeedMask)
	for d := 1; d <= cfg.Days; d++ {
		at := table.UpdatedAt.AddDate(0, 0, d)
		tables[d] = fx.PerturbRates(&tables[d-1], cfg.RateVolatility, market, at)
	}
	return tables
}

func (r *Runner) simulate(initial domain.WalletState, dayTables []domain.ExchangeRateTable, cfg RunConfig, idx int) (domain.Trajectory, error) {
	started := time.Now()
	trajectorySeed := cfg.Seed + int64(idx)*trajectorySeedStride

	states := make([]domain.WalletState, 0, cfg.Days+1)
	states = append(states, initial.Clone())

	collapsed := false
	for day := 1; day <= cfg.Days; day++ {
		daySeed := trajectorySeed + int64(day)*daySeedStride
		next, err := r.stepper.Step(&states[day-1], daySeed, &dayTables[day])
		if err != nil {
			return domain.Trajectory{}, err
		}
		if !collapsed && next.Balance.IsNegative() {
			collapsed = true
		}
		states = append(states, next)
	}

	if r.collector != nil {
		r.collector.TrajectorySimulated(time.Since(started).Seconds())
		if collapsed {
			r.collector.CollapseDetected()
		}
	}

	return domain.Trajectory{ID: uuid.New(), States: states}, nil
}
