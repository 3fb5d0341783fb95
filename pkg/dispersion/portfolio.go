package dispersion

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gitrdm/pdispersion/internal/parallel"
	"github.com/gitrdm/pdispersion/pkg/fd"
)

var portfolioOrderings = []Ordering{OrderingDomWDeg, OrderingLexico, OrderingFirstFail}

// errProven stops the remaining workers once one has exhausted its tree.
var errProven = errors.New("optimality proven")

// portfolioWorkers returns the search of each worker: the configured
// ordering first, then the others, then the same orderings largest point
// first.
func portfolioWorkers(cfg Config, n int) []worker {
	orderings := []Ordering{cfg.Ordering}
	for _, o := range portfolioOrderings {
		if o != cfg.Ordering {
			orderings = append(orderings, o)
		}
	}
	out := make([]worker, n)
	for i := range out {
		out[i] = worker{
			id:         i,
			ordering:   orderings[i%len(orderings)],
			descending: (i/len(orderings))%2 == 1,
		}
	}
	return out
}

// solvePortfolio runs ratchet-coupled searches in parallel over one shared
// Ratchet. Every threshold a worker prunes with was reached by some leaf, so
// the first worker to exhaust its tree proves the best solution optimal and
// the others are stopped.
func solvePortfolio(ctx context.Context, p *Problem, cfg Config, rec *recorder, monitor *fd.SolverMonitor, logger *fd.Logger) error {
	pool := parallel.NewWorkerPool(ctx, cfg.Workers)
	r := &Ratchet{}
	var proven atomic.Bool

	for _, w := range portfolioWorkers(cfg, pool.MaxWorkers()) {
		wlog := logger.WithWorker(w.id)
		err := pool.Submit(func(ctx context.Context) error {
			wlog.DebugContext(ctx, "worker started", "ordering", w.ordering, "descending", w.descending)
			err := solveRatchet(ctx, p, cfg, w, r, rec, monitor, wlog)
			switch {
			case err == nil:
				proven.Store(true)
				pool.Stop(errProven)
				return nil
			case errors.Is(err, context.Canceled) && proven.Load():
				return nil
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	err := pool.Wait()
	if proven.Load() {
		return nil
	}
	if err == nil {
		err = ctx.Err()
	}
	return err
}
