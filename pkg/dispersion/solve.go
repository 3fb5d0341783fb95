package dispersion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// Variant selects how the pair constraints are coupled to the objective.
type Variant string

const (
	// VariantObjective posts ObjectiveDistance propagators around an explicit
	// objective variable maximised by the engine.
	VariantObjective Variant = "ternary"
	// VariantRatchet posts RatchetDistance propagators and bounds the search
	// with LeafBranchAndBound.
	VariantRatchet Variant = "binary"
	// VariantPortfolio runs several ratchet-coupled searches with different
	// orderings in parallel, all sharing one Ratchet.
	VariantPortfolio Variant = "portfolio"
)

// ParseVariant maps a name to a Variant. The long model names
// pDDTernary and pDDBinary are accepted too.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(name) {
	case "ternary", "objective", "pddternary":
		return VariantObjective, nil
	case "binary", "ratchet", "pddbinary", "":
		return VariantRatchet, nil
	case "portfolio":
		return VariantPortfolio, nil
	}
	return "", fmt.Errorf("%w: unknown model %q", fd.ErrInvalidConfiguration, name)
}

// Config controls Solve.
type Config struct {
	Variant  Variant
	Ordering Ordering

	// AllDifferent forbids two facilities on the same point.
	AllDifferent bool

	// TimeLimit bounds the whole solve; zero means no limit.
	TimeLimit time.Duration

	// NodeLimit bounds the nodes of each search; zero means no limit.
	NodeLimit int

	// RestartOnSolution restarts the search from the root after every solution.
	RestartOnSolution bool

	// Workers is the number of parallel searches of VariantPortfolio. Zero
	// means one per CPU.
	Workers int

	Logger   *fd.Logger
	Observer fd.SearchObserver

	// OnImprovement is called, serially, for every strictly improving solution.
	OnImprovement func(Improvement)
}

// DefaultConfig returns the benchmark configuration:
// ratchet coupling, dom/wdeg ordering, one hour.
func DefaultConfig() Config {
	return Config{
		Variant:   VariantRatchet,
		Ordering:  OrderingDomWDeg,
		TimeLimit: time.Hour,
	}
}

// Improvement is a solution strictly better than every earlier one.
type Improvement struct {
	// Index counts every solution reported so far, improving or not.
	Index     int
	Objective int
	Placement []int
	Elapsed   time.Duration
	Worker    int
}

// Result is the outcome of Solve. Finding no solution is a normal outcome
// reported by Found == false.
type Result struct {
	Found     bool
	Objective int
	Placement []int

	// Optimal is true when the search space was exhausted, which proves that
	// no placement beats Objective (or that none exists when !Found).
	Optimal bool

	Solutions    int
	Improvements []Improvement
	Stats        *fd.SolverStats
	Elapsed      time.Duration
}

// Solve searches for a placement of p's facilities maximising the minimum
// pairwise distance.
//
// Hitting the time or node limit is not an error: the best placement found
// so far is returned with Optimal == false. Cancellation of ctx by the caller
// returns the partial result together with ctx.Err().
func Solve(ctx context.Context, p *Problem, cfg Config) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil problem", fd.ErrInvalidConfiguration)
	}
	if cfg.Logger == nil {
		cfg.Logger = fd.NoopLogger()
	}
	if cfg.Observer == nil {
		cfg.Observer = fd.NoopObserver{}
	}
	if cfg.Ordering == "" {
		cfg.Ordering = OrderingDomWDeg
	}
	if cfg.Variant == "" {
		cfg.Variant = VariantRatchet
	}
	if cfg.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TimeLimit)
		defer cancel()
	}

	rec := newRecorder(ctx, cfg)
	monitor := fd.NewSolverMonitor()
	logger := cfg.Logger.WithModel(string(cfg.Variant))

	var err error
	switch {
	case p.Facilities < 2:
		// No pair, no objective: any point will do.
		if p.Points() > 0 {
			rec.offer(0, 0, make([]int, p.Facilities))
		}
	case cfg.Variant == VariantObjective:
		err = solveObjective(ctx, p, cfg, rec, monitor, logger)
	case cfg.Variant == VariantRatchet:
		err = solveRatchet(ctx, p, cfg, worker{ordering: cfg.Ordering}, nil, rec, monitor, logger)
	case cfg.Variant == VariantPortfolio:
		err = solvePortfolio(ctx, p, cfg, rec, monitor, logger)
	default:
		return nil, fmt.Errorf("%w: unknown model %q", fd.ErrInvalidConfiguration, cfg.Variant)
	}

	res := rec.result()
	res.Stats = monitor.GetStats()
	switch {
	case err == nil:
		res.Optimal = true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, fd.ErrSearchLimitReached):
		logger.LogSearchDone(ctx, res.Stats, err)
		return res, nil
	}
	logger.LogSearchDone(ctx, res.Stats, err)
	return res, err
}

func solveObjective(ctx context.Context, p *Problem, cfg Config, rec *recorder, monitor *fd.SolverMonitor, logger *fd.Logger) error {
	f, err := BuildObjective(p, BuildOptions{Ordering: cfg.Ordering, AllDifferent: cfg.AllDifferent})
	if err != nil {
		return err
	}
	s := newSolver(f, cfg, monitor, logger)
	opts := searchOptions(cfg)
	opts = append(opts, fd.WithImprovementHandler(func(sol []int, obj int) {
		rec.offer(0, obj, f.Placement(sol))
	}))
	_, _, err = s.SolveOptimal(ctx, f.MinDist, false, opts...)
	return err
}

// worker describes one ratchet-coupled search.
type worker struct {
	id         int
	ordering   Ordering
	descending bool
}

func solveRatchet(ctx context.Context, p *Problem, cfg Config, w worker, r *Ratchet, rec *recorder, monitor *fd.SolverMonitor, logger *fd.Logger) error {
	f, err := BuildRatchet(p, r, BuildOptions{
		Ordering:     w.ordering,
		Descending:   w.descending,
		AllDifferent: cfg.AllDifferent,
	})
	if err != nil {
		return err
	}
	f.Leaf.OnLeaf = func(obj int, raised bool) {
		if raised {
			logger.DebugContext(ctx, "ratchet raised", "objective", obj, "threshold", obj+1)
		}
	}
	s := newSolver(f, cfg, monitor, logger)
	return s.SolveWith(ctx, func(sol []int) bool {
		placement := f.Placement(sol)
		if obj, ok := MinPairwiseDistance(p.Distances, placement); ok {
			rec.offer(w.id, obj, placement)
		}
		return true
	}, searchOptions(cfg)...)
}

func newSolver(f *Formulation, cfg Config, monitor *fd.SolverMonitor, logger *fd.Logger) *fd.Solver {
	s := fd.NewSolver(f.Model)
	s.SetMonitor(monitor)
	s.SetObserver(cfg.Observer)
	s.SetLogger(logger)
	return s
}

func searchOptions(cfg Config) []fd.SearchOption {
	var opts []fd.SearchOption
	if cfg.NodeLimit > 0 {
		opts = append(opts, fd.WithNodeLimit(cfg.NodeLimit))
	}
	if cfg.RestartOnSolution {
		opts = append(opts, fd.WithRestartOnSolution())
	}
	return opts
}

// recorder keeps the best solution reported by any search. Reports may
// arrive from several goroutines; only strict improvements are kept, since a
// ratchet raised lazily can let a non-improving leaf through.
type recorder struct {
	ctx    context.Context
	cfg    Config
	start  time.Time
	logger *fd.Logger

	mu        sync.Mutex
	solutions int
	res       Result
}

func newRecorder(ctx context.Context, cfg Config) *recorder {
	return &recorder{ctx: ctx, cfg: cfg, start: time.Now(), logger: cfg.Logger}
}

// offer reports a solution and returns whether it improved the best one.
func (r *recorder) offer(worker, objective int, placement []int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solutions++
	if r.res.Found && objective <= r.res.Objective {
		return false
	}
	imp := Improvement{
		Index:     r.solutions,
		Objective: objective,
		Placement: slices.Clone(placement),
		Elapsed:   time.Since(r.start),
		Worker:    worker,
	}
	r.res.Found = true
	r.res.Objective = objective
	r.res.Placement = imp.Placement
	r.res.Improvements = append(r.res.Improvements, imp)
	r.logger.LogSolution(r.ctx, objective, imp.Elapsed)
	if r.cfg.OnImprovement != nil {
		r.cfg.OnImprovement(imp)
	}
	return true
}

func (r *recorder) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.res
	res.Solutions = r.solutions
	res.Elapsed = time.Since(r.start)
	return &res
}
