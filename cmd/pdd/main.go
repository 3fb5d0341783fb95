// Command pdd solves p-dispersion instances with pair distance bounds.
//
// Every strictly improving placement is printed as it is found:
//
//	#<solution index> obj: <min distance> <seconds>s
//
// followed by a summary and the search statistics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gitrdm/pdispersion/internal/instance"
	"github.com/gitrdm/pdispersion/pkg/dispersion"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "pdd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := opts.solveConfig()
	if err != nil {
		return err
	}
	logger, err := opts.logger(stderr)
	if err != nil {
		return err
	}
	logger = logger.WithRunID(uuid.NewString())
	cfg.Logger = logger

	loader := instance.LoaderFromEnv()
	if opts.S3Endpoint != "" {
		loader.S3Endpoint = opts.S3Endpoint
	}
	loader.S3Insecure = loader.S3Insecure || opts.S3Insecure
	data, err := loader.Load(ctx, opts.Instance, opts.Decimals)
	if err != nil {
		return err
	}
	p, err := data.Problem()
	if err != nil {
		return err
	}
	logger.Info("instance loaded",
		"instance", opts.Instance,
		"points", data.Points,
		"facilities", data.Facilities,
		"model", cfg.Variant,
		"ordering", cfg.Ordering,
	)

	var metrics *searchMetrics
	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = newSearchMetrics(reg)
		cfg.Observer = metrics
		shutdown := serveMetrics(opts.MetricsAddr, reg, logger)
		defer shutdown()
	}

	cfg.OnImprovement = func(imp dispersion.Improvement) {
		fmt.Fprintf(stdout, "#%d obj: %d %.3fs\n", imp.Index, imp.Objective, imp.Elapsed.Seconds())
		if metrics != nil {
			metrics.improved(imp)
		}
	}

	res, err := dispersion.Solve(ctx, p, cfg)
	if res != nil {
		printSummary(stdout, res)
	}
	return err
}

func printSummary(w io.Writer, res *dispersion.Result) {
	switch {
	case !res.Found && res.Optimal:
		fmt.Fprintln(w, "no feasible placement")
	case !res.Found:
		fmt.Fprintln(w, "no placement found within the limits")
	default:
		status := "best"
		if res.Optimal {
			status = "optimal"
		}
		fmt.Fprintf(w, "%s: %d placement: %v\n", status, res.Objective, res.Placement)
	}
	fmt.Fprintf(w, "solutions: %d improvements: %d time: %.3fs\n",
		res.Solutions, len(res.Improvements), res.Elapsed.Seconds())
	if res.Stats != nil {
		fmt.Fprintln(w, res.Stats)
	}
}
