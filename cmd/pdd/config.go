package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/pdispersion/pkg/dispersion"
	"github.com/gitrdm/pdispersion/pkg/fd"
)

// options holds the command line. A YAML file given with -config supplies
// defaults; flags on the command line override it.
type options struct {
	Model        string        `yaml:"model"`
	Ordering     string        `yaml:"ordering"`
	Decimals     int           `yaml:"decimals"`
	TimeLimit    time.Duration `yaml:"time_limit"`
	NodeLimit    int           `yaml:"node_limit"`
	Restart      bool          `yaml:"restart"`
	Workers      int           `yaml:"workers"`
	AllDifferent bool          `yaml:"all_different"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	S3Endpoint   string        `yaml:"s3_endpoint"`
	S3Insecure   bool          `yaml:"s3_insecure"`

	Config   string `yaml:"-"`
	Instance string `yaml:"-"`
}

func defaultOptions() options {
	return options{
		Model:     string(dispersion.VariantRatchet),
		Ordering:  "default",
		TimeLimit: time.Hour,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func (o *options) bind(fs *flag.FlagSet) {
	fs.StringVar(&o.Config, "config", o.Config, "YAML file with default options")
	fs.StringVar(&o.Model, "model", o.Model, "model: ternary, binary or portfolio")
	fs.StringVar(&o.Ordering, "ordering", o.Ordering, "facility ordering: lexico, domwdeg, firstfail or default")
	fs.IntVar(&o.Decimals, "decimals", o.Decimals, "decimal digits kept from the instance values")
	fs.DurationVar(&o.TimeLimit, "time-limit", o.TimeLimit, "time limit, 0 for none")
	fs.IntVar(&o.NodeLimit, "node-limit", o.NodeLimit, "node limit per search, 0 for none")
	fs.BoolVar(&o.Restart, "restart", o.Restart, "restart the search after each solution")
	fs.IntVar(&o.Workers, "workers", o.Workers, "parallel searches of the portfolio model, 0 for one per CPU")
	fs.BoolVar(&o.AllDifferent, "all-different", o.AllDifferent, "place facilities on distinct points")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&o.LogFormat, "log-format", o.LogFormat, "log format: text or json")
	fs.StringVar(&o.S3Endpoint, "s3-endpoint", o.S3Endpoint, "endpoint for s3:// instances")
	fs.BoolVar(&o.S3Insecure, "s3-insecure", o.S3Insecure, "use plain HTTP towards -s3-endpoint")
}

func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pdd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: pdd [flags] <instance>")
		fmt.Fprintln(fs.Output(), "instance is a path or s3://bucket/key, optionally .gz, .zst or .lz4")
		fs.PrintDefaults()
	}
	o.bind(fs)
	return fs
}

// parseOptions parses args twice: once to find -config, then again over the
// file's values so that explicit flags win.
func parseOptions(args []string, stderr io.Writer) (options, error) {
	var probe options
	if err := newFlagSet(&probe, io.Discard).Parse(args); err != nil {
		// Report through the real flag set below.
		probe = options{}
	}

	opts := defaultOptions()
	if probe.Config != "" {
		if err := opts.loadFile(probe.Config); err != nil {
			return options{}, err
		}
	}

	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, errors.New("exactly one instance expected")
	}
	opts.Instance = fs.Arg(0)
	return opts, nil
}

func (o *options) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(o); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// solveConfig translates the options into a dispersion.Config.
func (o *options) solveConfig() (dispersion.Config, error) {
	variant, err := dispersion.ParseVariant(o.Model)
	if err != nil {
		return dispersion.Config{}, err
	}
	ordering, err := dispersion.ParseOrdering(o.Ordering)
	if err != nil {
		return dispersion.Config{}, err
	}
	if o.TimeLimit < 0 || o.NodeLimit < 0 || o.Workers < 0 {
		return dispersion.Config{}, fmt.Errorf("%w: negative limit", fd.ErrInvalidConfiguration)
	}
	return dispersion.Config{
		Variant:           variant,
		Ordering:          ordering,
		AllDifferent:      o.AllDifferent,
		TimeLimit:         o.TimeLimit,
		NodeLimit:         o.NodeLimit,
		RestartOnSolution: o.Restart,
		Workers:           o.Workers,
	}, nil
}

func (o *options) logger(w io.Writer) (*fd.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.LogLevel)); err != nil {
		return nil, fmt.Errorf("%w: log level %q", fd.ErrInvalidConfiguration, o.LogLevel)
	}
	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(o.LogFormat) {
	case "json":
		return fd.NewLogger(slog.NewJSONHandler(w, hopts)), nil
	case "text", "":
		return fd.NewLogger(slog.NewTextHandler(w, hopts)), nil
	}
	return nil, fmt.Errorf("%w: log format %q", fd.ErrInvalidConfiguration, o.LogFormat)
}
