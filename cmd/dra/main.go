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
	"time"

	"github.com/dd0wney/cluso-dra/pkg/archive"
	"github.com/dd0wney/cluso-dra/pkg/assessment"
	"github.com/dd0wney/cluso-dra/pkg/config"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/metrics"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/skills"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configPath string
	skillsPath string
	outPath    string
	models     string
	timeout    time.Duration
	archiveDir string
	s3Bucket   string
	s3Prefix   string
	metrics    bool
	quiet      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&opts.skillsPath, "skills", "", "Annotated skill sequence (YAML or JSON)")
	flag.StringVar(&opts.outPath, "out", "", "Write the assessment as JSON to this path")
	flag.StringVar(&opts.models, "model", "", "Models to solve: markov, fault-tree, both, hybrid or all")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Overall solve deadline, e.g. 30s (0 = none)")
	flag.StringVar(&opts.archiveDir, "archive-dir", "", "Also keep <run_id>.json in this directory")
	flag.StringVar(&opts.s3Bucket, "s3-bucket", "", "Publish the assessment to this S3 bucket")
	flag.StringVar(&opts.s3Prefix, "s3-prefix", "", "Key prefix inside the S3 bucket")
	flag.BoolVar(&opts.metrics, "metrics", false, "Print Prometheus metrics after the run")
	flag.BoolVar(&opts.quiet, "quiet", false, "Do not print the summary")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, opts, os.Stdout, os.Stderr))
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	if opts.skillsPath == "" {
		fmt.Fprintln(stderr, "dra: -skills is required")
		flag.Usage()
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "dra: %v\n", err)
		return exitUsage
	}
	applyFlags(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "dra: %v\n", err)
		return exitUsage
	}

	logger := logging.NewJSONLogger(stderr, cfg.Level())
	logging.SetDefaultLogger(logger)
	reg := metrics.NewRegistry()

	seq, err := readSequence(opts.skillsPath)
	if err != nil {
		logger.Error("failed to read skill sequence", logging.Path(opts.skillsPath), logging.Error(err))
		return exitUsage
	}

	runner, err := assessment.New(cfg.Generator, cfg.Solver,
		assessment.WithLogger(logger), assessment.WithMetrics(reg))
	if err != nil {
		logger.Error("invalid configuration", logging.Error(err))
		return exitUsage
	}

	runOpts := cfg.Assessment
	runOpts.Source = opts.skillsPath
	result, err := runner.Run(ctx, seq, runOpts)
	if err != nil {
		logger.Error("assessment failed", logging.Error(err))
		if errors.Is(err, reliability.ErrInvalidSequence) || errors.Is(err, reliability.ErrInvalidConfig) {
			return exitUsage
		}
		return exitFailure
	}

	code := exitOK
	if opts.outPath != "" {
		if err := archive.WriteFile(opts.outPath, result); err != nil {
			logger.Error("failed to write assessment", logging.Path(opts.outPath), logging.Error(err))
			code = exitFailure
		}
	}

	if err := publish(ctx, cfg.Archive, result, logger, reg); err != nil {
		code = exitFailure
	}

	if !opts.quiet {
		fmt.Fprintln(stdout, renderSummary(result))
	}
	if opts.metrics {
		if err := reg.WriteText(stdout); err != nil {
			logger.Error("failed to write metrics", logging.Error(err))
		}
	}
	return code
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.models != "" {
		cfg.Assessment.Models = assessment.Models(opts.models)
	}
	if opts.timeout != 0 {
		cfg.Assessment.Timeout = opts.timeout
	}
	if opts.archiveDir != "" {
		cfg.Archive.Dir = opts.archiveDir
	}
	if opts.s3Bucket != "" {
		cfg.Archive.S3.Bucket = opts.s3Bucket
	}
	if opts.s3Prefix != "" {
		cfg.Archive.S3.Prefix = opts.s3Prefix
	}
}

func readSequence(path string) ([]skills.SkillInstance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return skills.ReadSequence(f)
}

// publish writes the assessment to every configured archive store
func publish(ctx context.Context, cfg archive.Config, a *assessment.Assessment, logger logging.Logger, reg *metrics.Registry) error {
	stores, err := archive.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open archive", logging.Error(err))
		return err
	}
	if len(stores) == 0 {
		return nil
	}

	archiver := archive.NewArchiver(stores, archive.WithLogger(logger), archive.WithMetrics(reg))
	defer archiver.Close()
	return archiver.Archive(ctx, a)
}
