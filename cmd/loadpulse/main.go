package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/torosent/loadpulse/internal/check"
	"github.com/torosent/loadpulse/internal/config"
	"github.com/torosent/loadpulse/internal/httpclient"
	"github.com/torosent/loadpulse/internal/metrics"
	"github.com/torosent/loadpulse/internal/output"
	"github.com/torosent/loadpulse/internal/runner"
	"github.com/torosent/loadpulse/internal/strategy"
	"github.com/torosent/loadpulse/internal/threshold"
	"github.com/torosent/loadpulse/internal/tracing"
)

const (
	progressInterval = time.Second
	probeTimeout     = 10 * time.Second
	shutdownTimeout  = 5 * time.Second
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[loadpulse] request failed: %v\n", err)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	jsonCheck, err := check.ParseJSONCheck(cfg.ExpectJSON)
	if err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	// The sink opens before any worker starts: a held lock or an unwritable
	// path must abort the run, not truncate it halfway.
	var sink metrics.RowSink
	var csvSink *output.CSVSink
	if cfg.NoSave {
		sink = output.DiscardSink{}
	} else {
		csvSink, err = output.NewCSVSink(cfg.Out)
		if err != nil {
			return err
		}
		defer csvSink.Close()
		sink = csvSink
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	client := httpclient.NewClient(cfg.Timeout)

	strategies, err := buildStrategies(ctx, client, cfg)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()

	requester := &httpRequester{
		client:     client,
		strategies: newStrategyPool(strategies),
		collector:  collector,
		check:      jsonCheck,
		propagate:  provider.ShouldPropagate(),
	}
	if cfg.Tracing.Enabled() {
		requester.tracer = provider.Tracer()
	}

	var wrapped runner.Requester = requester
	if cfg.LogErrors {
		wrapped = runner.WithLogging(wrapped, &stderrFailureLogger{})
	}

	r := runner.New(runner.Options{
		Concurrency:   cfg.Concurrency,
		Warmup:        cfg.Warmup,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		GracePeriod:   cfg.GracefulShutdown,
		Requester:     wrapped,
		Sink:          sink,
		AfterWarmup:   collector.Reset,
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	startedAt := time.Now()
	result, runErr := r.Run(ctx)

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}

	if result.LateDropped > 0 {
		fmt.Fprintf(os.Stderr, "[loadpulse] dropped %d samples that arrived after their second was flushed\n", result.LateDropped)
	}
	if result.WorkersStalled {
		fmt.Fprintf(os.Stderr, "[loadpulse] workers did not finish within %s; leftover samples discarded\n", cfg.GracefulShutdown)
	}

	stats := collector.Stats(result.Duration)
	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
	}

	if csvSink != nil {
		manifest := output.Manifest{
			RunID:       output.NewRunID(),
			Target:      cfg.TargetURL,
			Mode:        string(cfg.Mode),
			Concurrency: cfg.Concurrency,
			Warmup:      cfg.Warmup,
			Duration:    cfg.Duration,
			StartedAt:   startedAt,
			Rows:        result.Rows,
			Samples:     result.Samples,
			LateDropped: result.LateDropped,
			Stalled:     result.WorkersStalled,
		}
		if err := output.WriteManifest(cfg.Out+".meta.yaml", manifest); err != nil {
			fmt.Fprintf(os.Stderr, "[loadpulse] %v\n", err)
		}
	}

	if len(thresholds) > 0 {
		results := threshold.Evaluate(thresholds, stats)
		for _, res := range results {
			fmt.Fprintln(os.Stdout, res.Message)
		}
		if !threshold.AllPassed(results) {
			return fmt.Errorf("thresholds failed")
		}
	}

	return nil
}

// buildStrategies returns one request strategy per worker. Fixed mode shares
// a single stateless strategy; range mode gives every worker its own cursor
// with a deterministic per-worker seed.
func buildStrategies(ctx context.Context, client *http.Client, cfg *config.Config) ([]strategy.Strategy, error) {
	if cfg.Mode == config.ModeFixed {
		body, err := httpclient.NewBodySource(cfg.Body, cfg.BodyFile)
		if err != nil {
			return nil, err
		}
		fixed, err := strategy.NewFixed(cfg.Method, cfg.TargetURL, cfg.Headers, body)
		if err != nil {
			return nil, err
		}
		strategies := make([]strategy.Strategy, cfg.Concurrency)
		for i := range strategies {
			strategies[i] = fixed
		}
		return strategies, nil
	}

	probeCtx, probeCancel := context.WithTimeout(ctx, probeTimeout)
	defer probeCancel()
	total, err := strategy.DiscoverSize(probeCtx, client, cfg.TargetURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[loadpulse] size probe failed (%v); falling back to plain GETs\n", err)
		total = 0
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	strategies := make([]strategy.Strategy, cfg.Concurrency)
	for i := range strategies {
		rnd := rand.New(rand.NewSource(seed + int64(i)))
		cursor, err := strategy.NewRangeCursor(cfg.TargetURL, cfg.Headers, total, cfg.ChunkSize, cfg.SeekProb, -1, rnd)
		if err != nil {
			return nil, err
		}
		strategies[i] = cursor
	}
	return strategies, nil
}
