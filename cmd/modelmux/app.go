package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zen-systems/modelmux/pkg/adapter"
	"github.com/zen-systems/modelmux/pkg/config"
	"github.com/zen-systems/modelmux/pkg/cost"
	"github.com/zen-systems/modelmux/pkg/metrics"
	"github.com/zen-systems/modelmux/pkg/mux"
	"github.com/zen-systems/modelmux/pkg/router"
)

// app holds everything one CLI invocation needs.
type app struct {
	cfg      *config.Config
	aliases  *config.ModelAliases
	logger   *zap.Logger
	registry *prometheus.Registry
	recorder *metrics.Recorder
	router   *router.Router
	tracker  *cost.Tracker
	server   *http.Server
}

func newApp() (*app, error) {
	cfg, aliases, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(debugFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	rec := metrics.NewRecorder(reg)

	r, err := createRouter(cfg, aliases, logger, rec)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	a := &app{
		cfg:      cfg,
		aliases:  aliases,
		logger:   logger,
		registry: reg,
		recorder: rec,
		router:   r,
		tracker:  cost.NewTracker(cfg.Router.Pricing),
	}
	if metricsAddr != "" {
		a.server = startMetricsServer(metricsAddr, reg, logger)
	}
	return a, nil
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown error", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// generate sends req through the router and prices the result.
func (a *app) generate(ctx context.Context, req *adapter.Request) (*callResult, error) {
	start := time.Now()
	resp, err := a.router.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &callResult{
		mode:         "generate",
		text:         resp.Text(),
		finishReason: resp.FinishReason,
		usageReport:  resp.Usage,
		duration:     time.Since(start),
	}
	result.selection, result.selected = router.SelectionFrom(resp.ProviderMetadata)
	a.price(result)
	return result, nil
}

// stream sends req through the router, copying text deltas to out as they
// arrive.
func (a *app) stream(ctx context.Context, req *adapter.Request, out io.Writer) (*callResult, error) {
	start := time.Now()
	s, err := a.router.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	result := &callResult{mode: "stream"}
	var text []byte
	for s.Next() {
		ev := s.Current()
		switch ev.Type {
		case adapter.EventTextDelta:
			text = append(text, ev.Text...)
			fmt.Fprint(out, ev.Text)
		case adapter.EventFinish:
			result.finishReason = ev.FinishReason
			result.usageReport = ev.Usage
			result.selection, result.selected = router.SelectionFrom(ev.ProviderMetadata)
		}
	}
	fmt.Fprintln(out)
	result.text = string(text)
	result.duration = time.Since(start)
	if err := s.Err(); err != nil {
		return result, err
	}
	a.price(result)
	return result, nil
}

func (a *app) price(result *callResult) {
	if !result.selected {
		return
	}
	report := a.tracker.Record(result.label(), result.selection.Provider, result.selection.ModelID, result.usageReport)
	result.cost = &report
	if report.Priced {
		a.recorder.RecordCost(result.label(), report.Cost.Amount)
	}
}

func loadConfig() (*config.Config, *config.ModelAliases, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadWithRouterFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}

	aliases, err := config.LoadAliasesWithFallback(cfg.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model aliases: %w", err)
	}
	return cfg, aliases, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// createRouter builds the router described by cfg.Router. Candidates whose
// API key is missing are skipped with a warning.
func createRouter(cfg *config.Config, aliases *config.ModelAliases, logger *zap.Logger, rec *metrics.Recorder) (*router.Router, error) {
	rc := cfg.Router
	if rc == nil {
		rc = config.DefaultRouterConfig()
	}
	opts := []router.Option{
		router.WithStrategyName(rc.Strategy),
		router.WithRetryOnError(rc.Retry()),
		router.WithLogger(logger),
		router.WithMetrics(rec),
	}

	if c := rc.Credentials; c != nil {
		keys := c.ResolveKeys()
		if len(keys) == 0 {
			if key := cfg.APIKey(c.Adapter); key != "" {
				keys = []string{key}
			} else if c.Adapter == "mock" {
				keys = []string{"mock"}
			}
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("no %s API keys configured", c.Adapter)
		}

		m, err := mux.New(keys, func(key string) (mux.Provider, error) {
			return adapter.NewKeyedProvider(c.Adapter, key)
		}, opts...)
		if err != nil {
			return nil, err
		}
		logger.Debug("built credential mux", zap.String("adapter", c.Adapter), zap.Int("keys", m.Size()))
		return m.LanguageModel(aliases.Resolve(c.Model))
	}

	var candidates []any
	for i, cand := range rc.Candidates {
		key := cfg.CandidateKey(cand)
		if key == "" && cand.Adapter != "mock" {
			logger.Warn("skipping candidate without API key",
				zap.Int("index", i),
				zap.String("adapter", cand.Adapter),
				zap.String("model", cand.Model))
			continue
		}
		a, err := adapter.New(cand.Adapter, key, aliases.Resolve(cand.Model))
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		candidates = append(candidates, router.Named{Adapter: a, Name: cand.Name})
	}
	if len(candidates) == 0 {
		return nil, errors.New("no candidates have API keys configured")
	}
	return router.New(candidates, opts...)
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      metricsMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return server
}
