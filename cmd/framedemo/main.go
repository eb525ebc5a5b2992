// Command framedemo drives a few demo modules through the frame loop on a
// headless window.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/backend"
	_ "github.com/gogpu/frameloop/backend/software"
	_ "github.com/gogpu/frameloop/backend/wgpu"
	"github.com/gogpu/frameloop/config"
	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/metrics"
	"github.com/gogpu/frameloop/platform"
)

func main() {
	var (
		configPath  = flag.String("config", "", "TOML or YAML config file")
		frames      = flag.Uint64("frames", 0, "stop after this many frames (overrides config)")
		backendName = flag.String("backend", "", "backend name (overrides config)")
		metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
		width       = flag.Int("width", 1280, "window width")
		height      = flag.Int("height", 720, "window height")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *frames > 0 {
		cfg.MaxFrames = *frames
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	frameloop.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, *metricsAddr, *width, *height); err != nil &&
		!errors.Is(err, context.Canceled) {
		logger.Error("framedemo failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, metricsAddr string, width, height int) error {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg, "")
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	b, err := backend.Open(cfg.Backend, backend.Options{Label: "framedemo", Logger: logger})
	if err != nil {
		return err
	}
	defer b.Close()

	subOpts := cfg.SubmitterOptions()
	subOpts.Logger = logger
	subOpts.Observer = collector
	sub, err := gpu.NewSubmitter(b, subOpts)
	if err != nil {
		return err
	}
	defer sub.Close()

	win := platform.NewHeadlessWindow(width, height)
	defer win.Close()
	loop := platform.NewLoop()

	orch, err := frameloop.New(sub,
		frameloop.WithConfig(cfg),
		frameloop.WithLogger(logger),
		frameloop.WithMetrics(collector),
		frameloop.WithWindow(win),
		frameloop.WithEventLoop(loop),
		frameloop.WithScene(newWorld(256)),
	)
	if err != nil {
		return err
	}

	modules := []struct {
		m frameloop.Module
		p frameloop.Priority
		c frameloop.Criticality
	}{
		{newPresenter(b, win), frameloop.PriorityFirst, frameloop.Critical},
		{newInput(loop), frameloop.PriorityEarly, frameloop.NonCritical},
		{&physics{}, frameloop.PriorityNormal, frameloop.NonCritical},
		{&renderer{backend: b}, frameloop.PriorityLate, frameloop.Critical},
		{&stats{every: 120}, frameloop.PriorityLast, frameloop.NonCritical},
	}
	for _, mod := range modules {
		if err := orch.Registry().RegisterModule(mod.m, mod.p, mod.c); err != nil {
			return err
		}
	}

	logger.Info("framedemo starting", "backend", b.Name(), "window", win.ID())
	return orch.Run(ctx)
}
