// cmd/gateway/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/driver"
	"github.com/tamzrod/modbus-gateway/internal/metrics"
	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/writer"
)

func main() {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		boot.Fatal().Msg("usage: gateway <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("config load failed")
	}

	if err := config.Validate(cfg); err != nil {
		boot.Fatal().Err(err).Msg("config validation failed")
	}

	config.Normalize(cfg)

	logger := newLogger(cfg.Gateway.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)

	// --------------------
	// Build per-device pipelines
	// --------------------

	var wg sync.WaitGroup
	writers := make(map[string]writer.ValueWriter, len(cfg.Gateway.Devices))

	for _, dev := range cfg.Gateway.Devices {
		dev := dev // per-iteration copy (go directive is 1.21; goroutines below capture dev)
		dlog := logger.With().Str("device", dev.ID).Logger()

		// ---- driver (one connection per device) ----
		drv, err := openDriver(dev.Source)
		if err != nil {
			dlog.Fatal().Err(err).Str("endpoint", dev.Source.Endpoint).Msg("driver open failed")
		}
		defer drv.Close()

		// ---- poller ----
		p, err := poller.Build(dev, drv, dlog)
		if err != nil {
			dlog.Fatal().Err(err).Msg("poller build failed")
		}

		// ---- writer ----
		w, err := writer.Build(dev, drv, dlog)
		if err != nil {
			dlog.Fatal().Err(err).Msg("writer build failed")
		}
		writers[dev.ID] = w

		// ---- channel between poller and orchestrator ----
		out := make(chan poller.PollResult)

		wg.Add(2)
		go func() {
			defer wg.Done()
			newOrchestrator(dev.ID, collector, dlog).run(ctx, out)
		}()
		go func() {
			defer wg.Done()
			p.Run(ctx, out)
		}()

		dlog.Info().
			Str("mode", dev.Source.Mode).
			Str("endpoint", dev.Source.Endpoint).
			Int("variables", len(dev.Variables)).
			Int("interval_ms", dev.Poll.IntervalMs).
			Msg("device started")
	}

	// --------------------
	// HTTP: metrics + writes
	// --------------------

	var srv *http.Server
	if cfg.Gateway.MetricsListen != "" {
		srv = &http.Server{
			Addr:              cfg.Gateway.MetricsListen,
			Handler:           newMux(reg, writers, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http listener failed")
				stop()
			}
		}()
		logger.Info().Str("listen", cfg.Gateway.MetricsListen).Msg("http listening")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
	}

	wg.Wait()
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func openDriver(src config.SourceConfig) (*driver.Driver, error) {
	timeout := time.Duration(src.TimeoutMs) * time.Millisecond

	if src.Mode == config.ModeRTU {
		return driver.DialRTU(driver.RTUConfig{
			Device:   src.Endpoint,
			BaudRate: src.BaudRate,
			DataBits: src.DataBits,
			Parity:   src.Parity,
			StopBits: src.StopBits,
			Timeout:  timeout,
		})
	}

	return driver.DialTCP(driver.TCPConfig{
		Endpoint: src.Endpoint,
		Timeout:  timeout,
	})
}
