// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/factorbench/pkg/logging"
	"github.com/AleutianAI/factorbench/pkg/observability"
	"github.com/AleutianAI/factorbench/pkg/ux"
	"github.com/AleutianAI/factorbench/services/factorial/config"
	"github.com/AleutianAI/factorbench/services/factorial/examples"
	"github.com/AleutianAI/factorbench/services/factorial/experiment"
	"github.com/AleutianAI/factorbench/services/factorial/harness"
	"github.com/AleutianAI/factorbench/services/factorial/regression"
	"github.com/AleutianAI/factorbench/services/factorial/telemetry"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath   string
	artifactRoot string
	logLevel     string
	json         bool
	plain        bool
	trace        bool
}

// app holds the state shared by all commands of one invocation.
type app struct {
	flags globalFlags

	stdout io.Writer
	stderr io.Writer

	cfg      config.Config
	logger   *logging.Logger
	printer  *ux.Printer
	registry *examples.Registry

	// metrics backs the Prometheus sink, the OpenTelemetry exporter and
	// the serve command's /metrics endpoint.
	metrics *prometheus.Registry

	shutdown func(context.Context) error
}

func newApp(stdout, stderr io.Writer, registry *examples.Registry) *app {
	return &app{
		stdout:   stdout,
		stderr:   stderr,
		registry: registry,
		metrics:  prometheus.NewRegistry(),
		logger:   logging.New(logging.Config{Quiet: true}),
		printer:  ux.NewPrinter(stdout, ux.ModePlain),
	}
}

// setup loads the configuration, applies flag overrides and installs
// logging and observability. It runs before every command.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("artifact-root") {
		cfg.ArtifactRoot = a.flags.artifactRoot
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if flags.Changed("json") {
		cfg.Log.JSON = a.flags.json
	}
	if a.flags.trace {
		cfg.Tracing.Traces = observability.ExporterStdout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: logging.DefaultService,
		JSON:    cfg.Log.JSON,
		Output:  a.stderr,
	})

	mode := ux.ModePlain
	if f, ok := a.stdout.(*os.File); ok && !a.flags.plain {
		mode = ux.DetectMode(f)
	}
	a.printer = ux.NewPrinter(a.stdout, mode)

	obs := cfg.ObservabilityConfig(logging.DefaultService, version)
	obs.Registerer = a.metrics
	obs.Writer = a.stderr
	a.shutdown, err = observability.Init(cmd.Context(), obs)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	return nil
}

// close flushes observability and closes the log file.
func (a *app) close() error {
	var errs []error
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// sink builds the configured telemetry sinks.
func (a *app) sink() (telemetry.Sink, error) {
	var sinks []telemetry.Sink

	if a.cfg.Telemetry.Prometheus.Enabled {
		pc := a.cfg.PrometheusSinkConfig()
		pc.Registry = a.metrics
		p, err := telemetry.NewPrometheusSink(pc)
		if err != nil {
			return nil, fmt.Errorf("prometheus sink: %w", err)
		}
		sinks = append(sinks, p)
	}
	if a.cfg.Telemetry.Influx.Enabled {
		i, err := telemetry.NewInfluxSink(a.cfg.InfluxSinkConfig())
		if err != nil {
			return nil, fmt.Errorf("influx sink: %w", err)
		}
		sinks = append(sinks, i)
	}

	if len(sinks) == 0 {
		return telemetry.NoOpSink{}, nil
	}
	return telemetry.NewCompositeSink(sinks...)
}

// runner builds a local harness and a runner over the artifact root.
func (a *app) runner(sink telemetry.Sink) (*experiment.Runner, error) {
	h, err := harness.NewLocal(a.cfg.HarnessOptions()...)
	if err != nil {
		return nil, err
	}
	h.SetLogger(a.logger.Slog())
	return experiment.NewRunner(h, a.cfg.ArtifactRoot,
		experiment.WithLogger(a.logger.Slog()),
		experiment.WithSink(sink),
	), nil
}

// gate opens the badger history and wraps it in a regression gate. The
// returned close function closes the database.
func (a *app) gate() (*regression.Gate, func() error, error) {
	store, err := regression.OpenBadger(regression.BadgerConfig{
		Path:       a.cfg.History.Path,
		SyncWrites: true,
		Logger:     a.logger.Slog(),
	})
	if err != nil {
		return nil, nil, err
	}
	detector, err := regression.NewDetector(a.cfg.History.Threshold)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	gate, err := regression.NewGate(store, detector,
		regression.WithUpdateOnPass(a.cfg.History.UpdateOnPass),
		regression.WithGateLogger(a.logger.Slog()),
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return gate, store.Close, nil
}
