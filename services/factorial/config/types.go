// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the factorbench configuration file schema.
package config

import (
	"time"

	"github.com/AleutianAI/factorbench/pkg/observability"
	"github.com/AleutianAI/factorbench/services/factorial/harness"
	"github.com/AleutianAI/factorbench/services/factorial/regression"
	"github.com/AleutianAI/factorbench/services/factorial/telemetry"
)

// Config is the root of factorbench.yaml.
type Config struct {
	// ArtifactRoot holds statistics and summaries, {root}/{bench}/...
	ArtifactRoot string `yaml:"artifact_root" validate:"required"`

	Log       LogConfig       `yaml:"log"`
	Harness   HarnessConfig   `yaml:"harness"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Tracing   TracingConfig   `yaml:"tracing"`
	History   HistoryConfig   `yaml:"history"`
	Publish   PublishConfig   `yaml:"publish"`
	Serve     ServeConfig     `yaml:"serve"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`

	// Dir enables JSON file logging when set.
	Dir string `yaml:"dir,omitempty"`
}

// HarnessConfig configures the local timing harness.
type HarnessConfig struct {
	WarmUpTime      time.Duration `yaml:"warm_up_time" validate:"gte=0"`
	MeasurementTime time.Duration `yaml:"measurement_time" validate:"gt=0"`
	Samples         int           `yaml:"samples" validate:"gte=2"`
	Sampling        string        `yaml:"sampling" validate:"oneof=linear flat"`
	MaxIterations   int64         `yaml:"max_iterations" validate:"gte=0"`
}

// TelemetryConfig selects the metrics sinks.
type TelemetryConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Influx     InfluxConfig     `yaml:"influx"`
}

// PrometheusConfig configures the Prometheus sink.
type PrometheusConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required_if=Enabled true"`
	Subsystem string `yaml:"subsystem" validate:"required_if=Enabled true"`
}

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true"`
	Token   string `yaml:"token,omitempty"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// TracingConfig selects the OpenTelemetry exporters. Metrics exported
// with "prometheus" appear on the serve command's /metrics endpoint.
type TracingConfig struct {
	Traces   string `yaml:"traces" validate:"oneof=none stdout otlp"`
	Metrics  string `yaml:"metrics" validate:"oneof=none stdout prometheus"`
	Endpoint string `yaml:"endpoint,omitempty" validate:"required_if=Traces otlp"`
	Insecure bool   `yaml:"insecure"`
}

// HistoryConfig configures the run history used by compare.
type HistoryConfig struct {
	// Path is the badger directory.
	Path         string  `yaml:"path" validate:"required"`
	Threshold    float64 `yaml:"threshold" validate:"gt=0"`
	UpdateOnPass bool    `yaml:"update_on_pass"`
}

// PublishConfig configures the publish command. Bucket takes precedence
// over Dir.
type PublishConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`

	// Credentials is a service account key file. Empty uses application
	// default credentials.
	Credentials string `yaml:"credentials,omitempty"`
}

// ServeConfig configures the report server.
type ServeConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// Default returns the built-in configuration.
func Default() Config {
	h := harness.DefaultConfig()
	p := telemetry.DefaultPrometheusConfig()
	return Config{
		ArtifactRoot: h.Root,
		Log:          LogConfig{Level: "info"},
		Harness: HarnessConfig{
			WarmUpTime:      h.WarmUpTime,
			MeasurementTime: h.MeasurementTime,
			Samples:         h.Samples,
			Sampling:        string(h.Sampling),
		},
		Telemetry: TelemetryConfig{
			Prometheus: PrometheusConfig{Enabled: true, Namespace: p.Namespace, Subsystem: p.Subsystem},
		},
		Tracing: TracingConfig{
			Traces:   observability.ExporterNone,
			Metrics:  observability.ExporterNone,
			Endpoint: "localhost:4317",
			Insecure: true,
		},
		History: HistoryConfig{
			Path:      "target/factorbench/.history",
			Threshold: regression.DefaultThreshold,
		},
		Serve: ServeConfig{Addr: "127.0.0.1:9464"},
	}
}

// HarnessOptions converts the harness section into harness options
// rooted at ArtifactRoot.
func (c Config) HarnessOptions() []harness.Option {
	return []harness.Option{
		harness.WithRoot(c.ArtifactRoot),
		harness.WithWarmUpTime(c.Harness.WarmUpTime),
		harness.WithMeasurementTime(c.Harness.MeasurementTime),
		harness.WithSamples(c.Harness.Samples),
		harness.WithSampling(harness.Sampling(c.Harness.Sampling)),
		harness.WithMaxIterations(c.Harness.MaxIterations),
	}
}

// PrometheusSinkConfig converts the prometheus section.
func (c Config) PrometheusSinkConfig() *telemetry.PrometheusConfig {
	p := telemetry.DefaultPrometheusConfig()
	p.Namespace = c.Telemetry.Prometheus.Namespace
	p.Subsystem = c.Telemetry.Prometheus.Subsystem
	return p
}

// ObservabilityConfig converts the tracing section for the named service.
func (c Config) ObservabilityConfig(service, version string) observability.Config {
	return observability.Config{
		ServiceName:    service,
		ServiceVersion: version,
		TraceExporter:  c.Tracing.Traces,
		MetricExporter: c.Tracing.Metrics,
		OTLPEndpoint:   c.Tracing.Endpoint,
		OTLPInsecure:   c.Tracing.Insecure,
	}
}

// InfluxSinkConfig converts the influx section.
func (c Config) InfluxSinkConfig() telemetry.InfluxConfig {
	i := c.Telemetry.Influx
	return telemetry.InfluxConfig{URL: i.URL, Token: i.Token, Org: i.Org, Bucket: i.Bucket}
}
