// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinwatch

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/metric"
)

type config struct {
	MeterProvider metric.MeterProvider
	Interval      time.Duration
	Clock         clockwork.Clock
	Logger        *slog.Logger
}

// Option configures a Sentinel.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(cfg *config) {
	f(cfg)
}

// WithMeterProvider sets the OpenTelemetry meter provider used for the
// sentinel's reload and expiry instruments. Defaults to the global provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return optionFunc(func(cfg *config) {
		if provider != nil {
			cfg.MeterProvider = provider
		}
	})
}

// WithPollInterval sets how often the pin file is polled for changes in
// addition to filesystem notifications. Defaults to DefaultPollInterval.
func WithPollInterval(interval time.Duration) Option {
	return optionFunc(func(cfg *config) {
		if interval > 0 {
			cfg.Interval = interval
		}
	})
}

// WithClock substitutes the clock driving the poll ticker. Intended for
// tests.
func WithClock(clock clockwork.Clock) Option {
	return optionFunc(func(cfg *config) {
		if clock != nil {
			cfg.Clock = clock
		}
	})
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(cfg *config) {
		if logger != nil {
			cfg.Logger = logger
		}
	})
}
