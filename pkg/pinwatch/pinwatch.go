// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinwatch keeps a pinned certificate set current while the
// operator's pin file changes on disk, so a long-running client survives the
// gateway's periodic certificate regeneration without a restart. The
// sentinel watches the pin file with filesystem notifications and a polling
// fallback, atomically swapping in each successfully parsed set; its
// VerifyPeerCertificate method always checks against the latest set.
package pinwatch

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jeremyhahn/go-teg/pkg/pintls"
)

// ScopeName is the instrumentation scope for the sentinel's metrics.
const ScopeName = "github.com/jeremyhahn/go-teg/pkg/pinwatch"

// DefaultPollInterval is how often the pin file is polled when filesystem
// notifications are unavailable or missed.
const DefaultPollInterval = 30 * time.Second

// ErrWatch is returned when the filesystem watcher cannot be established or
// fails while running.
var ErrWatch = errors.New("pinwatch: watcher failed")

// pinState is the immutable snapshot the sentinel atomically swaps.
type pinState struct {
	set pintls.CertSet

	// notAfter is the earliest expiry among the parseable pinned
	// certificates, zero when none parse.
	notAfter time.Time
}

// Sentinel watches a PEM pin file and exposes the pinned certificate set it
// currently contains. Safe for concurrent use.
type Sentinel struct {
	pinPath  string
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	state    atomic.Pointer[pinState]
	reloads  metric.Int64Counter
}

// New creates a Sentinel and performs the initial load of the pin file. The
// file must exist and contain at least one certificate; rotation failures
// after this point keep the previous set instead.
func New(pinPath string, opts ...Option) (*Sentinel, error) {
	cfg := &config{
		MeterProvider: otel.GetMeterProvider(),
		Interval:      DefaultPollInterval,
		Clock:         clockwork.NewRealClock(),
		Logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	s := &Sentinel{
		pinPath:  pinPath,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger.With("component", "pinwatch"),
	}

	meter := cfg.MeterProvider.Meter(ScopeName)

	var err error
	s.reloads, err = meter.Int64Counter(
		"pin.reloads",
		metric.WithDescription("Number of times the pin file was reloaded into the trusted set"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"pin.not_after_timestamp",
		metric.WithUnit("s"),
		metric.WithDescription("The time after which the earliest pinned certificate expires. Expressed as seconds since the Unix Epoch"),
		metric.WithInt64Callback(s.observeNotAfter),
	)
	if err != nil {
		return nil, err
	}

	if err := s.load(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to load initial pin set: %w", err)
	}

	return s, nil
}

// Start watches the pin file until ctx is cancelled, reloading the trusted
// set whenever the file is rewritten. Filesystem notifications are the fast
// path; the poll ticker catches editors and provisioning tools that replace
// the file in ways notifications miss.
func (s *Sentinel) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatch, err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.pinPath); err != nil {
		return fmt.Errorf("%w: %w", ErrWatch, err)
	}

	lastStat, err := os.Stat(s.pinPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatch, err)
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.reload(ctx)
				if stat, statErr := os.Stat(s.pinPath); statErr == nil {
					lastStat = stat
				}
			}

		case watchErr := <-watcher.Errors:
			return fmt.Errorf("%w: %w", ErrWatch, watchErr)

		case <-ticker.Chan():
			stat, statErr := os.Stat(s.pinPath)
			if statErr != nil {
				s.logger.Warn("pin file stat failed", "path", s.pinPath, "error", statErr)
				continue
			}
			if stat.Size() != lastStat.Size() || !stat.ModTime().Equal(lastStat.ModTime()) {
				s.reload(ctx)
				lastStat = stat
			}
		}
	}
}

// CertSet returns the currently trusted certificate set.
func (s *Sentinel) CertSet() pintls.CertSet {
	if state := s.state.Load(); state != nil {
		return state.set
	}
	return nil
}

// VerifyPeerCertificate checks a presented leaf against the latest pinned
// set. The signature matches tls.Config.VerifyPeerCertificate, so the
// sentinel can back teg.Config.Verify directly.
func (s *Sentinel) VerifyPeerCertificate(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
	return s.CertSet().Verify(rawCerts, verifiedChains)
}

// load reads and parses the pin file and swaps it in.
func (s *Sentinel) load(ctx context.Context) error {
	set, err := pintls.LoadCertSet(s.pinPath)
	if err != nil {
		return err
	}

	state := &pinState{set: set}
	for _, der := range set {
		cert, parseErr := x509.ParseCertificate(der)
		if parseErr != nil {
			continue
		}
		if state.notAfter.IsZero() || cert.NotAfter.Before(state.notAfter) {
			state.notAfter = cert.NotAfter
		}
	}

	s.state.Store(state)
	s.reloads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pin.path", s.pinPath),
	))
	s.logger.Info("pin set loaded", "path", s.pinPath, "certificates", len(set))
	return nil
}

// reload is load with rotation semantics: a transiently unreadable or
// half-written pin file keeps the previous set.
func (s *Sentinel) reload(ctx context.Context) {
	if err := s.load(ctx); err != nil {
		s.logger.Warn("pin reload failed, keeping previous set", "path", s.pinPath, "error", err)
	}
}

func (s *Sentinel) observeNotAfter(_ context.Context, observer metric.Int64Observer) error {
	if state := s.state.Load(); state != nil && !state.notAfter.IsZero() {
		observer.Observe(
			state.notAfter.Unix(),
			metric.WithAttributes(attribute.String("pin.path", s.pinPath)),
		)
	}
	return nil
}
