// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package simulator implements an HTTPS server that behaves like a Tesla
// Backup Gateway 2: a self-signed certificate for the hostname "teg", the
// customer login flow, and the read-only REST endpoints the client consumes.
// It backs the end-to-end tests and the serve command, so discovery, pinning,
// and the typed API can be exercised without the physical appliance.
package simulator

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-teg/pkg/pintls"
	"github.com/jeremyhahn/go-teg/pkg/teg"
)

const (
	// DefaultListenAddr binds to the loopback interface on an ephemeral
	// port, which is what the tests want. A deployment that should look
	// like a gateway on the LAN passes "0.0.0.0:443" instead.
	DefaultListenAddr = "127.0.0.1:0"

	// certificateLifetime matches the roughly two year validity of the
	// certificates real gateways mint for themselves.
	certificateLifetime = 2 * 365 * 24 * time.Hour

	shutdownGrace = 5 * time.Second
	tokenBytes    = 32
)

// Config configures a gateway simulator.
type Config struct {
	// ListenAddr is the TCP address to listen on. Default:
	// DefaultListenAddr.
	ListenAddr string

	// Password is the customer password accepted by /api/login/Basic.
	// Required. Only a bcrypt hash of it is retained.
	Password string

	// Email is the customer email reported by the login response.
	Email string

	// DIN is the device identification number reported by /api/status.
	// A plausible one is generated when empty.
	DIN string

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Simulator is a fake Backup Gateway. Create one with New, optionally call
// Listen to learn the bound address, then Run until the context is
// cancelled.
type Simulator struct {
	cfg          Config
	logger       *slog.Logger
	passwordHash []byte
	certDER      []byte
	tlsCert      tls.Certificate
	startTime    time.Time

	mu       sync.Mutex
	listener net.Listener
	tokens   map[string]struct{}
}

// New creates a simulator, generating its self-signed serving certificate.
func New(cfg *Config) (*Simulator, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("%w: customer password required", ErrInvalidConfig)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	conf := *cfg
	if conf.ListenAddr == "" {
		conf.ListenAddr = DefaultListenAddr
	}
	if conf.DIN == "" {
		conf.DIN = "1232100-00-E--TG121048001234"
	}
	if conf.Email == "" {
		conf.Email = "owner@example.com"
	}
	if conf.Logger == nil {
		conf.Logger = slog.Default()
	}

	s := &Simulator{
		cfg:          conf,
		logger:       conf.Logger.With("component", "simulator"),
		passwordHash: hash,
		startTime:    time.Now(),
		tokens:       make(map[string]struct{}),
	}
	if err := s.generateCertificate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Listen binds the listener. Safe to call before Run to learn the bound
// address; Run calls it when it has not been called yet.
func (s *Simulator) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	inner, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	s.listener = tls.NewListener(inner, &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{s.tlsCert},
	})
	s.logger.Info("simulator listening", "address", inner.Addr().String())
	return nil
}

// Run serves the gateway API until ctx is cancelled, then shuts down
// gracefully.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Addr returns the bound address. Listen must have succeeded first.
func (s *Simulator) Addr() (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return netip.AddrPort{}, ErrNotListening
	}
	return netip.ParseAddrPort(s.listener.Addr().String())
}

// Certificate returns the DER encoding of the serving certificate, the same
// bytes a discovery capture against the simulator yields.
func (s *Simulator) Certificate() []byte {
	return s.certDER
}

// CertificatePEM returns the serving certificate as a PEM block, ready to be
// written to a pin file.
func (s *Simulator) CertificatePEM() []byte {
	return pintls.EncodePEM(s.certDER)
}

func (s *Simulator) generateCertificate() error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: pintls.GatewayHost},
		DNSNames:     []string{pintls.GatewayHost},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(certificateLifetime),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	s.certDER = der
	s.tlsCert = tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}
	return nil
}

func (s *Simulator) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/login/Basic", s.handleLogin)
	mux.HandleFunc("GET /api/meters/aggregates", s.requireAuth(s.handleMeters))
	mux.HandleFunc("GET /api/system_status", s.requireAuth(s.handleSystemStatus))
	mux.HandleFunc("GET /api/system_status/soe", s.handleStateOfEnergy)
	mux.HandleFunc("GET /api/legal/radio", s.handleLegalRadio)
	return mux
}

func (s *Simulator) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			s.unauthorized(w, r)
			return
		}

		s.mu.Lock()
		_, ok := s.tokens[header[len(prefix):]]
		s.mu.Unlock()
		if !ok {
			s.unauthorized(w, r)
			return
		}
		next(w, r)
	}
}

func (s *Simulator) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("unauthorized request", "path", r.URL.Path)
	s.writeJSON(w, http.StatusUnauthorized, map[string]any{
		"code":    http.StatusUnauthorized,
		"error":   "Unable to GET to resource",
		"message": "User does not have adequate access rights",
	})
}

func (s *Simulator) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var gitHash teg.GitHash
	hex.Decode(gitHash[:], []byte("452c76cb10183c8ee2eeb64116cb482e336ba413")) //nolint:errcheck

	s.writeJSON(w, http.StatusOK, &teg.Status{
		DIN:        s.cfg.DIN,
		StartTime:  teg.GatewayTime{Time: s.startTime},
		UpTime:     teg.Uptime(time.Since(s.startTime)),
		Version:    "23.12.11 452c76cb",
		GitHash:    gitHash,
		DeviceType: "teg",
		TEGType:    "unknown",
		SyncType:   "v2.1",
		Leader:     "",
		Followers:  nil,
	})
}

func (s *Simulator) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    http.StatusBadRequest,
			"message": "malformed login request",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(creds.Password)); err != nil {
		s.unauthorized(w, r)
		return
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"code":    http.StatusInternalServerError,
			"message": "token generation failed",
		})
		return
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("customer login", "username", creds.Username)
	s.writeJSON(w, http.StatusOK, &teg.LoginBasic{
		Email:     s.cfg.Email,
		Firstname: "Tesla",
		Lastname:  "Energy",
		Roles:     []string{"Home_Owner"},
		Token:     token,
		Provider:  "Basic",
		LoginTime: time.Now().UTC(),
	})
}

func (s *Simulator) handleMeters(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	device := func(power float64, meters uint16) teg.AggregateMeterDevice {
		return teg.AggregateMeterDevice{
			LastCommunicationTime:             now,
			InstantPower:                      power,
			InstantAverageVoltage:             213.2,
			Frequency:                         50,
			EnergyExported:                    1203421.5,
			EnergyImported:                    2296964.2,
			LastPhaseVoltageCommunicationTime: now,
			LastPhasePowerCommunicationTime:   now,
			LastPhaseEnergyCommunicationTime:  now,
			NumMetersAggregated:               meters,
		}
	}

	// Solar covers the home load and charges the battery, with a small
	// grid import keeping the balance exact.
	s.writeJSON(w, http.StatusOK, &teg.MetersAggregates{
		Load:    device(1392.9, 1),
		Grid:    device(734.5, 1),
		Battery: device(-541.8, 2),
		Solar:   device(1200.2, 1),
	})
}

func (s *Simulator) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, &teg.SystemStatus{
		CommandSource:          "Configuration",
		BatteryTargetPower:     -541.8,
		NominalFullPackEnergy:  27134,
		NominalEnergyRemaining: 14042,
		MaxChargePower:         10000,
		MaxDischargePower:      10000,
		MaxApparentPower:       10000,
		SystemIslandState:      "SystemGridConnected",
		AvailableBlocks:        2,
		BatteryBlocks: []teg.BatteryBlock{
			s.batteryBlock("TG121048001234", -270),
			s.batteryBlock("TG121048005678", -271),
		},
		GridFaults:                 []string{},
		CanReboot:                  "Yes",
		BlocksControlled:           2,
		Primary:                    true,
		AllEnableLinesHigh:         true,
		InverterNominalUsablePower: 10000,
		ExpectedEnergyRemaining:    0,
	})
}

func (s *Simulator) batteryBlock(serial string, pOut int32) teg.BatteryBlock {
	return teg.BatteryBlock{
		Type:                   "",
		PackagePartNumber:      "1092170-23-J",
		PackageSerialNumber:    serial,
		DisabledReasons:        []string{},
		PinvState:              "PINV_GridFollowing",
		PinvGridState:          "Grid_Compliant",
		NominalEnergyRemaining: 7021,
		NominalFullPackEnergy:  13567,
		POut:                   pOut,
		QOut:                   0,
		VOut:                   213.2,
		FOut:                   49.98,
		IOut:                   1.3,
		EnergyCharged:          8662450,
		EnergyDischarged:       7426370,
		BackupReady:            true,
		OpSeqState:             "Active",
		Version:                "fa0c1ad02efda3",
	}
}

func (s *Simulator) handleStateOfEnergy(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, &teg.StateOfEnergy{Percentage: 51.75})
}

func (s *Simulator) handleLegalRadio(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, []teg.Radio{
		{
			Manufacturer: "Tesla Motors, Inc",
			Model:        "1538100",
			FCCID:        "2AEIM-1538100",
			ICID:         "20098-1538100",
		},
	})
}

func (s *Simulator) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}
