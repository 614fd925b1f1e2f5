package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hashgraph-online/device-anchor-go/pkg/anchor"
	"github.com/hashgraph-online/device-anchor-go/pkg/identity"
	"github.com/hashgraph-online/device-anchor-go/pkg/readings"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
	"github.com/hashgraph-online/device-anchor-go/pkg/signature"
)

const (
	OperatorSecretHeader = "X-Operator-Secret"
	maxBodyBytes         = 1 << 20
	shutdownTimeout      = 10 * time.Second
)

type IdentityService interface {
	IssueChallenge(ctx context.Context, macAddress string, publicKey string) (string, error)
	VerifyChallenge(ctx context.Context, publicKey string, challenge string, sig signature.Signature) (identity.Registration, error)
	ClaimDevice(ctx context.Context, claimToken string, ownerAddress string) (identity.ClaimResult, error)
	RecoverClaimToken(ctx context.Context, publicKey string) (identity.ClaimTokenResult, error)
	RevokeDevice(ctx context.Context, identityTokenAddress string, sig signature.Signature) (identity.RevokeResult, error)
}

type ReadingsService interface {
	Submit(ctx context.Context, reading readings.SignedReading) (readings.Receipt, error)
}

type Anchorer interface {
	Run(ctx context.Context) (anchor.Result, error)
}

type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	OperatorSecret string
	Logger         *zerolog.Logger

	Identity IdentityService
	Readings ReadingsService
	Anchorer Anchorer
	Verifier *anchor.Verifier
}

type Server struct {
	httpServer     *http.Server
	operatorSecret string
	logger         zerolog.Logger

	identity IdentityService
	readings ReadingsService
	anchorer Anchorer
	verifier *anchor.Verifier
}

func New(config Config) (*Server, error) {
	if config.Identity == nil || config.Readings == nil || config.Anchorer == nil || config.Verifier == nil {
		return nil, shared.NewConfigurationError("server requires identity, readings, anchor and verifier services", nil)
	}
	if config.OperatorSecret == "" {
		return nil, shared.NewConfigurationError("server requires an operator secret", nil)
	}
	addr := config.Addr
	if addr == "" {
		addr = shared.DefaultListenAddr
	}
	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	idleTimeout := config.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	server := &Server{
		operatorSecret: config.OperatorSecret,
		logger:         logger.With().Str("component", "http").Logger(),
		identity:       config.Identity,
		readings:       config.Readings,
		anchorer:       config.Anchorer,
		verifier:       config.Verifier,
	}

	mux := http.NewServeMux()
	server.registerRoutes(mux)

	// No default write timeout: POST /v1/anchor waits for ledger confirmation.
	server.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}
	return server, nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /v1/devices/challenge", s.handleChallenge)
	mux.HandleFunc("POST /v1/devices/register", s.handleRegister)
	mux.HandleFunc("POST /v1/devices/claim", s.handleClaim)
	mux.HandleFunc("POST /v1/devices/claim-token", s.handleRecoverClaimToken)
	mux.HandleFunc("POST /v1/devices/revoke", s.handleRevoke)

	mux.HandleFunc("POST /v1/readings", s.handleSubmitReading)

	mux.HandleFunc("POST /v1/anchor", s.handleAnchor)
	mux.HandleFunc("GET /v1/proofs/{leafHash}", s.handleGetProof)
	mux.HandleFunc("POST /v1/verify/root", s.handleVerifyRoot)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
