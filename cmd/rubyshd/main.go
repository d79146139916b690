// Command rubyshd serves HTTPS/1.1 and Gemini from one file tree over a
// single TLS-listening port.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rubyshd/internal/config"
	"rubyshd/internal/logging"
	"rubyshd/internal/model"
	"rubyshd/internal/pipeline"
	"rubyshd/internal/templates"
	"rubyshd/internal/tlsserver"
	"rubyshd/internal/unveil"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rubyshd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(os.Getenv("RUBYSHD_DEV") != "")

	if err := unveil.Setup(cfg); err != nil {
		return fmt.Errorf("unveil: %w", err)
	}

	engine, err := templates.NewEngine(cfg.PartialsPath, cfg.DataPath)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	pl, err := pipeline.New(cfg.PublicRootPath, cfg.ErrdocsPath, engine)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return fmt.Errorf("building TLS config: %w", err)
	}

	srv := &tlsserver.Server{
		Addr:            fmt.Sprintf(":%d", cfg.TLSListenPort),
		TLSConfig:       tlsConfig,
		DefaultHostname: cfg.DefaultHostname,
		Logger:          logger,
		Handler:         wireHandler(pl, logger),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info().Str("addr", srv.Addr).Msg("starting rubyshd")
	return srv.ListenAndServe(ctx)
}

// wireHandler adapts pipeline.Pipeline.Handle to tlsserver.Handler, logging
// each completed request with its outcome status.
func wireHandler(pl *pipeline.Pipeline, logger zerolog.Logger) tlsserver.Handler {
	return func(ctx context.Context, req model.Request) *model.Response {
		started := time.Now()
		resp := pl.Handle(req)
		connID, _ := tlsserver.ConnectionID(ctx)
		logging.LogRequest(logger, req, resp.Status, time.Since(started), connID)
		return resp
	}
}

func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLSServerCertificatePEMFilename, cfg.TLSServerPrivateKeyPEMFilename)
	if err != nil {
		return nil, err
	}

	var caPool *x509.CertPool
	if cfg.MutualTLSEnabled() {
		caBytes, err := os.ReadFile(cfg.TLSClientCACertificatePEMFilename)
		if err != nil {
			return nil, err
		}
		caPool = x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("no certificates parsed from %s", cfg.TLSClientCACertificatePEMFilename)
		}
	}

	return tlsserver.NewTLSConfig([]tls.Certificate{cert}, caPool), nil
}
