package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"consultd/internal/config"
	"consultd/internal/service/scheduling"
	"consultd/internal/service/session"
	"consultd/internal/store"
	"consultd/internal/store/memory"
	"consultd/internal/store/postgres"
	httpTransport "consultd/internal/transport/http"
	"consultd/internal/video"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "consultd"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "consultd"),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("http_addr", cfg.HTTPAddr), slog.String("store_backend", cfg.StoreBackend), slog.String("log_level", cfg.LogLevel))

	var repo store.ScheduleRepository
	switch cfg.StoreBackend {
	case "memory":
		repo = memory.NewScheduleRepo()
	case "postgres", "":
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database connection failed", args...)
			os.Exit(1)
		}
		defer func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		}()
		repo = postgres.NewScheduleRepo(db)
	default:
		log.Error("unknown store backend", slog.String("store_backend", cfg.StoreBackend))
		os.Exit(1)
	}

	keyPEM, err := sessionKeyPEM(log, cfg.SessionKeyPath)
	if err != nil {
		log.Error("session key load failed", slog.Any("err", err), slog.String("path", cfg.SessionKeyPath))
		os.Exit(1)
	}
	sessions, err := video.NewProvider(cfg.SessionAppID, keyPEM, time.Now)
	if err != nil {
		log.Error("session provider init failed", slog.Any("err", err))
		os.Exit(1)
	}

	scheduler := scheduling.NewService(repo, sessions, scheduling.Options{
		HorizonDays:    cfg.SlotHorizonDays,
		SlotStep:       cfg.SlotStep,
		SessionTimeout: cfg.SessionTimeout,
	})
	issuer := session.NewIssuer(repo, sessions, time.Now, cfg.SessionTimeout)

	handler := httpTransport.NewHandler(scheduler, issuer, log)
	srv := httpTransport.NewServer(cfg.HTTPAddr, httpTransport.NewRouter(handler, cfg.HTTPRequestTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, srv, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, srv *httpTransport.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
		return
	}
	log.Info("http server stopped")
}

// sessionKeyPEM reads the RSA signing key from disk. Without a configured
// path it generates an ephemeral key so local development works out of the
// box; tokens minted with it do not survive a restart.
func sessionKeyPEM(log *slog.Logger, path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}

	log.Warn("no session private key configured; generating an ephemeral key")
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
