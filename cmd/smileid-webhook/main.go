package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	smileid "github.com/afrimobile/go-smileid"
	"github.com/afrimobile/go-smileid/adapters/gologger"
	"github.com/afrimobile/go-smileid/core"
	"github.com/afrimobile/go-smileid/internal/storage"
	"github.com/afrimobile/go-smileid/server"
)

func main() {
	root := gologger.NewSlogLogger(os.Stderr, os.Getenv("LOG_LEVEL"))
	provider := gologger.Provider{Root: root}
	logger := gologger.Named(provider, "server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := smileid.LoadConfig(smileid.Config{}, smileid.WithEnvConfig(), smileid.WithLoggerProvider(provider))
	if err != nil {
		logger.Fatal("load config", "error", err)
	}

	opts := []smileid.Option{
		smileid.WithEnvConfig(),
		smileid.WithLoggerProvider(provider),
		smileid.WithReplayLedger(core.NewMemoryReplayLedger(0, 0)),
	}
	store, err := storage.Open(ctx, cfg.Database, gologger.Named(provider, "store"),
		storage.WithServiceName("smileid-webhook"),
	)
	if err != nil {
		logger.Fatal("open store", "error", err)
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, smileid.WithOutcomeSink(store.Sink(gologger.Named(provider, "webhooks"))))
	}

	client, err := smileid.New(cfg, opts...)
	if err != nil {
		logger.Fatal("build client", "error", err)
	}

	e := server.Router(client.Processor(), server.WithLogger(gologger.Named(provider, "http")))
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("webhook server listening",
			"addr", srv.Addr,
			"callback", server.CallbackPath,
			"environment", string(cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
