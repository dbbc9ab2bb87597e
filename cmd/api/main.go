package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/config"
	"github.com/stargate-rv/relay/internal/handler"
	"github.com/stargate-rv/relay/internal/handler/ws"
	"github.com/stargate-rv/relay/internal/logger"
	"github.com/stargate-rv/relay/internal/registry"
	"github.com/stargate-rv/relay/internal/service/ai"
	"github.com/stargate-rv/relay/internal/service/history"
	"github.com/stargate-rv/relay/internal/service/image"
	"github.com/stargate-rv/relay/internal/service/relay"
	"github.com/stargate-rv/relay/internal/storage/blob"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	store, err := newHistoryStore(cfg.History)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer store.Close()

	var generator relay.Generator
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("AI service unavailable, chat turns will fail")
		} else {
			generator = aiSvc
			log.Info().Str("model", cfg.AI.Model).Msg("AI service initialized")
		}
	} else {
		log.Warn().Msg("ark credentials not configured, chat turns will fail")
	}

	var images relay.ImageGenerator
	if cfg.Image.Enabled() {
		images = image.NewService(cfg.Image)
		log.Info().Str("model", cfg.Image.Model).Msg("image generation enabled")
	} else {
		log.Info().Msg("image generation disabled")
	}

	reg := registry.New()
	caster := relay.NewCaster(reg)
	pipeline := relay.NewPipeline(caster, store, generator, images, blob.NewOSStore(cfg.Blob.Dir))

	router := handler.NewRouter(ws.New(reg, caster, pipeline))

	startServer(ctx, cfg.Server, router)
}

func newHistoryStore(cfg config.HistoryConfig) (history.Store, error) {
	if cfg.Driver == "sqlite" {
		return history.NewSQLiteStore(cfg.DBPath)
	}
	return history.NewMemoryStore(), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("session relay listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
