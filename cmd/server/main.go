package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teamtrack/volley-live-backend/internal/auth"
	"github.com/teamtrack/volley-live-backend/internal/config"
	"github.com/teamtrack/volley-live-backend/internal/httpapi"
	"github.com/teamtrack/volley-live-backend/internal/hub"
	"github.com/teamtrack/volley-live-backend/internal/metrics"
	"github.com/teamtrack/volley-live-backend/internal/store"
	"github.com/teamtrack/volley-live-backend/internal/ws"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.MatchStore
	if cfg.DatabaseDSN == "" {
		logger.Info("using in-memory store")
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		logger.Info("using postgres store")
		st = pg
	}

	verifier := auth.NewStaticVerifier()
	seedDevTokens(verifier, cfg.DevTokens, logger)

	met := metrics.New()
	h := hub.NewHub(ctx, st, logger, met, cfg.StatsInterval)

	handler := httpapi.SetupRoutes(h, st, verifier, logger, met, ws.Options{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// seedDevTokens registers comma-separated token=userID pairs so a local stack
// works without the external credential collaborator.
func seedDevTokens(v *auth.StaticVerifier, pairs string, logger *zap.Logger) {
	if pairs == "" {
		return
	}
	for _, pair := range strings.Split(pairs, ",") {
		token, userID, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" || userID == "" {
			logger.Warn("skipping malformed dev token entry", zap.String("entry", pair))
			continue
		}
		v.Register(token, userID, time.Time{})
		logger.Info("registered dev token", zap.String("user_id", userID))
	}
}
