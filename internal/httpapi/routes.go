package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/teamtrack/volley-live-backend/internal/auth"
	"github.com/teamtrack/volley-live-backend/internal/hub"
	"github.com/teamtrack/volley-live-backend/internal/metrics"
	"github.com/teamtrack/volley-live-backend/internal/store"
	"github.com/teamtrack/volley-live-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.MatchStore, verifier auth.Verifier, logger *zap.Logger, met *metrics.Metrics, wsOpts ws.Options) http.Handler {
	r := chi.NewRouter()

	r.Post("/matches", CreateMatch(st, logger))
	r.Get("/matches", ListMatches(st))
	r.Get("/matches/{matchID}", GetMatch(h, st))
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", met.Handler())
	r.Get("/ws", ws.Handler(h, verifier, logger, met, wsOpts))
	return r
}
