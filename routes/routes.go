package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/Dosada05/bracket-engine/docs"
	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/middleware"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Brackets  *handlers.BracketHandler
	Matches   *handlers.MatchHandler
	WebSocket *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         *slog.Logger
	// Ready проверяет зависимости для /healthz, обычно пинг БД.
	Ready func(ctx context.Context) error
}

// @title Bracket Engine API
// @version 1.0
// @description Сетки single elimination, live-матчи и призёры турниров.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	elevated := func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))
		r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer))
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/brackets", h.Brackets.ListEventBrackets)
			r.Get("/results", h.Brackets.ListEventResults)
			r.Group(func(r chi.Router) {
				elevated(r)
				r.Post("/brackets", h.Brackets.BuildBrackets)
			})
		})

		r.Route("/brackets/{bracketID}", func(r chi.Router) {
			r.Get("/", h.Brackets.GetBracket)
			r.Get("/results", h.Brackets.ListBracketResults)
			r.Group(func(r chi.Router) {
				elevated(r)
				r.Post("/placements", h.Brackets.ComputePlacements)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/live", h.Matches.ListLiveMatches)
			r.Get("/{matchID}", h.Matches.GetMatch)
			r.Group(func(r chi.Router) {
				elevated(r)
				r.Post("/{matchID}/start", h.Matches.StartMatch)
				r.Patch("/{matchID}/score", h.Matches.UpdateMatchScore)
				r.Post("/{matchID}/end", h.Matches.EndMatch)
			})
		})
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/live", h.WebSocket.ServeLive)
		r.Get("/brackets/{bracketID}", h.WebSocket.ServeBracket)
		r.Get("/events/{eventID}", h.WebSocket.ServeEvent)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	router.Get("/healthz", healthHandler(opts.Ready))
}

func healthHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
