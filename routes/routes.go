package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/match-developers/matchplay/handlers"
	"github.com/match-developers/matchplay/middleware"
)

type Handlers struct {
	Competition *handlers.CompetitionHandler
	Match       *handlers.MatchHandler
	WebSocket   *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, auth *middleware.Authenticator) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/competitions", func(r chi.Router) {
		r.Get("/", h.Competition.List)
		r.Get("/{competitionID}", h.Competition.Get)
		r.Get("/{competitionID}/standings", h.Competition.Standings)
		r.Get("/{competitionID}/matches", h.Competition.ListMatches)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/", h.Competition.Create)
			r.Post("/{competitionID}/join", h.Competition.Join)
			r.Post("/{competitionID}/schedule", h.Competition.GenerateSchedule)
			r.Post("/{competitionID}/cancel", h.Competition.Cancel)
			r.Delete("/{competitionID}", h.Competition.Delete)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/", h.Match.CreateFriendly)
			r.Post("/{matchID}/start", h.Match.Start)
			r.Post("/{matchID}/complete", h.Match.Complete)
			r.Post("/{matchID}/cancel", h.Match.Cancel)
		})
	})

	router.Get("/ws/competitions/{competitionID}", h.WebSocket.ServeWs)

	return router
}
