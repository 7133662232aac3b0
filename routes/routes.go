package routes

import (
	"github.com/Dosada05/courtside/handlers"
	"github.com/Dosada05/courtside/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Config struct {
	JWTSecret          []byte
	CORSAllowedOrigins []string
}

// SetupRoutes mounts the public kiosk surface and the director-only
// mutation endpoints. Everything that changes scheduling state sits
// behind Authenticate + Authorize(director).
func SetupRoutes(
	router *chi.Mux,
	cfg Config,
	tournamentHandler *handlers.TournamentHandler,
	courtHandler *handlers.CourtHandler,
	schedulingHandler *handlers.SchedulingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	protect := func(r chi.Router) chi.Router {
		return r.With(
			middleware.Authenticate(cfg.JWTSecret),
			middleware.Authorize(middleware.RoleDirector),
		)
	}

	router.Route("/tournaments", func(r chi.Router) {
		protect(r).Post("/", tournamentHandler.CreateTournament)
		r.Get("/slug/{slug}", tournamentHandler.GetTournamentBySlug)

		r.Route("/{tournamentID}", func(r chi.Router) {
			// Kiosk-facing reads stay public.
			r.Get("/", tournamentHandler.GetTournament)
			r.Get("/summary", schedulingHandler.GetSummary)
			r.Get("/queue", schedulingHandler.ListQueue)
			r.Get("/matches", tournamentHandler.ListMatches)
			r.Get("/divisions", tournamentHandler.ListDivisions)
			r.Get("/courts", courtHandler.ListCourts)

			p := protect(r)
			p.Put("/logo", tournamentHandler.UploadLogo)
			p.Post("/divisions", tournamentHandler.CreateDivision)
			p.Post("/courts", courtHandler.CreateCourt)
			p.Post("/matches", tournamentHandler.CreateMatch)
			p.Post("/queue/seed", schedulingHandler.SeedQueue)
			p.Post("/advance", schedulingHandler.AdvanceAllCourts)
		})
	})

	router.Route("/divisions/{divisionID}", func(r chi.Router) {
		r.Get("/teams", tournamentHandler.ListDivisionTeams)
		protect(r).Post("/brackets", tournamentHandler.CreateBracket)
	})

	router.Route("/brackets/{bracketID}", func(r chi.Router) {
		protect(r).Put("/lock", tournamentHandler.SetBracketLocked)
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", schedulingHandler.GetMatch)

		p := protect(r)
		p.Post("/assign", schedulingHandler.AssignMatch)
		p.Post("/start", schedulingHandler.StartMatch)
		p.Post("/unassign", schedulingHandler.UnassignMatch)
		p.Post("/complete", schedulingHandler.CompleteMatch)
		p.Post("/retire", schedulingHandler.RetireMatch)
		p.Post("/requeue", schedulingHandler.RequeueMatch)
		p.Post("/enqueue", schedulingHandler.EnqueueMatch)
		p.Put("/teams", schedulingHandler.SetMatchTeams)
	})

	router.Route("/courts/{courtID}", func(r chi.Router) {
		p := protect(r)
		p.Post("/advance", schedulingHandler.AdvanceCourt)
		p.Put("/active", courtHandler.SetCourtActive)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
