package routes

import (
	"github.com/arenapool/wager-system/handlers"
	"github.com/arenapool/wager-system/middleware"
	"github.com/arenapool/wager-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes настраивает все HTTP-маршруты приложения.
func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	wagerHandler *handlers.WagerHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret string,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	authorityOnly := middleware.Authorize(models.RoleAuthority)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров и коэффициентов
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.GetByID)
		r.Get("/{tournamentID}/summary", tournamentHandler.Summary)
		r.Get("/{tournamentID}/pools", tournamentHandler.Pools)
		r.Get("/{tournamentID}/entrants/{entrantID}/odds", tournamentHandler.Odds)

		// Маршруты для аутентифицированных пользователей
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{tournamentID}/wagers", wagerHandler.Place)
			r.Get("/{tournamentID}/wagers", wagerHandler.ListMine)
			r.Post("/{tournamentID}/claim", wagerHandler.Claim)
			r.Get("/{tournamentID}/claim", wagerHandler.ClaimStatus)
			r.Get("/{tournamentID}/payout-preview", wagerHandler.PreviewPayout)
		})

		// Жизненный цикл турнира - только authority
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(authorityOnly)

			r.Post("/", tournamentHandler.Create)
			r.Post("/{tournamentID}/close", tournamentHandler.CloseWagering)
			r.Post("/{tournamentID}/settle", tournamentHandler.Settle)
			r.Post("/{tournamentID}/cancel", tournamentHandler.Cancel)
		})
	})

	router.Route("/ledger", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/balance", wagerHandler.Balance)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(authorityOnly)
			r.Post("/fee-recipient", tournamentHandler.SetFeeRecipient)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
