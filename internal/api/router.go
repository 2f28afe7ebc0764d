package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Duval1703/chatbot/internal/logger"
)

func NewRouter(apiHandler *APIHandler, l zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware(l))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", apiHandler.HealthHandler)
		r.Post("/auth/signup", apiHandler.SignupHandler)
		r.Post("/auth/login", apiHandler.LoginHandler)
		r.Post("/translate", apiHandler.TranslateHandler)
		r.Get("/translate/languages", apiHandler.LanguagesHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Get("/auth/me", apiHandler.MeHandler)
			r.Put("/auth/me", apiHandler.UpdateMeHandler)

			r.Post("/chat", apiHandler.ChatHandler)
			r.Get("/chat/history", apiHandler.ListSessionsHandler)
			r.Get("/chat/history/{sessionID}", apiHandler.GetSessionHandler)
			r.Delete("/chat/history/{sessionID}", apiHandler.DeleteSessionHandler)
		})
	})

	return r
}
