package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/davidmarsh/reelhaven/internal/handlers"
	"github.com/davidmarsh/reelhaven/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	mfaHandler *handlers.MFAHandler,
	userHandler *handlers.UserHandler,
	contentHandler *handlers.ContentHandler,
	notificationHandler *handlers.NotificationHandler,
) {
	authRateLimit := middleware.DefaultAuthRateLimit()
	apiRateLimit := middleware.DefaultAPIRateLimit()

	// Auth endpoints carry their own per-identity throttling inside the
	// service; the per-IP limiter here is just a transport backstop
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(authRateLimit))

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/change-password", authHandler.ChangePassword)
		r.Post("/auth/code/request", mfaHandler.RequestCode)
		r.Post("/auth/code/verify", mfaHandler.VerifyCode)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(apiRateLimit))

		r.Get("/users", userHandler.ListUsers)
		r.Get("/users/{id}", userHandler.GetUser)
		r.Put("/users/{id}", userHandler.UpdateProfile)
		r.Delete("/users/{id}", userHandler.DeleteUser)

		r.Get("/content", contentHandler.ListContent)
		r.Post("/content", contentHandler.CreateContent)
		r.Get("/content/{id}", contentHandler.GetContent)
		r.Put("/content/{id}", contentHandler.UpdateContent)
		r.Delete("/content/{id}", contentHandler.DeleteContent)
		r.Post("/content/{id}/ratings", contentHandler.RateContent)
		r.Get("/content/{id}/ratings", contentHandler.ListRatings)
		r.Delete("/content/{id}/ratings", contentHandler.DeleteRating)

		r.Get("/playlists", contentHandler.ListPlaylists)
		r.Post("/playlists", contentHandler.CreatePlaylist)
		r.Put("/playlists/{id}/items", contentHandler.SetPlaylistItems)
		r.Delete("/playlists/{id}", contentHandler.DeletePlaylist)

		r.Get("/notifications", notificationHandler.ListNotifications)
		r.Post("/notifications", notificationHandler.CreateNotification)
		r.Post("/notifications/{id}/read", notificationHandler.MarkRead)
	})
}
