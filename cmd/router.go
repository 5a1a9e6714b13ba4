package cmd

import (
	"net/http"

	"lovenest/internal/handlers"
	"lovenest/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// routes bundles the handlers served by the view bridge
type routes struct {
	identity middleware.IdentitySource
	session  *handlers.SessionHandler
	board    *handlers.BoardHandler
	settings *handlers.SettingsHandler
	gallery  *handlers.GalleryHandler
	ws       *handlers.WebSocketHandler
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/session", rt.session.Login)
		r.Post("/users", rt.session.SignUp)
		r.Get("/state", rt.session.State)

		// Routes that need a signed-in user
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(rt.identity))

			r.Delete("/session", rt.session.Logout)

			r.Post("/moods", rt.board.AddMood)
			r.Get("/moods/today", rt.board.TodayMood)

			r.Post("/wishes", rt.board.AddWish)
			r.Post("/wishes/{id}/toggle", rt.board.ToggleWish)
			r.Delete("/wishes/{id}", rt.board.DeleteWish)

			r.Post("/coupons", rt.board.AddCoupon)
			r.Post("/coupons/{id}/redeem", rt.board.RedeemCoupon)
			r.Delete("/coupons/{id}", rt.board.DeleteCoupon)

			r.Post("/milestones", rt.board.AddMilestone)

			r.Post("/notes", rt.board.AddNote)
			r.Delete("/notes/{id}", rt.board.DeleteNote)

			r.Post("/messages", rt.board.SendMessage)
			r.Post("/messages/read", rt.board.MarkRead)

			r.Get("/settings", rt.settings.GetSettings)
			r.Put("/settings/{key}", rt.settings.PutSetting)
			r.Post("/theme/toggle", rt.settings.ToggleTheme)

			r.Get("/folders", rt.gallery.GetFolders)
			r.Post("/folders", rt.gallery.CreateFolder)
			r.Patch("/folders/{id}", rt.gallery.RenameFolder)
			r.Delete("/folders/{id}", rt.gallery.DeleteFolder)

			r.Get("/memories", rt.gallery.GetMemories)
			r.Post("/memories", rt.gallery.UploadMemory)
			r.Patch("/memories/{id}", rt.gallery.UpdateMemory)
			r.Delete("/memories/{id}", rt.gallery.DeleteMemory)
		})
	})

	// WebSocket route
	r.Get("/ws", rt.ws.HandleWebSocket)

	return r
}
