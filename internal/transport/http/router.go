package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"talksphere/internal/handler"
	"talksphere/internal/httputil"
	authmw "talksphere/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	CommentHandler      *handler.CommentHandler
	PostHandler         *handler.PostHandler
	UserHandler         *handler.UserHandler
	ModerationHandler   *handler.ModerationHandler
	AnnouncementHandler *handler.AnnouncementHandler
	NotificationHandler *handler.NotificationHandler
	MediaHandler        *handler.MediaHandler

	// AdminChecker gates the moderation and announcement write routes.
	AdminChecker   authmw.AdminChecker
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	requireAuth := authmw.AuthMiddleware(cfg.JWTSecret)
	requireAdmin := authmw.RequireAdmin(cfg.AdminChecker)

	// Public reads
	r.Get("/posts", cfg.PostHandler.List)
	r.Get("/posts/{id}", cfg.PostHandler.GetByID)
	r.Get("/comments/{postId}", cfg.CommentHandler.List)
	r.Get("/announcements", cfg.AnnouncementHandler.List)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Put("/users/me", cfg.UserHandler.UpsertMe)
		r.With(requireAdmin).Get("/users", cfg.UserHandler.List)

		r.Post("/posts", cfg.PostHandler.Create)

		r.Route("/comments", func(r chi.Router) {
			r.Post("/{postId}", cfg.CommentHandler.Create)
			r.Post("/reply/{commentId}", cfg.CommentHandler.Reply)
			r.Put("/{commentId}", cfg.CommentHandler.Update)
			r.Delete("/{commentId}", cfg.CommentHandler.Delete)
			r.Post("/upvote/{commentId}", cfg.CommentHandler.Upvote)
			r.Post("/downvote/{commentId}", cfg.CommentHandler.Downvote)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/post/{postId}", cfg.ModerationHandler.ReportPost)
			r.Post("/comment/{commentId}", cfg.ModerationHandler.ReportComment)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", cfg.ModerationHandler.List)
				r.Patch("/{reportId}/resolve", cfg.ModerationHandler.Resolve)
				r.Patch("/user/{userId}/ban", cfg.ModerationHandler.Ban)
				r.Delete("/post/{postId}", cfg.ModerationHandler.DeletePost)
				r.Delete("/comment/{commentId}", cfg.ModerationHandler.DeleteComment)
			})
		})

		r.With(requireAdmin).Post("/announcements", cfg.AnnouncementHandler.Create)
		r.With(requireAdmin).Delete("/announcements/{id}", cfg.AnnouncementHandler.Delete)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Patch("/read", cfg.NotificationHandler.MarkRead)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
		})

		r.Post("/devices/token", cfg.NotificationHandler.RegisterToken)
		r.Delete("/devices/token", cfg.NotificationHandler.RemoveToken)

		// Media endpoints (R2 uploads)
		r.Post("/media/posts/presign", cfg.MediaHandler.PresignPostUpload)
		r.Post("/media/posts", cfg.MediaHandler.UploadPostImage)
	})

	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/users/{id}", cfg.UserHandler.GetProfile)

	return r
}
