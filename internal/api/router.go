package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "sparkchat/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"sparkchat/backend/internal/auth"
)

// NewRouter creates and configures a chi router with all the application's
// routes. staticDir is served at the root: the login page stays reachable
// without a session, everything else sits behind the session gate.
func NewRouter(authService *auth.Service, authHandler *AuthHandler, chatHandler *ChatHandler, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID) // Injects a unique request ID into the context.
	r.Use(middleware.RealIP)    // Sets the remote address to the real IP from proxy headers.
	r.Use(middleware.Logger)    // Logs the start and end of each request.
	r.Use(middleware.Recoverer) // Recovers from panics and returns a 500 error.

	// --- Public Routes ---

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Health check for container orchestration probes.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Login is public, but an already-authenticated user is bounced straight
	// back to the main page instead of seeing the form again.
	r.With(authService.RedirectIfAuthenticated).Post("/login", authHandler.HandleLogin)

	// --- API Version 1 Routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authService.RequireSession)
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/logout", authHandler.HandleLogout)

		// --- Chats ---
		r.Get("/chats", chatHandler.HandleListChats)
		r.Post("/chats", chatHandler.HandleCreateChat)
		r.Get("/chats/{chatID}", chatHandler.HandleGetChat)
		r.Post("/chats/messages", chatHandler.HandleSendMessage)

		// Direct transcript write, best-effort from the client's perspective.
		r.Post("/messages", chatHandler.HandleSaveMessage)
	})

	// --- Frontend File Server ---
	// The chat page is the sole authenticated surface; the login page and
	// assets are open.
	fileServer := http.FileServer(http.Dir(staticDir))
	r.With(authService.RedirectIfAuthenticated).Get(auth.LoginPath, fileServer.ServeHTTP)
	r.With(authService.RequireSession).Get("/", fileServer.ServeHTTP)
	r.With(authService.RequireSession).Get("/index.html", fileServer.ServeHTTP)
	r.Handle("/*", fileServer)

	return r
}
