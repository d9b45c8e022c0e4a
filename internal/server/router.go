package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"homedeck/internal/access"
	"homedeck/internal/handlers"
	applog "homedeck/internal/log"
)

// routerOptions carries what the router needs beyond the handlers package.
type routerOptions struct {
	// session wraps every page and API route with the session, preference
	// and identity middleware.
	session     []func(http.Handler) http.Handler
	limiter     *rateLimiterMap
	corsOrigins []string
	staticDir   string
	avatarDir   string
}

func newRouter(opts routerOptions) http.Handler {
	applog.Debug(context.Background(), "registering http routes")
	r := chi.NewRouter()
	r.Use(chimw.RequestID, requestLogContext, chimw.Recoverer)

	r.Get("/healthz", handlers.Health)
	r.HandleFunc("/functions/v1/delete-user", handlers.DeleteUser)

	staticDir := opts.staticDir
	if staticDir == "" {
		staticDir = "web/static"
	}
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(staticDir))))
	if opts.avatarDir != "" {
		r.Handle("/avatars/*", http.StripPrefix("/avatars/", http.FileServer(http.Dir(opts.avatarDir))))
		applog.Debug(context.Background(), "route registered", "path", "/avatars/", "static", true)
	}

	r.Group(func(r chi.Router) {
		r.Use(opts.session...)

		r.Group(func(r chi.Router) {
			if opts.limiter != nil {
				r.Use(opts.limiter.middleware(handlers.RateLimited))
			}
			r.HandleFunc("/login", handlers.Login)
			r.HandleFunc("/signup", handlers.Signup)
			r.HandleFunc("/forgot-password", handlers.ForgotPassword)
			r.HandleFunc("/reset-password", handlers.ResetPassword)
			r.Post("/contact", handlers.Contact)
		})

		r.Get("/", handlers.Home)
		r.HandleFunc("/logout", handlers.Logout)
		r.Get("/auth/callback", handlers.AuthCallback)
		r.Get("/cv", handlers.DownloadCV)
		r.With(handlers.RequireAuthentication).Get("/app", handlers.Dashboard)

		r.Route("/api", func(r chi.Router) {
			r.Use(corsMiddleware(opts.corsOrigins))

			r.Get("/catalog", handlers.Catalog)
			r.Post("/preferences", handlers.UpdatePreferences)
			r.Post("/track/visit", handlers.TrackVisit)
			r.With(limitOrPass(opts.limiter)).Post("/track/contact", handlers.TrackContact)

			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireAPIAuthentication)

				r.Get("/profile", handlers.GetProfile)
				r.Put("/profile", handlers.UpdateProfile)
				r.Delete("/profile", handlers.DeleteProfile)
				r.Post("/profile/avatar", handlers.UploadAvatar)

				r.Get("/apps", handlers.ListApps)
				r.Post("/apps", handlers.AddApp)
				r.Put("/apps/order", handlers.ReorderApps)
				r.Put("/apps/{appID}", handlers.UpdateApp)
				r.Delete("/apps/{appID}", handlers.RemoveApp)

				r.Route("/admin", func(r chi.Router) {
					r.Use(handlers.RequireAccess(access.LevelAdmin))

					r.Get("/profiles", handlers.ListProfiles)
					r.Put("/profiles/{profileID}/access-level", handlers.SetAccessLevel)
					r.Get("/profiles/{profileID}/apps", handlers.ListApps)
					r.Post("/profiles/{profileID}/apps", handlers.AddApp)
					r.Put("/profiles/{profileID}/apps/order", handlers.ReorderApps)
					r.Put("/profiles/{profileID}/apps/{appID}", handlers.UpdateApp)
					r.Delete("/profiles/{profileID}/apps/{appID}", handlers.RemoveApp)
					r.Get("/analytics", handlers.Analytics)
				})
			})
		})
	})
	return r
}

// requestLogContext tags every log line written while serving a request with
// its request id.
func requestLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := applog.WithAttrs(r.Context(), "request_id", chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func limitOrPass(limiter *rateLimiterMap) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return limiter.middleware(handlers.RateLimited)
}

// corsMiddleware allows the configured origins to call the JSON API with
// the session cookie.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "HX-Request"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool {
			return true
		}
	} else {
		opts.AllowedOrigins = origins
	}
	return cors.Handler(opts)
}
