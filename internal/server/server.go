package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eventhub/apiserver/config"
	"github.com/eventhub/apiserver/internal/db"
	"github.com/eventhub/apiserver/internal/handlers"
	"github.com/eventhub/apiserver/internal/logging"
	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/storage"
	"github.com/eventhub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

const authRateLimit = 30 // requests per minute per IP on /api/auth

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	conn       *db.Conn
}

// New constructs a Server: connects to Mongo, builds the configured image
// storage backend, and wires the auth and event routes.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objects, err := storage.New(ctx, storage.Config{
		Backend: cfg.Storage.Backend,
		Minio:   storage.MinioConfig(cfg.Storage.Minio),
		GCS:     storage.GCSConfig(cfg.Storage.GCS),
	})
	if err != nil {
		_ = conn.Close(context.Background())
		return nil, err
	}
	if objects != nil {
		if err := objects.EnsureBucket(ctx); err != nil {
			_ = conn.Close(context.Background())
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
	}

	userRepo := store.NewUserRepository(conn.Database())
	eventRepo := store.NewEventRepository(conn.Database())

	userService := services.NewUserService(userRepo)
	eventService := services.NewEventService(eventRepo, objects)

	tokenTTL := time.Duration(cfg.JWT.TTLHours) * time.Hour
	authHandler := handlers.NewAuthHandler(userService, jwtSecret, tokenTTL)
	eventHandler := handlers.NewEventHandler(eventService, cfg.Upload.MaxImageBytes)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(authRateLimit, time.Minute))
			handlers.AuthRouter(r, authHandler)
		})
		r.Route("/events", func(r chi.Router) {
			handlers.EventRouter(r, eventHandler, authHandler.RequireAuth)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		conn:       conn,
	}, nil
}

// requestLogger logs each request with method, path, status, and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.conn != nil {
		_ = s.conn.Close(ctx)
	}
	return s.httpServer.Shutdown(ctx)
}
