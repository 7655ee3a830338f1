// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"

	"go_saas_scaffold/internal/cache"
	"go_saas_scaffold/internal/config"
	"go_saas_scaffold/internal/handlers"
	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/repository"
	"go_saas_scaffold/internal/service"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// 設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)

	if err := config.LoadConfig("./configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}

	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Application starting...", slog.String("app", config.Cfg.App.Name))

	// Database (GORM)
	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()

	if err := repository.Migrate(db); err != nil {
		slog.Error("Error running migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Redis（落ちていてもキャッシュ無しで起動は継続する）
	var redisCache *cache.Cache
	if config.Cfg.Redis.Addr != "" {
		redisCache, err = cache.New(config.Cfg.Redis.Addr, config.Cfg.Redis.Password, config.Cfg.Redis.DB, logger)
		if err != nil {
			slog.Warn("Redis unavailable, continuing without cache", slog.Any("error", err))
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	// Dependency Injection
	companyRepo := repository.NewGormCompanyRepository()
	userRepo := repository.NewGormUserRepository()
	leadRepo := repository.NewGormLeadRepository()
	auditRepo := repository.NewGormAuditRepository()

	auditService := service.NewAuditService(db, auditRepo)
	authService := service.NewAuthService(db, userRepo, companyRepo, auditService, &config.Cfg)
	companyService := service.NewCompanyService(db, companyRepo, redisCache, auditService, &config.Cfg)
	leadService := service.NewLeadService(db, leadRepo, auditService)

	authHandler := handlers.NewAuthHandler(authService, logger)
	companyHandler := handlers.NewCompanyHandler(companyService, logger)
	leadHandler := handlers.NewLeadHandler(leadService, logger)

	// Router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   config.Cfg.CORS.AllowedMethods,
		AllowedHeaders:   config.Cfg.CORS.AllowedHeaders,
		ExposedHeaders:   config.Cfg.CORS.ExposedHeaders,
		AllowCredentials: config.Cfg.CORS.AllowCredentials,
		MaxAge:           config.Cfg.CORS.MaxAge,
	})
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		// --- Public routes ---
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// --- Protected routes (require Bearer token) ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuthMiddleware(&config.Cfg, authService))
			r.Use(middleware.CompanyMiddleware(companyService))
			if config.Cfg.Throttle.Enabled {
				// テナント解決の後段。Redis未接続（redisCache == nil）なら素通り
				r.Use(middleware.ThrottleMiddleware(redisCache, config.Cfg.Throttle.Requests, config.Cfg.Throttle.Window))
			}

			r.Get("/auth/me", authHandler.GetProfile)
			r.Patch("/auth/me", authHandler.UpdateProfile)

			r.Get("/companies", companyHandler.ListCompanies)
			r.Post("/companies", companyHandler.CreateCompany)

			// --- Tenant-scoped routes (require X-Company-ID resolution) ---
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCompany)

				r.Route("/leads", func(r chi.Router) {
					r.Get("/", leadHandler.ListLeads)
					r.Post("/", leadHandler.CreateLead)
					r.Get("/{lead_id}/", leadHandler.GetLead)
					r.Patch("/{lead_id}/", leadHandler.UpdateLead)
					r.Delete("/{lead_id}/", leadHandler.DeleteLead)
				})
			})
		})
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := sqlDB.PingContext(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Health check failed: could not ping DB", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	log.Println("Server exiting")
}
