package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"glowUpAPI/handlers"
	"glowUpAPI/internal/config"
	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/notification"
	"glowUpAPI/internal/storage"
	"glowUpAPI/middleware"
	"glowUpAPI/services"
)

var (
	cfg                 *config.Config
	store               storage.Store
	liveHub             *services.LiveHub
	notificationService *services.NotificationService
	routineService      *services.RoutineService
	userService         *services.UserService
	progressService     *services.ProgressService
	rateLimiter         *middleware.RateLimiter
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Fatal("failed to initialize logger", "err", err)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	logger.Info("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", "err", err)
		}
		if err := pgStore.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate database", "err", err)
		}
		store = pgStore
		logger.Info("successfully connected to Postgres")
	} else {
		store = storage.NewMemoryStore()
		logger.Warn("DATABASE_URL is not set, progress is kept in memory only")
	}

	var pushProvider services.PushNotificationProvider = services.LogPushProvider{}
	fcmService, err := notification.NewFCMService(ctx, cfg.FCMServiceAccountJSON, cfg.FCMCredentialsFile)
	if err != nil {
		logger.Warn("could not initialize FCM, pushes will only be logged", "err", err)
	} else {
		pushProvider = fcmService
		logger.Info("FCM push provider initialized successfully")
	}

	liveHub = services.NewLiveHub()
	notificationService = services.NewNotificationService(store, pushProvider)
	routineService = services.NewRoutineService(store)
	userService = services.NewUserService(store, routineService)
	progressService = services.NewProgressService(store, liveHub, notificationService)
	rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	services.RegisterMetrics(prometheus.DefaultRegisterer)
}

func main() {
	defer func() {
		logger.Info("closing store")
		store.Close()
	}()

	go liveHub.Run()
	go rateLimiter.CleanupVisitors()

	clock := handlers.NewDayClock(cfg.DefaultTimezone)

	userHandler := handlers.NewUserHandler(userService, progressService)
	progressHandler := handlers.NewProgressHandler(progressService, clock)
	routineHandler := handlers.NewRoutineHandler(routineService, progressService, clock)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	liveHandler := handlers.NewLiveHandler(liveHub)
	webhookHandler := handlers.NewWebhookHandler(userService, cfg.ClerkWebhookSecret)

	r := mux.NewRouter()
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "glowup-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user/profile", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/points/history", userHandler.GetPointHistory).Methods("GET")
	protected.HandleFunc("/user/account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/snapshot", progressHandler.GetSnapshot).Methods("GET")
	protected.HandleFunc("/user/stats/history", progressHandler.GetStatsHistory).Methods("GET")

	protected.HandleFunc("/activities", progressHandler.RecordActivity).Methods("POST")
	protected.HandleFunc("/activities", progressHandler.ListActivities).Methods("GET")
	protected.HandleFunc("/activities/ai-analysis", progressHandler.RecordAIAnalysis).Methods("POST")
	protected.HandleFunc("/activities/{id}", progressHandler.DeleteActivity).Methods("DELETE")

	protected.HandleFunc("/missions/{missionId}/claim", progressHandler.ClaimMission).Methods("POST")

	protected.HandleFunc("/routines", routineHandler.ListRoutine).Methods("GET")
	protected.HandleFunc("/routines", routineHandler.CreateTask).Methods("POST")
	protected.HandleFunc("/routines/defaults", routineHandler.SeedDefaults).Methods("POST")
	protected.HandleFunc("/routines/{taskId}", routineHandler.DeleteTask).Methods("DELETE")
	protected.HandleFunc("/routines/{taskId}/complete", routineHandler.CompleteTask).Methods("POST")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	protected.HandleFunc("/live", liveHandler.Connect).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", handlers.TimezoneHeader}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("error starting server", "err", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("got signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}

	liveHub.Stop()
	notificationService.Stop()
	rateLimiter.Stop()

	logger.Info("server shutdown complete")
}
