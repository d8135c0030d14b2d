package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"buildhub/internal/config"
	"buildhub/internal/database"
	"buildhub/internal/domain/notification"
	"buildhub/internal/domain/user"
	"buildhub/internal/metrics"
	"buildhub/internal/middleware"
	"buildhub/internal/pkg/jwt"
	"buildhub/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and notification websocket",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	if err := db.AutoMigrate(&user.User{}, &notification.Notification{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	}

	var broker realtime.Broker
	switch cfg.RealtimeBroker {
	case config.BrokerRedis:
		broker = realtime.NewRedisBroker(rdb, cfg.Notifications.SubscribeTimeout, log)
	default:
		broker = realtime.NewHub(log)
	}
	defer broker.Close()
	log.Info("realtime broker ready", zap.String("broker", cfg.RealtimeBroker))

	jwtService := jwt.New(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := user.NewRepository(db)
	admins := user.NewCachedAdminDirectory(userRepo, rdb, cfg.Notifications.AdminCacheTTL, log)
	userHandler := user.NewHandler(user.NewService(userRepo, jwtService, admins, log))

	notifService := notification.NewService(notification.NewRepository(db), broker, log)
	notifHandler := notification.NewHandler(notifService)
	wsHandler := notification.NewWSHandler(ctx, notifService, broker, admins, metrics.Recorder{},
		notification.OptionsFromConfig(cfg.Notifications), log)

	cleaner := notification.NewCleanupService(notifService, log)
	cleaner.ScheduleCleanup(ctx, notification.CleanupConfig{
		Retention:              cfg.Notifications.Retention,
		CleanupInterval:        cfg.CleanupInterval,
		EnableAutomaticCleanup: true,
	})

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		userHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwtService))

		admin := protected.Group("/admin")
		admin.Use(middleware.AdminOnly())

		userHandler.RegisterAdminRoutes(admin)
		notification.RegisterRoutes(protected, admin, notifHandler)
	}

	ws := r.Group("/ws")
	ws.Use(middleware.JWTAuth(jwtService), middleware.RequireRole(string(user.RoleAdmin), string(user.RoleManager)))
	notification.RegisterWSRoutes(ws, wsHandler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown; they end
	// through ctx, which every session derives from
	return srv.Shutdown(shutdownCtx)
}
