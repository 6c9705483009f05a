package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/menu-catalog/config"
	"github.com/yeremiapane/menu-catalog/database"
	"github.com/yeremiapane/menu-catalog/hub"
	"github.com/yeremiapane/menu-catalog/metrics"
	"github.com/yeremiapane/menu-catalog/middlewares"
	"github.com/yeremiapane/menu-catalog/repositories"
	"github.com/yeremiapane/menu-catalog/router"
	"github.com/yeremiapane/menu-catalog/services"
	"github.com/yeremiapane/menu-catalog/storage"
	"github.com/yeremiapane/menu-catalog/utils"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}

	utils.InitLogger(cfg.LogLevel)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize DB
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, logger.Warn)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			utils.ErrorLogger.Errorf("Error closing database: %v", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return err
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	menuHub := hub.New(m)
	defer menuHub.CloseAll()

	svc := services.NewMenuItemService(repositories.NewMenuItemRepository(db), images, menuHub, m)

	rateLimiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopCleanup := make(chan struct{})
	rateLimiter.StartCleanup(time.Minute, stopCleanup)
	defer close(stopCleanup)

	r := router.SetupRouter(router.Dependencies{
		Service:        svc,
		Images:         images,
		Hub:            menuHub,
		Metrics:        m,
		RateLimiter:    rateLimiter,
		AuthSecret:     cfg.AuthSecret,
		CORSOrigin:     cfg.CORSOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.ImageStore {
	case "minio":
		return storage.NewMinioImageStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
		})
	default:
		return storage.NewDiskImageStore(cfg.UploadDir), nil
	}
}
