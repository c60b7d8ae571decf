package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carddraw/internal/config"
	"carddraw/internal/handlers"
	"carddraw/internal/ledger"
	"carddraw/internal/models"
	"carddraw/internal/services"
	"carddraw/internal/storage/sqlite"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logOut, err := cfg.OpenLogOutput()
	if err != nil {
		logger.Fatalf("Failed to open log output: %v", err)
	}
	defer logOut.Close()
	defer logger.Init("carddraw", cfg.Verbose, false, logOut).Close()

	// 2. Open durable storage for participation flags and the hosted ledger
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	outcomes := models.DefaultOutcomeTables()

	// 3. Pick the ledger client the draw workflow talks to
	ledgerService := services.NewLedgerService(store, outcomes)
	var client services.LedgerClient
	switch cfg.LedgerMode {
	case config.LedgerModeRemote:
		client = ledger.NewHTTPClient(cfg.LedgerEndpoints(), cfg.HTTPTimeout)
	case config.LedgerModeDemo:
		client = ledger.NewSimulated()
	default:
		client = ledgerService
	}
	logger.Infof("Using %s ledger", cfg.LedgerMode)

	// 4. Initialize the Draw Service
	drawService := services.NewDrawService(services.DrawServiceConfig{
		Outcomes:  outcomes,
		Ledger:    client,
		Flags:     store,
		KeyPrefix: cfg.StorageKeyPrefix,
		SpinDelay: cfg.SpinDelay,
	})

	// 5. Initialize the HTTP Handler; only local mode hosts the ledger endpoints
	var hosted *services.LedgerService
	if cfg.LedgerMode == config.LedgerModeLocal {
		hosted = ledgerService
	}
	httpHandler := handlers.NewHTTPHandler(drawService, hosted)

	// 6. Set up the Gin router
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	httpHandler.RegisterPublicRoutes(r)

	deviceRoutes := r.Group("/")
	deviceRoutes.Use(httpHandler.DeviceMiddleware())
	httpHandler.RegisterDeviceRoutes(deviceRoutes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Start the background janitor to clean up inactive sessions
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := drawService.CleanUpInactiveSessions(cfg.SessionTTL)
				logger.Infof("Performed cleanup of inactive sessions: removed %d, %d active", removed, drawService.SessionCount())
			}
		}
	}()

	// 8. Run the server
	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown: %v", err)
		}
	}()

	logger.Infof("Server starting on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Failed to run server: %v", err)
	}
}
