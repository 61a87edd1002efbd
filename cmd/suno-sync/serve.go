package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/suno-sync-go/api"
	"github.com/yourusername/suno-sync-go/internal/app"
	"github.com/yourusername/suno-sync-go/internal/infrastructure"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			fatal("Failed to load config: %v", err)
		}

		log := newLogger(config)
		defer log.Sync()

		outDir := config.Fetch.OutDir
		store, err := infrastructure.NewFilePageStore(config.Fetch.ResolvedCacheDir())
		if err != nil {
			fatal("Failed to open cache: %v", err)
		}

		attempts, err := infrastructure.NewSQLiteAttemptRepository(config.Sync.ResolvedDatabasePath(outDir))
		if err != nil {
			fatal("Failed to open ledger: %v", err)
		}
		defer attempts.Close()

		reconciler := app.NewReconciler(store, outDir)
		router := api.SetupRouter(reconciler, attempts, outDir, log)

		addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
		server := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			log.Info("HTTP server listening", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("Failed to start server", zap.Error(err))
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
	},
}
