package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/api"
	"github.com/yourusername/yt-download-go/internal/app"
	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/infrastructure"
	"github.com/yourusername/yt-download-go/internal/metrics"
	"github.com/yourusername/yt-download-go/internal/progress"
	"github.com/yourusername/yt-download-go/pkg/logger"
)

var (
	configPath string
	detach     bool
	rootCmd    = &cobra.Command{
		Use:   "yt-download-server",
		Short: "YouTube download service with live progress streaming",
		RunE: func(cmd *cobra.Command, args []string) error {
			if detach {
				return startDetached()
			}
			return runServer()
		},
		SilenceUsage: true,
	}
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.Flags().BoolVarP(&detach, "detach", "d", false, "Run the server in the background")
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// startDetached re-executes the server without --detach in a new session
func startDetached() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Env = os.Environ()
	if cwd, err := os.Getwd(); err == nil {
		cmd.Dir = cwd
	}
	setDetachAttr(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	fmt.Printf("Server started in background (PID: %d)\n", cmd.Process.Pid)
	return nil
}

func runServer() error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting YouTube download server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("worker", infrastructure.FormatCommand(config.Worker.Command, config.Worker.Args...)),
		zap.Int("concurrent_limit", config.Download.ConcurrentLimit))

	metrics.Register()

	// Cancelling ctx kills every running worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := infrastructure.NewProcessRunner(&config.Worker, log.Named("worker"))
	registry := progress.NewRegistry(config.Download.SessionRetention)
	notifier := infrastructure.NewNotificationService(&config.Notification, log.Named("notify"))

	var cache domain.ResolutionCache
	if config.Cache.Enabled {
		sqliteCache, err := infrastructure.NewSQLiteResolutionCache(config.Cache.DatabasePath)
		if err != nil {
			log.Warn("Resolution cache unavailable, continuing without it",
				zap.String("path", config.Cache.DatabasePath),
				zap.Error(err))
		} else {
			defer sqliteCache.Close()
			cache = sqliteCache
			go purgeCache(ctx, sqliteCache, config.Cache.TTL, log)
		}
	}

	orchestrator := app.NewDownloadOrchestrator(ctx, runner, registry, notifier, &config.Download, log.Named("orchestrator"))
	lister := app.NewResolutionLister(runner, cache, &config.Worker, &config.Cache, log.Named("lister"))

	router := api.SetupRouter(api.Services{
		Orchestrator: orchestrator,
		Lister:       lister,
		Registry:     registry,
		Config:       config,
	}, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
		cancel()
		return err
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Refuse new downloads and kill running workers so open progress streams
	// reach their end before the listener drains
	cancel()
	registry.Shutdown()
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Warn("Downloads still finishing at shutdown", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

// purgeCache drops expired resolution listings once per ttl
func purgeCache(ctx context.Context, cache *infrastructure.SQLiteResolutionCache, ttl time.Duration, log *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := cache.Purge(ttl)
			if err != nil {
				log.Warn("Failed to purge resolution cache", zap.Error(err))
				continue
			}
			if removed > 0 {
				log.Debug("Purged resolution cache", zap.Int64("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
