package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avelichko/news-digest/app/api"
	"github.com/avelichko/news-digest/app/cfg"
	"github.com/avelichko/news-digest/app/database"
	"github.com/avelichko/news-digest/app/digest"
	"github.com/avelichko/news-digest/app/email"
	"github.com/avelichko/news-digest/app/orgs"
	"github.com/avelichko/news-digest/app/runner"
)

func main() {
	// Optional .env for local development; deployed environments inject
	// secrets directly
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting News Digest server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	runRepo := database.NewRunRepository(db)
	seenRepo := database.NewSeenItemRepository(db)

	orgsCache := orgs.NewCache(appCfg.OrgsDir)
	if err := orgsCache.Run(); err != nil {
		slog.Error("Failed to load organization configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Organization configurations loaded", "count", orgsCache.GetConfigCount())

	secrets := runner.Secrets{
		EmailTo:      appCfg.EmailTo,
		EmailFrom:    appCfg.EmailFrom,
		EmailPass:    appCfg.EmailPass,
		GoogleAPIKey: appCfg.GoogleAPIKey,
		GoogleCSEID:  appCfg.GoogleCSEID,
		SerpAPIKey:   appCfg.SerpAPIKey,
	}

	job := buildJob(orgsCache, seenRepo)

	jobRunner, err := runner.New(job, runRepo, secrets, appCfg.Schedule,
		runner.OverlapPolicy(appCfg.OverlapPolicy),
		time.Duration(appCfg.JobTimeout)*time.Second)
	if err != nil {
		slog.Error("Failed to create runner", "error", err)
		os.Exit(1)
	}

	jobRunner.Start()
	defer jobRunner.Stop()
	slog.Info("Scheduler started", "schedule", appCfg.Schedule, "overlap_policy", appCfg.OverlapPolicy,
		"next_run", jobRunner.NextRun().Format(time.RFC3339))

	apiHandler := api.NewHandler(runRepo, seenRepo, orgsCache, jobRunner)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Runner is stopped via defer
	slog.Info("Shutdown complete")
}

// buildJob picks the external program mode when a command is configured,
// otherwise the built-in digest pipeline.
func buildJob(orgsCache *orgs.Cache, seenRepo database.SeenItemRepository) runner.Job {
	appCfg := cfg.Get()

	if appCfg.ExecCommand != "" {
		slog.Info("Using external program mode", "command", appCfg.ExecCommand,
			"runtime", appCfg.RuntimeBin, "runtime_version", appCfg.RuntimeVersion)
		return runner.NewExecJob(runner.ExecJobConfig{
			Command:        appCfg.ExecCommand,
			Args:           appCfg.ExecArgs,
			SourceDir:      appCfg.ExecSourceDir,
			RuntimeBin:     appCfg.RuntimeBin,
			RuntimeVersion: appCfg.RuntimeVersion,
			InstallCommand: appCfg.InstallCommand,
		})
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}

	return digest.NewPipeline(orgsCache, seenRepo, httpClient, appCfg.UserAgent,
		digest.DefaultSources(httpClient, appCfg.UserAgent),
		func(secrets runner.Secrets) email.Sender {
			return email.NewSMTPSender(appCfg.SMTPHost, appCfg.SMTPPort,
				secrets.EmailFrom, secrets.EmailPass)
		})
}
