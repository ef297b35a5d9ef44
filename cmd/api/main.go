package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visitor-platform/internal/accounts"
	"visitor-platform/internal/audit"
	"visitor-platform/internal/auth"
	"visitor-platform/internal/config"
	"visitor-platform/internal/credential"
	"visitor-platform/internal/evacuation"
	"visitor-platform/internal/httpapi"
	"visitor-platform/internal/notify"
	"visitor-platform/internal/report"
	"visitor-platform/internal/sweep"
	"visitor-platform/internal/visit"
	"visitor-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Service graph. The in-memory visit store is the single source of
	// truth for the demo deployment.
	store := visit.NewStore()
	auditSvc := audit.NewService(audit.NewMemoryRepo())
	center := notify.NewCenter(cfg.Notify.DisplayTTL)
	issuer := credential.NewIssuer(cfg.Credential.CodeTTL)
	visits := visit.NewService(store, issuer, auditSvc, center)

	sweeper := sweep.New(cfg.Credential.RotationInterval, visits, log)
	go sweeper.Run(rootCtx)

	h := httpapi.Handlers{
		Auth:     authManager,
		Accounts: accounts.DemoTable(),
		Visits:   visits,
		Reports:  report.NewService(visits),
		Evac:     evacuation.NewRoster(visits),
		Audit:    auditSvc,
		Notify:   center,
		Sweeper:  sweeper,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
