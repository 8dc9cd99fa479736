package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aegisgate/identityd/internal/adapter/inbound/httpapi"
	fileaudit "github.com/aegisgate/identityd/internal/adapter/outbound/audit"
	"github.com/aegisgate/identityd/internal/adapter/outbound/memory"
	"github.com/aegisgate/identityd/internal/adapter/outbound/sqlitestore"
	"github.com/aegisgate/identityd/internal/bootstrap"
	"github.com/aegisgate/identityd/internal/config"
	"github.com/aegisgate/identityd/internal/domain/audit"
	"github.com/aegisgate/identityd/internal/domain/policy"
	"github.com/aegisgate/identityd/internal/service"
	"github.com/aegisgate/identityd/internal/telemetry"
)

var clientsPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serve starts identityd's HTTP surface: token issuance, SCIM
provisioning, and policy evaluation, wired to a SQLite-backed record store
and a hot-reloadable policy document.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&clientsPath, "clients", "", "path to an optional client_credentials seed file (JSON array of {client_id, client_secret, scope})")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tracing *telemetry.Tracing
	if cfg.OTelTracesEnabled {
		tracing, err = telemetry.SetupStdout(os.Stderr)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	db, err := sqlitestore.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer db.Close()

	users, groups, clients := db.Users(), db.Groups(), db.Clients()

	if clientsPath != "" {
		if err := bootstrap.SeedClients(ctx, clients, clientsPath, logger); err != nil {
			return fmt.Errorf("seed clients: %w", err)
		}
	}

	loader := policy.NewLoader(cfg.PoliciesPath)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("load policies: %w", err)
	}
	engine := policy.NewEngine(loader)
	policyAdmin := service.NewPolicyAdminService(loader, logger)
	logger.Info("policies loaded", "path", cfg.PoliciesPath, "rule_count", policyAdmin.RuleCount())

	tokenSvc, err := service.NewTokenService(cfg.JWT, users, clients)
	if err != nil {
		return fmt.Errorf("build token service: %w", err)
	}

	scimSvc := service.NewSCIMService(users, groups, logger)

	if cfg.DevMode {
		if err := bootstrap.SeedDev(ctx, scimSvc, groups, logger); err != nil {
			return fmt.Errorf("seed dev admin: %w", err)
		}
	}

	auditStore, err := newAuditStore(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer auditStore.Close()

	auditSvc := service.NewAuditService(auditStore, logger)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	authzSvc := service.NewAuthorizationService(engine, auditSvc)

	healthChecker := telemetry.NewHealthChecker(auditSvc, policyAdmin)
	registry := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	handler := httpapi.New(
		httpapi.WithTokenService(tokenSvc),
		httpapi.WithSCIMService(scimSvc),
		httpapi.WithAuthzService(authzSvc),
		httpapi.WithPolicyAdminService(policyAdmin),
		httpapi.WithHealthChecker(healthChecker),
		httpapi.WithMetrics(metrics),
		httpapi.WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	mux.Handle("/metrics", promHandler(registry))

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           telemetry.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("identityd listening", "addr", addr, "dev_mode", cfg.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	return nil
}

func promHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func newAuditStore(cfg config.AuditConfig, logger *slog.Logger) (audit.AuditStore, error) {
	if cfg.LogPath == "" {
		return memory.NewAuditStore(), nil
	}
	return fileaudit.NewFileAuditStore(fileaudit.AuditFileConfig{
		Dir:           cfg.LogPath,
		RetentionDays: cfg.RetentionDays,
	}, logger)
}

// parseLogLevel converts LOG_LEVEL's documented values to a slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
