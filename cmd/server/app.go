package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filesystem-mcp/internal/config"
	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/audit"
	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filesystem-mcp/internal/logging"
	"github.com/GriffinCanCode/filesystem-mcp/internal/mcp"
	"github.com/GriffinCanCode/filesystem-mcp/internal/providers"
	"github.com/GriffinCanCode/filesystem-mcp/internal/providers/filesystem"
	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
	"github.com/GriffinCanCode/filesystem-mcp/internal/service"
)

// globalFlags override the environment configuration when set.
type globalFlags struct {
	root     string
	logLevel string
	logDev   bool
	auditLog string
}

func (g *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.root, "root", "", "Sandbox root directory (default: working directory)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&g.logDev, "log-dev", false, "Human-readable development logs")
	pf.StringVar(&g.auditLog, "audit-log", "", "Append one JSON line per tool call to this file")
}

// loadConfig reads the environment and applies flags that were set.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Sandbox.Root = g.root
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if flags.Changed("log-dev") {
		cfg.Logging.Development = g.logDev
	}
	if flags.Changed("audit-log") {
		cfg.Audit.Path = g.auditLog
	}
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetString("port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired components shared by every transport.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	guard    *sandbox.Guard
	registry *service.Registry
	metrics  *monitoring.Metrics
	audit    *audit.Logger
	server   *mcp.Server
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	return logging.New(logCfg)
}

// commandLogger builds the logger for commands that do not start a server.
func (g *globalFlags) commandLogger(cmd *cobra.Command) (*logging.Logger, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func sandboxRoot(cfg *config.Config) (string, error) {
	if cfg.Sandbox.Root != "" {
		return cfg.Sandbox.Root, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

func newApp(cfg *config.Config, logger *logging.Logger) (*app, error) {
	root, err := sandboxRoot(cfg)
	if err != nil {
		return nil, err
	}
	guard, err := sandbox.NewGuard(root, sandbox.DefaultPolicy())
	if err != nil {
		return nil, err
	}

	registry := service.NewRegistry()
	ops := filesystem.New(guard, filesystem.WithWorkers(cfg.Sandbox.SearchWorkers))
	if err := registry.Register(providers.NewFilesystem(ops)); err != nil {
		guard.Close()
		return nil, fmt.Errorf("failed to register filesystem provider: %w", err)
	}

	var auditLog *audit.Logger
	if cfg.Audit.Path != "" {
		auditLog, err = audit.New(cfg.Audit.Path)
		if err != nil {
			guard.Close()
			return nil, err
		}
	}

	metrics := monitoring.NewMetrics(nil)
	server := mcp.NewServer(registry, logger.Named("mcp").Logger,
		mcp.WithMetrics(metrics),
		mcp.WithAudit(auditLog),
		mcp.WithCallTimeout(cfg.Server.RequestTimeout),
	)

	logger.Info("Sandbox ready",
		zap.String("root", guard.Root()),
		zap.Int("tools", len(registry.Tools())),
		zap.Bool("audit", auditLog != nil),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		guard:    guard,
		registry: registry,
		metrics:  metrics,
		audit:    auditLog,
		server:   server,
	}, nil
}

func (a *app) Close() error {
	var firstErr error
	if err := a.audit.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close audit log: %w", err)
	}
	if err := a.guard.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close sandbox: %w", err)
	}
	_ = a.logger.Sync()
	return firstErr
}
