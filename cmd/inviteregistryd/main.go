package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inviteregistry/config"
	"inviteregistry/core"
	"inviteregistry/observability/logging"
	telemetry "inviteregistry/observability/otel"
	"inviteregistry/rpc"
	"inviteregistry/storage"
)

const (
	envOverride     = "INVITE_ENV"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	allowMigrateFlag := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	if err := run(*configFile, *allowMigrateFlag); err != nil {
		fmt.Fprintf(os.Stderr, "inviteregistryd: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, allowMigrate bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Environment
	if override := strings.TrimSpace(os.Getenv(envOverride)); override != "" {
		env = override
	}
	logger := logging.SetupWithFile("inviteregistryd", env, logging.FileConfig{Path: cfg.LogFile})

	if cfg.Telemetry.Enabled {
		headers, err := telemetry.ParseHeaders(cfg.Telemetry.Headers)
		if err != nil {
			return err
		}
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "inviteregistryd",
			Environment: env,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     headers,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("initialise telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = shutdownTelemetry(ctx)
		}()
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	authSecret, err := cfg.Auth.Secret()
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	node, err := core.NewNode(db, core.Config{
		ChainID:         cfg.ChainID,
		RegistryAddress: registry,
		AllowMigrate:    allowMigrate || cfg.AllowMigrate,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("open node: %w", err)
	}

	server := rpc.NewServer(node, rpc.ServerConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		ReadHeaderTimeout: time.Duration(cfg.RPCReadHeaderTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.RPCWriteTimeout) * time.Second,
		Auth: rpc.AuthConfig{
			Secret:   authSecret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(cfg.RPCAddress)
	}()

	logger.Info("invite registry running",
		slog.Uint64("chainId", cfg.ChainID),
		slog.String("registry", cfg.RegistryAddress),
		slog.Uint64("height", node.Height()),
		slog.String("rpc", cfg.RPCAddress))

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc shutdown: %w", err)
	}
	return <-serveErr
}
