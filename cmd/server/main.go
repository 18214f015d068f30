package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyjia/permits-on-the-go/internal/config"
	"github.com/garyjia/permits-on-the-go/internal/container"
	httpiface "github.com/garyjia/permits-on-the-go/internal/interfaces/http"
	"github.com/garyjia/permits-on-the-go/pkg/utils"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	envFile := flag.String("env", config.DefaultEnvFile, "optional dotenv file")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "permits-on-the-go: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting permit tracker",
		zap.String("version", version),
		zap.String("config", configPath),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown failed", zap.Error(err))
		}
	}()

	services := c.Services()
	server, err := httpiface.NewServer(httpiface.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		ChatRatePerSecond: cfg.Server.ChatRatePerSecond,
		ChatBurst:         cfg.Server.ChatBurst,
		MaxUploadBytes:    cfg.Documents.MaxSizeBytes,
	}, httpiface.Services{
		Permits:     services.Permit,
		Properties:  services.Property,
		Tasks:       services.Task,
		Inspections: services.Inspection,
		Documents:   services.Document,
		Chat:        services.Chat,
		Reports:     services.Report,
	}, container.NewLoggerAdapter(logger))
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
