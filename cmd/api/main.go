// Command api runs the number guessing game server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/distrubuted-game-mechanic/number-guess/internal/api"
	"github.com/distrubuted-game-mechanic/number-guess/internal/config"
	"github.com/distrubuted-game-mechanic/number-guess/internal/realtime"
	"github.com/distrubuted-game-mechanic/number-guess/internal/service"
	"github.com/distrubuted-game-mechanic/number-guess/internal/storage"
	"github.com/distrubuted-game-mechanic/number-guess/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "guessgame",
		Usage:   "Guess a number between 1 and 100 in at most 10 attempts",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before reading the environment"},
			&cli.StringFlag{Name: "host", Usage: "listen host (overrides HOST)"},
			&cli.StringFlag{Name: "port", Usage: "listen port (overrides PORT)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (overrides LOG_LEVEL)"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "guessgame: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := loadEnvFile(cmd.String("env-file")); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.String("port")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	log := logger.New(cfg.LogLevel, logger.Format(cfg.LogFormat))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	random := service.NewRandomSource(cfg.RandomSeed)
	var ids service.IDGenerator = service.NewShortIDGenerator(random)
	if cfg.GameIDFormat == config.IDFormatUUID {
		ids = service.UUIDGenerator{}
	}

	gameService := service.NewGameService(
		storage.NewMemoryStorage(),
		random,
		ids,
		service.WithPublisher(hub),
		service.WithLogger(log),
	)

	handler := api.NewHandler(gameService, hub, log)
	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: api.NewRouter(handler, log, cfg.RequestTimeout),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			logger.F("address", cfg.Address()),
			logger.F("id_format", cfg.GameIDFormat),
			logger.F("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
