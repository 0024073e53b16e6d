package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/auth"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/config"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/database"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/logging"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/rooms"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/server"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/users"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "woodpecker-api",
		Short: "Woodpecker puzzle trainer backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", "", "Postgres connection string")
	cmd.PersistentFlags().String("puzzle-store", defaults.GetString("puzzles.store_path"), "Badger puzzle store directory")
	cmd.PersistentFlags().String("puzzle-seed", "", "Puzzle catalogue JSON loaded into an empty store")
	cmd.PersistentFlags().Duration("token-ttl", defaults.GetDuration("auth.token_ttl"), "Access token lifetime")
	cmd.PersistentFlags().StringSlice("allowed-origins", defaults.GetStringSlice("cors.allowed_origins"), "Allowed CORS and WebSocket origins")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-encoding", defaults.GetString("log.encoding"), "Log encoding (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "puzzles.store_path", "puzzle-store")
	bindFlag(cmd, "puzzles.seed_path", "puzzle-seed")
	bindFlag(cmd, "auth.token_ttl", "token-ttl")
	bindFlag(cmd, "cors.allowed_origins", "allowed-origins")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.encoding", "log-encoding")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogEncoding)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(database.Options{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	puzzleStore, err := puzzles.OpenBadgerStore(appConfig.PuzzleStorePath, false)
	if err != nil {
		return err
	}
	defer puzzleStore.Close()

	if appConfig.PuzzleSeedPath != "" {
		if _, err := puzzles.SeedIfEmpty(ctx, puzzleStore, appConfig.PuzzleSeedPath, logger); err != nil {
			return err
		}
	} else if count, err := puzzleStore.Count(ctx); err == nil && count == 0 {
		logger.Warn("puzzle store is empty and no seed file was given", zap.String("path", appConfig.PuzzleStorePath))
	}

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.AuthSigningSecret),
		Issuer:        appConfig.AuthIssuer,
		Audience:      appConfig.AuthAudience,
		TokenTTL:      appConfig.AuthTokenTTL,
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: users.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	puzzlesService, err := puzzles.NewService(puzzles.ServiceConfig{
		Store:  puzzleStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	evaluationsService, err := evaluations.NewService(evaluations.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	registry := rooms.NewRegistry(rooms.RegistryConfig{
		BufferSize: appConfig.RoomBufferSize,
		Logger:     logger,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:   tokenManager,
		Users:          usersService,
		Puzzles:        puzzlesService,
		Evaluations:    evaluationsService,
		Rooms:          registry,
		AllowedOrigins: appConfig.CORSAllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress), zap.String("database", appConfig.DatabaseDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
