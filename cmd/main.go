package main

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

	"github.com/senyabanana/furniture-market/internal/auth"
	"github.com/senyabanana/furniture-market/internal/db"
	"github.com/senyabanana/furniture-market/internal/events"
	"github.com/senyabanana/furniture-market/internal/handlers"
	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/repository"
	"github.com/senyabanana/furniture-market/internal/router"
	"github.com/senyabanana/furniture-market/internal/router/config"
	"github.com/senyabanana/furniture-market/internal/services"
	"github.com/senyabanana/furniture-market/internal/storage"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", ".", "directory containing app.env")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	issueToken := pflag.String("issue-token", "", "print a token for user:role and exit")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot load config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	if *issueToken != "" {
		if err := printToken(tokens, *issueToken); err != nil {
			logger.Error("cannot issue token", "error", err)
			os.Exit(1)
		}
		return
	}

	if *migrateOnly {
		if err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("db migrated successfully")
		return
	}

	if err := run(cfg, tokens, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, tokens *auth.Tokens, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	emitters := events.Multi{events.LogEmitter{Logger: logger}}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer publisher.Close()
		emitters = append(emitters, publisher)
		logger.Info("publishing events", "exchange", cfg.AMQPExchange)
	}

	var history events.HistoryReader
	if cfg.HistoryEnabled() {
		recorder, err := events.NewHistoryRecorder(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("connect to history store: %w", err)
		}
		defer recorder.Close(context.Background())
		emitters = append(emitters, recorder)
		history = recorder
		logger.Info("recording request history", "database", cfg.MongoDatabase)
	}

	limits := services.Limits{
		ProposalDescriptionMin: cfg.ProposalDescriptionMin,
		ProposalDescriptionMax: cfg.ProposalDescriptionMax,
	}
	requestService := services.NewRequestService(store, emitters, logger)
	proposalService := services.NewProposalService(store, emitters, logger, limits)

	h := router.Handlers{
		Requests:  handlers.NewRequestHandler(requestService, history, logger, cfg.HandlerTimeout),
		Proposals: handlers.NewProposalHandler(proposalService, logger, cfg.HandlerTimeout),
	}

	if cfg.PhotosEnabled() {
		photos, err := storage.NewPhotoStorage(ctx, storage.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			return fmt.Errorf("connect to photo storage: %w", err)
		}
		h.Uploads = handlers.NewUploadHandler(photos, logger, cfg.HandlerTimeout)
	}

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router.InitRoutes(h, tokens, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is listening", "address", cfg.ServerAddress, "backend", cfg.StorageBackend)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	if strings.EqualFold(cfg.StorageBackend, config.BackendMemory) {
		logger.Warn("using in-memory storage, data will be lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	if err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn); err != nil {
		return nil, nil, err
	}
	logger.Info("db migrated successfully")

	dbPool, err := db.InitDb(ctx, cfg.PostgresConn)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	return repository.NewPostgresStore(dbPool), dbPool.Close, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func printToken(tokens *auth.Tokens, userRole string) error {
	userID, roleName, ok := strings.Cut(userRole, ":")
	if !ok || userID == "" {
		return fmt.Errorf("expected user:role, got %q", userRole)
	}
	role, ok := models.ParseRole(roleName)
	if !ok {
		return fmt.Errorf("unknown role %q", roleName)
	}
	token, err := tokens.IssueToken(models.Actor{ID: userID, Role: role})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
