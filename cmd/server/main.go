package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/application/service"
	"github.com/payops/payment-workflow/internal/config"
	"github.com/payops/payment-workflow/internal/infrastructure/export"
	"github.com/payops/payment-workflow/internal/infrastructure/persistence/repository"
	"github.com/payops/payment-workflow/internal/infrastructure/storage"
	httpserver "github.com/payops/payment-workflow/internal/interfaces/http"
	"github.com/payops/payment-workflow/pkg/database"
	"github.com/payops/payment-workflow/pkg/utils"
)

func main() {
	// Load .env overrides before reading configuration
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting payment workflow engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Create document storage directory
	if err := os.MkdirAll(cfg.Storage.DocumentDir, 0755); err != nil {
		logger.Fatal("Failed to create document directory", zap.Error(err))
	}

	// Initialize repositories
	batchRepo := repository.NewBatchRepository(db, logger)
	requestRepo := repository.NewRequestRepository(db, logger)
	approvalRepo := repository.NewApprovalRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)
	soaRepo := repository.NewSoaRepository(db, logger)
	actorRepo := repository.NewActorRepository(db, logger)

	// Initialize infrastructure
	fileStorage := storage.NewLocalFileStorage(cfg.Storage.DocumentDir, logger)
	exporters := []port.SnapshotExporter{
		export.NewPdfExporter(logger),
		export.NewExcelExporter(logger),
	}

	// Initialize services
	svcLogger := service.NewZapLogger(logger)
	soaService := service.NewSoaService(batchRepo, requestRepo, soaRepo, auditRepo,
		db, fileStorage, exporters, svcLogger)
	workflowService := service.NewWorkflowService(batchRepo, requestRepo, approvalRepo,
		auditRepo, db, soaService, svcLogger)
	auditService := service.NewAuditService(auditRepo, svcLogger)
	actorService := service.NewActorService(actorRepo, svcLogger)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		MaxUploadSize: cfg.Storage.MaxUploadSize,
	}, workflowService, soaService, auditService, actorService, svcLogger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
