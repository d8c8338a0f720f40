package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/config"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/identity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/external/exchange"
	"github.com/expenseflow/expenseflow/internal/infrastructure/external/lark"
	openaiext "github.com/expenseflow/expenseflow/internal/infrastructure/external/openai"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/repository"
	httpserver "github.com/expenseflow/expenseflow/internal/interfaces/http"
	"github.com/expenseflow/expenseflow/internal/receipt"
	"github.com/expenseflow/expenseflow/pkg/database"
	"github.com/expenseflow/expenseflow/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	// Local overrides from .env, ignored when absent
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

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

	logger.Info("Starting expense approval service", zap.Int("port", cfg.Server.Port))

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

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	companyRepo := repository.NewCompanyRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	ruleRepo := repository.NewRuleRepository(db, logger)
	claimRepo := repository.NewClaimRepository(db, logger)
	decisionLedger := repository.NewDecisionRepository(db, logger)

	// Approval engine
	var engineOpts []approval.Option
	if cfg.Workflow.PendingUntilDecided {
		engineOpts = append(engineOpts, approval.WithPendingUntilDecided())
	}
	engine := approval.NewEngine(engineOpts...)

	// External collaborators
	rateSource := exchange.NewRateSource(cfg.Exchange.BaseURL, cfg.Exchange.Timeout, logger)

	var extractor port.DocumentExtractor
	if cfg.OpenAI.APIKey != "" {
		reader := receipt.NewReader(logger)
		extractor = openaiext.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, reader, logger)
	} else {
		logger.Warn("No OpenAI API key configured, receipt autofill disabled")
	}

	var notifier port.Notifier
	if cfg.Lark.Enabled {
		notifier = lark.NewNotifier(lark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, userRepo, logger)
	} else {
		notifier = lark.NewNopNotifier(logger)
	}

	// Application services
	kvLogger := utils.NewKVLogger(logger)

	identitySvc := identity.NewService(companyRepo, userRepo, db, identity.Config{
		JWTSecret:  cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, kvLogger)

	claimSvc := service.NewClaimService(
		claimRepo,
		ruleRepo,
		userRepo,
		companyRepo,
		decisionLedger,
		db,
		engine,
		rateSource,
		notifier,
		kvLogger,
	)
	ruleSvc := service.NewRuleService(ruleRepo, userRepo, kvLogger)
	autofillSvc := service.NewAutofillService(extractor, kvLogger)
	exportSvc := service.NewExportService(claimRepo, companyRepo, kvLogger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, identitySvc, claimSvc, ruleSvc, autofillSvc, exportSvc, kvLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}
