package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-recycling-ledger/internal/handler"
	"go-recycling-ledger/internal/middleware"
	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/internal/service"
	"go-recycling-ledger/pkg/config"
	"go-recycling-ledger/pkg/database"
	"go-recycling-ledger/pkg/jwt"
	"go-recycling-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zl.Sync() //nolint:errcheck

	// 2. Setup Database
	db, err := database.Connect(cfg, zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	// 3. Dependency Injection (Wiring Layers)
	userRepo := repository.NewUserRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	reportRepo := repository.NewReportRepo(db)
	repos := service.NewMovementRepos(db)

	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)

	authService := service.NewAuthService(userRepo, tokens, zl)
	materialService := service.NewMaterialService(db, repos.Materials, categoryRepo, zl)
	partnerService := service.NewPartnerService(db, repos.Partners, zl)
	buyerService := service.NewBuyerService(repos.Buyers, zl)
	movementService := service.NewMovementService(db, repos, service.MovementOptions{
		Retry:               service.RetryPolicyFromConfig(cfg.Ledger),
		LockMaterialsOnSale: cfg.Ledger.LockMaterialsOnSale,
		Location:            cfg.Location(),
	}, zl)
	stockService := service.NewStockService(repos.Materials, repos.Stock)
	financeService := service.NewFinanceService(repos.Transactions, nil, zl)
	reportService := service.NewReportService(reportRepo)
	dashService := service.NewDashboardService(reportRepo, repos.Transactions, nil)
	userService := service.NewUserService(userRepo)

	// 4. Seed partner types and the first operator
	seed(cfg, partnerService, authService, zl)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: handler.ErrorHandler(zl),
	})

	// Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(zl))
	app.Use(cors.New()) // CORS

	// 6. Routes
	handler.Register(app, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Catalogue: handler.NewCatalogueHandler(materialService, partnerService, buyerService),
		Movements: handler.NewMovementHandler(movementService, cfg.Location()),
		Ledger:    handler.NewLedgerHandler(stockService, financeService),
		Reports:   handler.NewReportHandler(reportService, cfg.Location()),
		Dashboard: handler.NewDashboardHandler(dashService),
		Users:     handler.NewUserHandler(userService),
	}, middleware.RequireAuth(authService))

	// 7. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Panic("listen", zap.Error(err))
		}
	}()
	zl.Info("server started", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		zl.Fatal("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zl.Info("server exited")
}

// seed creates the default partner types and, when ADMIN_EMAIL and
// ADMIN_PASSWORD are set, an operator account. Failures are logged only.
func seed(cfg *config.Config, partners service.PartnerService, auth service.AuthService, zl *zap.Logger) {
	ctx := service.WithActor(context.Background(), "system")

	if err := partners.SeedDefaultTypes(ctx); err != nil {
		zl.Warn("failed to seed partner types", zap.Error(err))
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	user, created, err := auth.EnsureUser(ctx, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword)
	if err != nil {
		zl.Warn("failed to seed admin user", zap.Error(err))
		return
	}
	if created {
		zl.Info("admin user created", zap.String("email", user.Email))
	}
}
