package main

import (
	"context"
	"flag"
	"time"

	"warehouse-system/config"
	"warehouse-system/internal/database"
	"warehouse-system/internal/logger"
	audithandler "warehouse-system/internal/services/audit/handler"
	userhandler "warehouse-system/internal/services/user/handler"
)

func main() {
	seed := flag.Bool("seed", true, "create the default admin account and warehouse")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.ServiceName+"-migrate", cfg.Log.Development)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to db")
	}

	if err := database.Migrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to migrate database")
	}
	logger.Logger.Info().Int("tables", len(database.Models())).Msg("Database migrated")

	if !*seed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := userhandler.NewUserHandler(db, audithandler.NewAuditHandler(db), nil)
	result, err := users.SeedDefaults(ctx, cfg.Auth.AdminPassword)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to seed defaults")
	}
	logger.Logger.Info().
		Bool("admin_created", result.AdminCreated).
		Bool("warehouse_created", result.WarehouseCreated).
		Msg("Defaults seeded")
}
