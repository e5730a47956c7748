package main

import (
	"context"
	"os"

	"delegate-portal/config"
	"delegate-portal/internal/reconcile"
	"delegate-portal/internal/repository"
	"delegate-portal/pkg/database"
	"delegate-portal/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// One-shot wallet reconciliation. Exits 2 when any account has drifted.
func main() {
	_ = godotenv.Load()

	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	rec := reconcile.NewWalletReconciler(repository.New(db).Wallets, log)

	report, err := rec.RunOnce(context.Background())
	if err != nil {
		log.Fatal("wallet reconciliation failed", zap.Error(err))
	}

	log.Info("wallet reconciliation completed",
		zap.Int("accounts", report.Accounts),
		zap.Int("drifted", len(report.Drifts)),
	)
	if len(report.Drifts) > 0 {
		logger.Sync()
		os.Exit(2)
	}
}
