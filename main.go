package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pharmapos/m/internal/api"
	"pharmapos/m/internal/config"
	"pharmapos/m/internal/database"
	"pharmapos/m/internal/migrations"
	"pharmapos/m/internal/pos"
	"pharmapos/m/internal/report"
	"pharmapos/m/internal/seed"
	"pharmapos/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	seed.LoadMedicines(db, "assets/medicines.csv", logger)

	st := store.New(db)
	coordinator := pos.NewCoordinator(st, logger)
	reports := report.New(db)
	handler := api.New(st, coordinator, reports, cfg.Secret, logger)

	logger.Info("pharmacy back office starting", zap.String("port", cfg.HTTPPort))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
