package main

import (
	"fmt"

	"shopfloor-estimator/internal/config"
	"shopfloor-estimator/internal/data"
	"shopfloor-estimator/internal/db"
	"shopfloor-estimator/internal/estimator"
	"shopfloor-estimator/internal/logging"
	"shopfloor-estimator/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app bundles what every subcommand needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	gdb     *gorm.DB
	store   *data.Store
	engine  *estimator.Engine
	metrics *metrics.Collector
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Database.Driver, err)
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	store := data.NewStore(gdb)
	engine := estimator.New(store,
		estimator.WithLogger(log.Named("estimator")),
		estimator.WithObserver(collector),
		estimator.WithCache(cfg.Cache.Size, cfg.Cache.TTL),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		gdb:     gdb,
		store:   store,
		engine:  engine,
		metrics: collector,
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
