// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-cfp-voting/internal/config"
	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// Open connects to the database selected by cfg.Driver ("sqlite" or
// "postgres"), installs the OpenTelemetry plugin when requested, and returns
// the handle. Migrations are not applied here; call AutoMigrate.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		db, err = OpenPostgres(cfg.URL, cfg.MaxOpenConns)
	default:
		db, err = OpenSQLite(cfg.Path, cfg.MaxOpenConns)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithDBSystem(cfg.Driver), tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("gorm tracing plugin: %w", err)
		}
	}
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// maxOpen <= 0 keeps the default pool of 10 connections.
func OpenSQLite(path string, maxOpen int) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if maxOpen <= 0 {
		maxOpen = 10
	}
	setPool(db, maxOpen)
	return db, nil
}

// OpenPostgres connects to PostgreSQL using a libpq-style DSN or URL.
func OpenPostgres(dsn string, maxOpen int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = 25
	}
	setPool(db, maxOpen)
	return db, nil
}

func setPool(db *gorm.DB, maxOpen int) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// AutoMigrate creates or updates every table the voting engine uses. The
// talk/category join table is registered explicitly so its composite key
// matches domain.TalkCategory.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&domain.Talk{}, "Categories", &domain.TalkCategory{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&domain.Conference{},
		&domain.Category{},
		&domain.Talk{},
		&domain.Vote{},
		&domain.ConductReport{},
		&domain.Idempotency{},
	)
}
