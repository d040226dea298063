package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDatabase opens the configured database (MySQL or PostgreSQL) and migrates the given models.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()

	// Derive level from app LogLevel and raise slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormCfg := &gorm.Config{
		Logger:         gLogger,
		TranslateError: true,
	}

	var err error
	db, err = gorm.Open(Dialector(cfg), gormCfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	// recycle idle connections before the server side wait_timeout drops them
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	// fail at boot on network or credential problems instead of on the first query
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if len(modelDefs) > 0 {
		if err := db.AutoMigrate(modelDefs...); err != nil {
			log.Fatalf("auto migration failed: %v", err)
		}
		if err := CaseSensitiveEmails(db); err != nil {
			log.Fatalf("email collation migration failed: %v", err)
		}
	}

	return db
}

// Dialector picks the gorm driver from the configured connection settings.
// postgres:// and postgresql:// URIs use PostgreSQL; anything else is a MySQL DSN,
// optionally prefixed with mysql://.
func Dialector(cfg AppConfig) gorm.Dialector {
	uri := strings.TrimSpace(cfg.DatabaseURI)
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return postgres.Open(uri)
	case uri != "":
		return mysql.Open(strings.TrimPrefix(uri, "mysql://"))
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
	)
	return mysql.Open(dsn)
}

// CaseSensitiveEmails switches users.email to a binary collation on MySQL, whose default
// collation would treat A@x.com and a@x.com as the same address in lookups and in the
// unique index. PostgreSQL and SQLite already compare case-sensitively.
func CaseSensitiveEmails(db *gorm.DB) error {
	if db.Dialector.Name() != "mysql" || !db.Migrator().HasTable("users") {
		return nil
	}
	return db.Exec("ALTER TABLE users MODIFY email VARCHAR(100) NOT NULL COLLATE utf8mb4_bin").Error
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		// suppress per-statement logs; keep warnings (including slow SQL)
		return logger.Warn
	}
}
