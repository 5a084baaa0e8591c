// Package db is the platform's document store: organizations and their
// custodial keys, campaigns, donation rows and expense chain records.
// Uniqueness is enforced here (transaction hash, chain reference) so the
// services above can rely on insert-or-conflict semantics.
package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	db  *gorm.DB
	log *logrus.Logger
}

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

func NewDatabase(cfg Config, log *logrus.Logger) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Duplicate-key violations must surface as gorm.ErrDuplicatedKey
		// so the donation recorder can fall back to the existing row.
		TranslateError: true,
	}
	if cfg.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	gormDB, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to mysql: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing sql database: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Database{
		db:  gormDB,
		log: log,
	}, nil
}

func (db *Database) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return fmt.Errorf("accessing sql database: %w", err)
	}
	return sqlDB.Close()
}

func (db *Database) GetDB() *gorm.DB {
	return db.db
}

func (db *Database) Migrate() error {
	db.log.Info("Migrating database tables")

	return db.db.AutoMigrate(
		&Organization{},
		&Campaign{},
		&Donation{},
		&ExpenseRecord{},
	)
}
