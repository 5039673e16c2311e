package database

import (
	"aptitude_backend/internal/config"
	"aptitude_backend/internal/model"
	applog "aptitude_backend/pkg/logger"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 连接池
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	applog.Log.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate 同步表结构
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Student{},
		&model.AptitudeTest{},
		&model.TestQuestion{},
		&model.TestSession{},
		&model.SessionAnswer{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	applog.Log.Info("Database migration completed")
	return nil
}
