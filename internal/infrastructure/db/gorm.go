package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogLevel keeps gorm at warn unless the process runs at debug.
func GormLogLevel(debug bool) logger.LogLevel {
	if debug {
		return logger.Info
	}
	return logger.Warn
}

func OpenGorm(dsn string, lvl logger.LogLevel, lg *zap.Logger) (*gorm.DB, error) {
	db, err := OpenGormWithDialector(mysql.Open(dsn), lvl)
	if err != nil {
		return nil, err
	}
	lg.Info("gorm: connected")
	return db, nil
}

// OpenGormWithDialector opens, tunes the pool and pings.
func OpenGormWithDialector(d gorm.Dialector, lvl logger.LogLevel) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(lvl),
	}
	db, err := gorm.Open(d, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}
