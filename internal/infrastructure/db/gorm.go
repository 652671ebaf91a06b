package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// OpenGorm connects to MySQL.
func OpenGorm(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), log)
}

// OpenSQLite opens a SQLite database file, or ":memory:". A single
// connection is kept so every query sees the same database.
func OpenSQLite(path string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := OpenGormWithDialector(sqlite.Open(path), log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	return db, nil
}

// OpenGormWithDialector opens and pings dial. Slow queries and errors go to log.
func OpenGormWithDialector(dial gorm.Dialector, log logrus.FieldLogger) (*gorm.DB, error) {
	log = log.WithField("component", "gorm")
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
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
	log.WithField("dialect", dial.Name()).Info("connected")
	return db, nil
}
