package database

import (
	"context"
	"fmt"
	"time"

	"chat_relay_service/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabaseConnection create a new postgresSQL pool
func NewDatabaseConnection(ctx context.Context, d Connection) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(d.ConnectStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	var pool *pgxpool.Pool
	for i := 0; i <= d.RetryCount; i++ {
		pool, err = pgxpool.ConnectConfig(ctx, dbConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		logger.Log.Warn(
			"Failed to connect to postgreSQL database, retrying...",
			zap.Int("attempt", i+1),
			zap.String("host", dbConfig.ConnConfig.Host),
			zap.Error(err),
		)
		if i < d.RetryCount {
			time.Sleep(d.RetryInterval * time.Second)
		}
	}

	return nil, fmt.Errorf("failed to connect to postgreSQL after retries: %w", err)
}

// NewGormDB open postgres through gorm, used by the relational chat store
func NewGormDB(d Connection) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i <= d.RetryCount; i++ {
		db, err = gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if err = sqlDB.Ping(); err == nil {
					return db, nil
				}
			} else {
				err = dbErr
			}
		}
		logger.Log.Warn("Failed to open gorm postgres, retrying...", zap.Int("attempt", i+1), zap.Error(err))
		if i < d.RetryCount {
			time.Sleep(d.RetryInterval * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to open gorm postgres after retries: %w", err)
}
