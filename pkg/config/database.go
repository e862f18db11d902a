package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/socialgraph/backend/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connections
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	// Redis is nil when REDIS_URL is not set.
	Redis *redis.Client

	database string
	logger   *slog.Logger
}

// MongoDatabase returns the application database.
func (db *DB) MongoDatabase() *mongo.Database {
	return db.Mongo.Database(db.database)
}

// InitDB opens every configured connection and migrates the outbox table.
func InitDB(ctx context.Context, cfg *Config, logger *slog.Logger) (*DB, error) {
	db := &DB{database: cfg.MongoDatabase, logger: logger}

	var err error
	if db.Postgres, err = initPostgres(cfg.PostgresURL, cfg.IsProduction()); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	if err := db.Postgres.WithContext(ctx).AutoMigrate(&models.FanoutJob{}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate fanout_jobs: %w", err)
	}

	if db.Mongo, err = initMongo(ctx, cfg.MongoURI); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	if cfg.RedisURL != "" {
		if db.Redis, err = initRedis(ctx, cfg.RedisURL); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")
	}
	return db, nil
}

func initPostgres(dsn string, quiet bool) (*gorm.DB, error) {
	gcfg := &gorm.Config{}
	if quiet {
		gcfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(postgres.Open(dsn), gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// ConnectMongo opens only the MongoDB connection, for maintenance commands.
func ConnectMongo(ctx context.Context, cfg *Config) (*mongo.Client, error) {
	client, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return client, nil
}

// DisconnectMongo closes a client opened by ConnectMongo.
func DisconnectMongo(client *mongo.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("closing MongoDB connection", "error", err)
	}
}

func initRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Close closes every open connection.
func (db *DB) Close() {
	if db.Postgres != nil {
		if sqlDB, err := db.Postgres.DB(); err != nil {
			db.logger.Error("getting SQL DB from GORM", "error", err)
		} else if err := sqlDB.Close(); err != nil {
			db.logger.Error("closing PostgreSQL connection", "error", err)
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.logger.Error("closing MongoDB connection", "error", err)
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.logger.Error("closing Redis connection", "error", err)
		}
	}
	db.logger.Info("database connections closed")
}
