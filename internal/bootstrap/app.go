package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"travelchat/internal/ai"
	"travelchat/internal/app"
	"travelchat/internal/cache"
	"travelchat/internal/config"
	"travelchat/internal/logging"
	"travelchat/internal/model"
	mysqlClient "travelchat/internal/platform/mysql"
	rabbitmqClient "travelchat/internal/platform/rabbitmq"
	redisClient "travelchat/internal/platform/redis"
	"travelchat/internal/remote"
	"travelchat/internal/repository"
	"travelchat/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	MySQL  *gorm.DB
	// Redis is set only when the session cache lives in Redis.
	Redis *redis.Client
	// MQConn is set only when sync jobs go through RabbitMQ.
	MQConn     *amqp.Connection
	SyncWorker *worker.SessionSyncWorker
	Background *worker.Background

	Sessions *app.SessionService
	Travel   *app.TravelService
	Auth     *app.AuthService

	StartedAt time.Time
}

type Options struct {
	// ConsumeSyncQueue starts the RabbitMQ sync consumer in this process.
	ConsumeSyncQueue bool
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, opts)
}

func NewWithConfig(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN(), logger)
	if err != nil {
		return nil, err
	}
	if err := a.MySQL.AutoMigrate(&model.User{}, &model.ChatSessionRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	kv, err := a.openCache(ctx)
	if err != nil {
		return nil, err
	}
	sessionCache := cache.NewSessionCache(kv, cfg.Cache.Key, logger.Named("cache"))

	var remoteClient *remote.Client
	var dispatcher app.SyncDispatcher
	if cfg.Sync.Enabled {
		remoteClient = remote.NewClient(repository.NewChatSessionRepository(a.MySQL), logger.Named("remote"))
		dispatcher, err = a.openDispatcher(ctx, remoteClient, opts)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Info("remote session sync disabled, running local only")
	}

	a.Sessions = app.NewSessionService(sessionCache, remoteClient, dispatcher, logger.Named("sessions"))
	a.Travel = app.NewTravelService(
		a.Sessions,
		ai.NewTravelClient(cfg.Assistant.BaseURL, time.Duration(cfg.Assistant.TimeoutSeconds)*time.Second),
		logger.Named("travel"),
	)
	a.Auth = app.NewAuthService(
		repository.NewUserRepository(a.MySQL),
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	return a, nil
}

func (a *App) openCache(ctx context.Context) (cache.KV, error) {
	switch a.Config.Cache.Driver {
	case "memory":
		return cache.NewMemoryKV(), nil
	case "redis":
		client, err := redisClient.New(ctx, a.Config.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = client
		return cache.NewRedisKV(client), nil
	case "file", "":
		return cache.NewFileKV(a.Config.Cache.Dir), nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", a.Config.Cache.Driver)
}

func (a *App) openDispatcher(ctx context.Context, remoteClient *remote.Client, opts Options) (app.SyncDispatcher, error) {
	switch a.Config.Sync.Driver {
	case "inline", "":
		a.Background = worker.NewBackground(remoteClient, a.Logger.Named("sync"))
		return a.Background, nil
	case "rabbitmq":
		conn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL, a.Logger)
		if err != nil {
			return nil, err
		}
		a.MQConn = conn
		if opts.ConsumeSyncQueue {
			a.SyncWorker = worker.NewSessionSyncWorker(conn, remoteClient, a.Config.RabbitMQ.SyncQueue, a.Logger.Named("sync"))
			if err := a.SyncWorker.Start(ctx); err != nil {
				return nil, fmt.Errorf("start sync worker failed: %w", err)
			}
		}
		return rabbitmqClient.NewSyncPublisher(conn, a.Config.RabbitMQ.SyncQueue), nil
	}
	return nil, fmt.Errorf("unknown sync driver %q", a.Config.Sync.Driver)
}

// Close drains pending sync jobs before releasing connections.
func (a *App) Close() error {
	var errs []error
	if a.Background != nil {
		a.Background.Close()
	}
	if a.SyncWorker != nil {
		a.SyncWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
