package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat_relay_service/internal/chat/app"
	"chat_relay_service/internal/chat/repository"
	"chat_relay_service/internal/chat/router"
	memberapp "chat_relay_service/internal/member/app"
	memberdomain "chat_relay_service/internal/member/domain"
	memberrepo "chat_relay_service/internal/member/repository"
	"chat_relay_service/pkg/config"
	"chat_relay_service/pkg/database"
	"chat_relay_service/pkg/encrypt"
	errprocess "chat_relay_service/pkg/err"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/metrics"
	testtool "chat_relay_service/pkg/test_tool"
	"chat_relay_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(config.IsProduction()); err != nil {
		logger.Log.Fatal("invalid config", zap.Error(err))
	}
	token.Configure(cfg.JWTSecret, cfg.SessionTTL)
	if !config.IsProduction() {
		logger.Log.SetDebugMode(true)
	}

	if err := run(cfg); err != nil {
		logger.Log.Fatal("chat service stopped", zap.Error(err))
	}
}

// closers run in reverse order on shutdown
type closers []func(context.Context)

func (c *closers) add(fn func(context.Context)) { *c = append(*c, fn) }

func (c closers) closeAll(ctx context.Context) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i](ctx)
	}
}

func run(cfg config.Chat) error {
	ctx := context.Background()
	var cleanup closers
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cleanup.closeAll(shutdownCtx)
	}()

	// 1. 聊天室 / 訊息 storage
	roomRepo, msgRepo, err := openChatStore(ctx, cfg, &cleanup)
	if err != nil {
		return err
	}

	// 2. 會員 (PostgreSQL) 與 session / profile cache (Redis)
	members, err := openMemberStore(ctx, cfg, &cleanup)
	if err != nil {
		return err
	}
	sessions, profileCache, err := openRedis(ctx, cfg, &cleanup)
	if err != nil {
		return err
	}

	// 3. message.created 事件 (Kafka, optional)
	events := openEventPublisher(ctx, cfg, &cleanup)

	// 4. 初始化 UseCases
	memberUC := memberapp.NewMemberUseCase(members, cfg.SessionTTL, sessions, encrypt.HashPassword)
	auth := memberapp.NewChatAuthGate(memberUC)
	profiles := memberapp.NewChatProfileDirectory(memberapp.NewProfileService(members, profileCache, cfg.ProfileTTL))

	index := app.NewMembershipIndex()
	conns := app.NewConnectionManager(index, cfg.Relay.OutboundBuffer)

	messageUC := app.NewSendMessageUseCase(roomRepo, msgRepo, auth, profiles, app.NewDispatcher(index), events,
		app.MessageConfig{
			MaxContentLength: cfg.Relay.MaxContentLength,
			StoreTimeout:     cfg.Relay.StoreTimeout,
			EventTimeout:     cfg.Relay.EventTimeout,
		})
	roomUC := app.NewRoomUseCase(roomRepo, auth)

	// 5. 啟動 Fiber
	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return errprocess.Wrap("open access log", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowCredentials: len(cfg.AllowedOrigins) > 0,
	}))
	r.Use(metrics.FiberMiddleware())

	r.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("chat relay is running")
	})
	r.Get("/metrics", metrics.Handler())
	r.Post("/debug", func(c *fiber.Ctx) error {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		logger.Log.SetDebugMode(body.Enabled)
		return c.JSON(fiber.Map{"debug": logger.Log.IsDebugMode()})
	})

	// 注册路由
	memberapp.NewMemberHandler(memberUC).RegisterRoutes(r)
	router.RegisterRoutes(r,
		app.NewChatWebsocketHandler(conns, messageUC, auth, app.WebsocketConfig{
			SendRate:     cfg.Relay.SendRate,
			SendBurst:    cfg.Relay.SendBurst,
			PingInterval: cfg.Relay.PingInterval,
		}),
		app.NewChatHandler(roomUC, messageUC),
	)

	testtool.StartPprof(cfg.PprofAddr)

	errCh := make(chan error, 1)
	go func() {
		port := ":" + cfg.Port
		logger.Log.Info("Chat Service listening", zap.String("port", port), zap.String("storage", string(cfg.Storage)))
		errCh <- r.Listen(port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return errprocess.Wrap("fiber listen", err)
	case sig := <-quit:
		logger.Log.Info("shutting down", zap.String("signal", sig.String()))
	}

	// 先斷開所有 websocket, 再停 fiber
	conns.Shutdown()
	if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Log.Warn("fiber shutdown", zap.Error(err))
	}
	// kafka writer 關閉前等待背景事件送完
	messageUC.Flush()
	return nil
}

func openChatStore(ctx context.Context, cfg config.Chat, cleanup *closers) (repository.RoomRepository, repository.MessageRepository, error) {
	clock := repository.NewClock()

	switch cfg.Storage {
	case config.StorageMongo:
		mongo, err := database.NewMongoDB(ctx,
			database.Connection{
				ConnectStr:    cfg.MongoSQL.MongoURI(),
				RetryCount:    cfg.MongoSQL.RetryCount,
				RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
			},
			cfg.MongoSQL.Database)
		if err != nil {
			return nil, nil, errprocess.Wrap("connect mongo", err)
		}
		cleanup.add(func(ctx context.Context) { _ = mongo.Close(ctx) })
		if err := repository.EnsureMongoIndexes(ctx, mongo.Database); err != nil {
			return nil, nil, errprocess.Wrap("create mongo indexes", err)
		}
		return repository.NewMongoRoomRepository(mongo.Database), repository.NewMongoMessageRepository(mongo.Database, clock), nil

	case config.StoragePostgres:
		db, err := database.NewGormDB(database.Connection{
			ConnectStr:    cfg.PostgreSQL.PostgresDSN(),
			RetryCount:    cfg.PostgreSQL.RetryCount,
			RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
		})
		if err != nil {
			return nil, nil, errprocess.Wrap("connect postgres (gorm)", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			cleanup.add(func(context.Context) { _ = sqlDB.Close() })
		}
		store := repository.NewGormStore(db, clock)
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, errprocess.Wrap("migrate chat tables", err)
		}
		return store, store, nil

	default:
		logger.Log.Warn("memory storage: rooms and messages are lost on restart")
		store := repository.NewMemoryStore(clock)
		return store, store, nil
	}
}

func openMemberStore(ctx context.Context, cfg config.Chat, cleanup *closers) (memberrepo.MemberRepository, error) {
	if cfg.Storage == config.StorageMemory && cfg.PostgreSQL.Host == "" {
		return memberrepo.NewMemoryMemberRepository(), nil
	}

	pool, err := database.NewDatabaseConnection(ctx, database.Connection{
		ConnectStr:    cfg.PostgreSQL.PostgresDSN(),
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		return nil, errprocess.Wrap("connect postgres", err)
	}
	cleanup.add(func(context.Context) { pool.Close() })

	if err := memberrepo.EnsureSchema(ctx, pool); err != nil {
		return nil, errprocess.Wrap("create member table", err)
	}
	return memberrepo.NewMemberRepository(pool), nil
}

func openRedis(ctx context.Context, cfg config.Chat, cleanup *closers) (
	database.RedisRepository[memberdomain.MemberSession],
	database.RedisRepository[memberdomain.Profile],
	error,
) {
	masterName, sentinels := config.GetRedisSetting()
	if cfg.Redis.Addr == "" && len(sentinels) == 0 {
		if config.IsProduction() {
			return nil, nil, errprocess.Set("redis.addr or REDIS_SENTINEL*_IP is required in production")
		}
		logger.Log.Warn("no redis configured, sessions are kept in memory")
		return database.NewMemoryRepository[memberdomain.MemberSession](),
			database.NewMemoryRepository[memberdomain.Profile](), nil
	}

	client, err := database.NewRedisClient(ctx, database.RedisConnection{
		Addr:          cfg.Redis.Addr,
		MasterName:    masterName,
		SentinelAddrs: sentinels,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.RedisDB,
	})
	if err != nil {
		return nil, nil, errprocess.Wrap("connect redis", err)
	}
	cleanup.add(func(context.Context) { _ = client.Close() })

	return database.NewRedisRepository[memberdomain.MemberSession](client, "chat:session:"),
		database.NewRedisRepository[memberdomain.Profile](client, "chat:profile:"), nil
}

// openEventPublisher kafka is optional, the relay keeps working without it
func openEventPublisher(ctx context.Context, cfg config.Chat, cleanup *closers) repository.MessageEventPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Log.Info("kafka disabled, message.created events are not published")
		return repository.NewNoopMessagePublisher()
	}

	writer, err := database.NewKafkaWriterWithRetry(ctx, database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
	})
	if err != nil {
		logger.Log.Error("kafka unavailable, message.created events are not published", zap.Error(err))
		return repository.NewNoopMessagePublisher()
	}

	pub := repository.NewKafkaMessagePublisher(writer)
	cleanup.add(func(context.Context) {
		if err := pub.Close(); err != nil {
			logger.Log.Warn("close kafka writer", zap.Error(err))
		}
	})
	return pub
}
