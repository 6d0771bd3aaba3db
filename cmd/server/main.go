package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	httpAdapter "github.com/malakchat/chatapp/internal/adapters/in/http"
	"github.com/malakchat/chatapp/internal/adapters/in/ws"
	"github.com/malakchat/chatapp/internal/adapters/out/mq"
	mysqlRepo "github.com/malakchat/chatapp/internal/adapters/out/mysql"
	redisRepo "github.com/malakchat/chatapp/internal/adapters/out/redis"
	"github.com/malakchat/chatapp/internal/application/auth"
	"github.com/malakchat/chatapp/internal/application/friend"
	"github.com/malakchat/chatapp/internal/application/message"
	"github.com/malakchat/chatapp/internal/application/notify"
	"github.com/malakchat/chatapp/internal/application/presence"
	"github.com/malakchat/chatapp/internal/application/typing"
	"github.com/malakchat/chatapp/internal/ports/out"
	"github.com/malakchat/chatapp/pkg/jwt"
	"github.com/malakchat/chatapp/pkg/zlog"
)

func main() {
	// 加载配置
	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	var logCfg zlog.Config
	if err := viper.UnmarshalKey("log", &logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "加载日志配置失败: %v\n", err)
		os.Exit(1)
	}
	logCfg.Service = "chatapp"
	zlog.MustInitGlobal(logCfg)
	defer zlog.Sync()
	zlog.RegisterMetrics(prometheus.DefaultRegisterer)

	logger := zap.L()
	logger.Info("chatapp starting")

	// 初始化数据库
	database, err := initDB()
	if err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}

	// 初始化Redis
	redisClient, err := initRedis()
	if err != nil {
		logger.Fatal("Failed to init redis", zap.Error(err))
	}

	// 初始化Kafka发布器，不配置 broker 时关闭事件外发
	var eventPub out.EventPublisher
	if brokers := viper.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		kafkaPub, err := mq.NewKafkaEventPublisher(brokers)
		if err != nil {
			logger.Fatal("Failed to init kafka publisher", zap.Error(err))
		}
		defer kafkaPub.Close()
		eventPub = kafkaPub
	}

	// 初始化仓储层
	userRepo := mysqlRepo.NewUserRepositoryMySQL(database)
	friendshipRepo := mysqlRepo.NewFriendshipRepositoryMySQL(database)
	requestRepo := mysqlRepo.NewFriendRequestRepositoryMySQL(database)
	messageRepo := mysqlRepo.NewMessageRepositoryMySQL(database)
	tokenRepo := redisRepo.NewAccessTokenRepoRedis(redisClient)

	// 初始化应用层
	hub := ws.NewHub()
	registry := presence.NewRegistry()
	fanout := notify.NewFanout(friendshipRepo, registry, hub)

	jwtMgr := jwt.NewManager(viper.GetString("jwt.secret"))
	tokenTTL := viper.GetDuration("jwt.ttl")
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	authUC := auth.NewUseCase(userRepo, tokenRepo, jwtMgr, tokenTTL)
	friendUC := friend.NewUseCase(requestRepo, friendshipRepo, userRepo, eventPub, fanout)
	presenceUC := presence.NewUseCase(registry, fanout)
	messageUC := message.NewUseCase(messageRepo, userRepo, fanout)

	tracker := typing.NewTracker(typing.DefaultTTL, typing.DefaultSweepPeriod, fanout)
	tracker.Start()
	defer tracker.Stop()

	// 过期 REJECTED 申请的周期清理
	cleanupJob := friend.NewCleanupJob(
		friendUC,
		viper.GetDuration("cleanup.period"),
		viper.GetInt("cleanup.rejected_max_age_days"),
	)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	// 初始化WebSocket接入层
	wsServer := ws.NewServer(hub, authUC, presenceUC, tracker, messageUC)

	// 初始化HTTP服务器
	if viper.GetString("server.mode") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(zlog.GinLogger(), gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Any("/log/level", gin.WrapF(zlog.LevelHTTPHandler()))
	router.GET("/ws", func(c *gin.Context) {
		wsServer.HandleConnection(c.Writer, c.Request)
	})

	apiGroup := router.Group("/api/v1")
	httpAdapter.NewAuthController(authUC).RegisterRoutes(apiGroup)

	authed := apiGroup.Group("")
	authed.Use(httpAdapter.AuthMiddleware(authUC))
	httpAdapter.NewFriendController(friendUC).RegisterRoutes(authed)
	httpAdapter.NewStatusController(presenceUC, tracker).RegisterRoutes(authed)
	httpAdapter.NewMessageController(messageUC).RegisterRoutes(authed)

	httpPort := viper.GetInt("server.http_port")
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", httpPort),
		Handler: router,
	}
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", httpPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func loadConfig() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	return nil
}

func initDB() (*gorm.DB, error) {
	dsn := viper.GetString("mysql.dsn")

	// TranslateError 让唯一键冲突以 gorm.ErrDuplicatedKey 暴露，
	// 应用层依赖它区分 Conflict 与内部错误
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if viper.GetBool("mysql.auto_migrate") {
		if err := db.AutoMigrate(
			&mysqlRepo.UserModel{},
			&mysqlRepo.FriendshipModel{},
			&mysqlRepo.FriendRequestModel{},
			&mysqlRepo.MessageModel{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(viper.GetInt("mysql.max_idle_conns"))
	sqlDB.SetMaxOpenConns(viper.GetInt("mysql.max_open_conns"))
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis() (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
		PoolSize: viper.GetInt("redis.pool_size"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return client, nil
}
