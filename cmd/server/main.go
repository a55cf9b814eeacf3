// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-research-go/internal/config"
	"ai-research-go/internal/handler"
	"ai-research-go/internal/middleware"
	"ai-research-go/internal/model"
	"ai-research-go/internal/pipeline"
	"ai-research-go/internal/repository"
	"ai-research-go/internal/service"
	"ai-research-go/pkg/database"
	"ai-research-go/pkg/embedding"
	"ai-research-go/pkg/kafka"
	"ai-research-go/pkg/llm"
	"ai-research-go/pkg/log"
	"ai-research-go/pkg/storage"
	"ai-research-go/pkg/tika"
	"ai-research-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// minioObjectStore 把全局 MinIO 客户端适配成管道需要的只读对象来源。
type minioObjectStore struct {
	bucketName string
}

func (s minioObjectStore) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	return storage.GetObject(ctx, s.bucketName, objectName)
}

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储与 Kafka 生产者
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Document{},
		&model.DocumentChunk{},
		&model.ChatMessage{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	projectRepository := repository.NewProjectRepository(database.DB)
	documentRepository := repository.NewDocumentRepository(database.DB)
	chatRepository := repository.NewChatRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	userService := service.NewUserService(userRepository, jwtManager)
	projectService := service.NewProjectService(projectRepository)
	documentService := service.NewDocumentService(documentRepository, cfg.MinIO)
	chatService := service.NewChatService(documentRepository, chatRepository, projectRepository, embeddingClient, llmClient, cfg.RAG)

	// 6. 初始化摄取管道 (Processor)
	// 消费者在独立的 goroutine 中运行，给它一个独立的数据库会话
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		minioObjectStore{bucketName: cfg.MinIO.BucketName},
		repository.NewDocumentRepository(database.NewSession()),
		cfg.RAG,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 9. 注册路由
	userHandler := handler.NewUserHandler(userService)
	authHandler := handler.NewAuthHandler(userService)
	projectHandler := handler.NewProjectHandler(projectService)
	documentHandler := handler.NewDocumentHandler(documentService, projectService)
	chatHandler := handler.NewChatHandler(chatService, projectService, userService, jwtManager)

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", authHandler.RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", userHandler.GetProfile)
				authed.POST("/logout", userHandler.Logout)
			}
		}

		// Project 路由组，需要认证；文档与问答都挂在项目之下
		projects := apiV1.Group("/projects")
		projects.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)

			projects.POST("/:id/documents/upload", documentHandler.Upload)
			projects.POST("/:id/documents/url", documentHandler.IngestURL)
			projects.GET("/:id/documents", documentHandler.ListDocuments)
			projects.GET("/:id/documents/:docId/text", documentHandler.GetDocumentText)

			projects.POST("/:id/chat", chatHandler.Chat)
			projects.GET("/:id/chat", chatHandler.GetHistory)
		}
	}

	// Chat 路由 (WebSocket)，token 走路径参数
	r.GET("/chat/:token", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个阻塞循环，进程退出时随之结束
	log.Info("服务已优雅关闭")
}
