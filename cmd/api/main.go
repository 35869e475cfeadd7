package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/live-api/internal/config"
	"github.com/yourusername/live-api/internal/handler"
	"github.com/yourusername/live-api/internal/middleware"
	pgRepo "github.com/yourusername/live-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/live-api/internal/repository/redis"
	"github.com/yourusername/live-api/internal/service"
	"github.com/yourusername/live-api/internal/service/liveroom"
	ws "github.com/yourusername/live-api/internal/websocket"
	"github.com/yourusername/live-api/pkg/auth"
	"github.com/yourusername/live-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	sessionRepo := pgRepo.NewSessionRepo(db)
	assignmentRepo := pgRepo.NewAssignmentRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs, cfg.JWT.WSTicketExpirySec)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// --- Инициализация WebSocket ---
	var pubSubProvider ws.PubSubProvider = &ws.NoOpPubSub{}

	// Redis PubSub нужен только при работе в несколько инстансов
	if cfg.WebSocket.Cluster.Enabled {
		log.Println("Инициализация Redis PubSub для кластеризации WebSocket...")
		channel := cfg.WebSocket.Cluster.BroadcastChannel
		if channel == "" {
			channel = "live:room:events"
		}
		pubSubProvider = ws.NewRedisPubSub(redisClient, channel)
		log.Println("Redis PubSub провайдер успешно инициализирован")
	}

	wsHub := ws.NewHub(pubSubProvider)
	go wsHub.Run()

	wsManager := ws.NewManager(wsHub)
	// --- Конец инициализации WebSocket ---

	// Операционные оповещения: Resend, если настроен, иначе лог
	var alertService service.AlertService = &service.LogAlertService{}
	if cfg.Alert.ResendAPIKey != "" {
		resendAlerts, errAlert := service.NewResendAlertService(cfg.Alert.ResendAPIKey, cfg.Alert.FromEmail, []string{cfg.Alert.ToEmail})
		if errAlert != nil {
			log.Printf("Ошибка инициализации Resend-оповещений: %v. Используется лог.", errAlert)
		} else {
			alertService = resendAlerts
		}
	}

	// Конфигурация движка живых сессий
	liveCfg := liveroom.DefaultConfig()
	if cfg.Live.CodeLength > 0 {
		liveCfg.CodeLength = cfg.Live.CodeLength
	}
	if cfg.Live.CodeRetries > 0 {
		liveCfg.CodeRetries = cfg.Live.CodeRetries
	}
	if cfg.Live.PenaltyPerWrongMs > 0 {
		liveCfg.PenaltyPerWrongMs = cfg.Live.PenaltyPerWrongMs
	}
	if cfg.Live.ScorePerCorrect > 0 {
		liveCfg.ScorePerCorrect = cfg.Live.ScorePerCorrect
	}
	liveCfg.AllowEmptyStart = cfg.Live.AllowEmptyStart
	if cfg.Live.HostGracePeriodSec > 0 {
		liveCfg.HostGracePeriod = time.Duration(cfg.Live.HostGracePeriodSec) * time.Second
	}
	if cfg.Live.LobbyTTLMin > 0 {
		liveCfg.LobbyTTL = time.Duration(cfg.Live.LobbyTTLMin) * time.Minute
	}

	// Инициализируем сервисы
	liveService := service.NewLiveService(liveCfg, sessionRepo, cacheRepo, wsManager, alertService)
	gateService := service.NewAssignmentGateService(assignmentRepo, sessionRepo)

	// Инициализируем обработчики
	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	liveHandler := handler.NewLiveHandler(liveService, gateService, jwtService)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, liveService, jwtService, allowedOrigins)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам.
		// При деплое за балансировщиком замените nil на его IP.
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		// Живые сессии
		sessions := api.Group("/sessions")
		{
			sessions.POST("",
				authMiddleware.TeacherOnly(),
				rateLimiter.Limit(middleware.SessionCreateRateLimitConfig()),
				liveHandler.CreateSession)
			sessions.GET("", authMiddleware.TeacherOnly(), liveHandler.ListSessions)
			sessions.GET("/:id/summary", liveHandler.GetSummary)
			sessions.DELETE("/:id", authMiddleware.TeacherOnly(), liveHandler.DeleteSession)
			sessions.POST("/:id/attempts", liveHandler.SubmitAttempt)
		}

		// Гейт заданий
		api.GET("/assignments/:id/can-attempt", liveHandler.CanAttempt)

		// Тикет для WebSocket
		api.POST("/ws-ticket",
			rateLimiter.Limit(middleware.TicketRateLimitConfig()),
			liveHandler.GetWSTicket)
	}

	// WebSocket маршрут (аутентификация по тикету внутри обработчика)
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Сначала останавливаем движок: акторы комнат завершаются,
	// незавершенные live-сессии при рестарте не переживают процесс
	liveService.Shutdown()

	wsHub.Close()
	if err := pubSubProvider.Close(); err != nil {
		log.Printf("Error closing PubSub provider: %v", err)
	}

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
