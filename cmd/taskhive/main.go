package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskhive/taskhive/internal/bot"
	"github.com/taskhive/taskhive/internal/cache"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/database"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/monitoring"
	"github.com/taskhive/taskhive/internal/notify"
	"github.com/taskhive/taskhive/internal/realtime"
	"github.com/taskhive/taskhive/internal/routes"
	"github.com/taskhive/taskhive/internal/services"
	"github.com/taskhive/taskhive/internal/worker"

	"gorm.io/gorm"
)

// logMessenger stands in for a chat transport. Deployments embed the
// bot router behind their platform's gateway and replace this with a
// client that actually delivers messages.
type logMessenger struct{}

func (logMessenger) Send(channelID, text string) error {
	log.Printf("[chat:%s] %s", channelID, text)
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.GetRedisAddr())
	if err := redisCache.Health(); err != nil {
		log.Printf("Redis unavailable, running with in-memory cache only: %v", err)
		redisCache = nil
	}
	multiCache := cache.NewMultiLevelCache(redisCache)
	defer multiCache.Close()

	hub := realtime.NewHub()
	messenger := logMessenger{}

	tasksBase := services.NewTaskService(nil)
	dispatcher := notify.NewDispatcher(db, tasksBase, messenger, hub)

	taskService := services.NewCachedTaskService(services.NewTaskService(dispatcher), multiCache)
	timerService := services.NewTimerService(dispatcher)
	userService := services.NewUserService(cfg.Bot.DefaultTimezone)
	projectService := services.NewProjectService()
	authService := services.NewAuthService(cfg.Auth)

	botRouter := bot.NewRouter(cfg.Bot, cfg.Features, bot.RouterDeps{
		DB:        db,
		Users:     userService,
		Projects:  projectService,
		Tasks:     taskService,
		Timers:    timerService,
		Messenger: messenger,
	})

	monitor := monitoring.NewMonitor()
	monitor.RegisterCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisCache != nil {
		monitor.RegisterCheck("redis", func(ctx context.Context) error {
			return redisCache.Client().Ping(ctx).Err()
		})
	}
	monitor.RegisterStat("websocket_connections", func() interface{} {
		return hub.TotalConnections()
	})

	var jobWorker *worker.Worker
	var scheduler *worker.Scheduler
	if redisCache != nil {
		queue := worker.NewJobQueue(redisCache.Client())
		jobWorker = worker.NewWorker(worker.WorkerConfig{
			RedisClient: redisCache.Client(),
			Queues:      cfg.Worker.Queues,
		})
		handlers := &worker.Handlers{
			DB:              db,
			Tasks:           taskService,
			Timers:          timerService,
			Dispatcher:      dispatcher,
			StaleTimerAfter: cfg.Bot.StaleTimerAfter,
		}
		handlers.Register(jobWorker)
		jobWorker.Start(cfg.Worker.Concurrency)

		scheduler = worker.NewScheduler(queue, cfg.Bot.SummaryMorning, cfg.Bot.SummaryEvening)
		scheduler.Start()

		monitor.RegisterStat("queue_default", queueSizeStat(queue, worker.QueueDefault))
		monitor.RegisterStat("queue_notifications", queueSizeStat(queue, worker.QueueNotifications))
		monitor.RegisterStat("queue_maintenance", queueSizeStat(queue, worker.QueueMaintenance))
	} else {
		log.Println("Background worker disabled without Redis")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerMin)/60.0, cfg.RateLimit.BurstSize)
	}

	router := routes.Setup(routes.Deps{
		DB:       db,
		Config:   cfg,
		Auth:     authService,
		Users:    userService,
		Projects: projectService,
		Tasks:    taskService,
		Timers:   timerService,
		Bot:      botRouter,
		Hub:      hub,
		Monitor:  monitor,
		Limiter:  limiter,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}
	if limiter != nil {
		limiter.Close()
	}
	closeDB(db)
	log.Println("Shutdown complete")
}

func queueSizeStat(queue *worker.JobQueue, name string) monitoring.StatFunc {
	return func() interface{} {
		size, err := queue.GetQueueSize(name)
		if err != nil {
			return -1
		}
		return size
	}
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
