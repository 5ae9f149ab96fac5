package routes

import (
	"time"

	"github.com/taskhive/taskhive/internal/bot"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/monitoring"
	"github.com/taskhive/taskhive/internal/realtime"
	"github.com/taskhive/taskhive/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP layer needs. Services are built
// once in main and shared with the bot and the worker.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Auth     services.AuthService
	Users    services.UserService
	Projects services.ProjectService
	Tasks    services.TaskService
	Timers   services.TimerService
	Bot      *bot.Router
	Hub      *realtime.Hub
	Monitor  *monitoring.Monitor
	Limiter  *middleware.RateLimiter
}

func Setup(deps Deps) *gin.Engine {
	if deps.Config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	if deps.Monitor != nil {
		router.Use(deps.Monitor.Middleware())
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	if deps.Limiter != nil {
		router.Use(deps.Limiter.Middleware())
	}

	if deps.Monitor != nil {
		router.GET("/health", deps.Monitor.HealthHandler())
		router.GET("/health/live", deps.Monitor.LivenessHandler())
		router.GET("/metrics", deps.Monitor.MetricsHandler())
	}

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Auth)
	registerHandler := handlers.NewRegisterHandler(deps.DB, deps.Auth)
	refreshHandler := handlers.NewRefreshHandler(deps.DB, deps.Auth)
	logoutHandler := handlers.NewLogoutHandler(deps.DB, deps.Auth)
	userHandler := handlers.NewUserHandler(deps.DB, deps.Users)
	projectHandler := handlers.NewProjectHandler(deps.DB, deps.Projects)
	taskHandler := handlers.NewTaskHandler(deps.DB, deps.Tasks)
	timerHandler := handlers.NewTimerHandler(deps.DB, deps.Timers)

	api := router.Group("/api")
	{
		api.POST("/register", registerHandler.Registration)
		api.POST("/login", authHandler.Token)
		api.POST("/refresh", refreshHandler.Refresh)
		api.POST("/logout", logoutHandler.Logout)

		if deps.Bot != nil {
			api.POST("/chat/webhook", handlers.ChatWebhook(deps.Bot, deps.Config.Bot.Token))
		}
	}

	protected := api.Group("")
	protected.Use(middleware.Auth(deps.Config.Auth.JWTSecret))
	{
		protected.GET("/me", userHandler.GetProfile)
		protected.PUT("/me/timezone", userHandler.SetTimezone)
		protected.GET("/users", userHandler.SearchUsers)

		protected.POST("/projects", projectHandler.CreateProject)
		protected.GET("/projects", projectHandler.GetProjects)
		protected.GET("/projects/:id", projectHandler.GetProjectByID)
		protected.PUT("/projects/:id", projectHandler.UpdateProject)
		protected.POST("/projects/:id/archive", projectHandler.ArchiveProject)
		protected.POST("/projects/:id/members", projectHandler.AddMember)
		protected.DELETE("/projects/:id/members/:user_id", projectHandler.RemoveMember)
		protected.POST("/projects/:id/fields", projectHandler.AddFieldDef)
		protected.GET("/projects/:id/fields", projectHandler.GetFieldDefs)
		protected.DELETE("/projects/:id/fields/:field_id", projectHandler.RemoveFieldDef)

		protected.POST("/tasks", taskHandler.CreateTask)
		protected.GET("/tasks", taskHandler.GetTasks)
		protected.GET("/tasks/overdue", taskHandler.GetOverdueTasks)
		protected.GET("/tasks/:id", taskHandler.GetTaskByID)
		protected.PUT("/tasks/:id", taskHandler.UpdateTask)
		protected.DELETE("/tasks/:id", taskHandler.DeleteTask)
		protected.POST("/tasks/:id/assign", taskHandler.AssignTask)

		protected.POST("/tasks/:id/timer/start", timerHandler.StartTimer)
		protected.POST("/tasks/:id/timer/stop", timerHandler.StopTimer)
		protected.POST("/tasks/:id/hours", timerHandler.LogHours)
		protected.GET("/timers/active", timerHandler.GetActiveTimers)
		protected.GET("/timers/report", timerHandler.GetTimeReport)
	}

	if deps.Hub != nil {
		router.GET("/ws", middleware.Auth(deps.Config.Auth.JWTSecret), handlers.WebSocket(deps.Hub))
	}

	return router
}
