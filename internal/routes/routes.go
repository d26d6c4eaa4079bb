package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pkonline/internal/controllers"
	"pkonline/internal/repositories"
	"pkonline/internal/services"
	"pkonline/pkg/clock"
	"pkonline/pkg/config"
	"pkonline/pkg/filestorage"
	"pkonline/pkg/middleware"
	"pkonline/pkg/service"
)

// InitRouter собирает весь граф зависимостей и навешивает маршруты.
func InitRouter(
	e *echo.Echo,
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	jwtSvc service.JWTService,
	clk clock.Clock,
	logger *zap.Logger,
	cfg *config.Config,
) (services.QueueServiceInterface, error) {
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)

	fileStorage, err := filestorage.NewLocalFileStorage("uploads")
	if err != nil {
		return nil, err
	}

	// Репозитории
	appRepo := repositories.NewApplicationRepository(dbConn)
	employeeRepo := repositories.NewEmployeeRepository(dbConn)
	workTimeRepo := repositories.NewWorkTimeRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// Сервисы
	notifier := services.NewLogNotifier(logger)
	queueService := services.NewQueueService(appRepo, workTimeRepo, employeeRepo, dbConn, notifier, clk, &cfg.Queue, logger)
	workTimeService := services.NewWorkTimeService(workTimeRepo, dbConn, clk, logger)
	authService := services.NewAuthService(employeeRepo, jwtSvc, logger)
	employeeService := services.NewEmployeeService(employeeRepo, logger)
	importService := services.NewImportService(appRepo, clk, logger)
	dashboardService := services.NewDashboardService(appRepo, cacheRepo, logger)

	// Контроллеры
	authController := controllers.NewAuthController(authService, logger)
	queueController := controllers.NewQueueController(queueService, dashboardService, logger)
	workTimeController := controllers.NewWorkTimeController(workTimeService, clk, logger)
	employeeController := controllers.NewEmployeeController(employeeService, logger)
	dashboardController := controllers.NewDashboardController(dashboardService, logger)
	importController := controllers.NewImportController(importService, dashboardService, fileStorage, logger)

	// Открытые маршруты
	api.POST("/auth/login", authController.Login)
	api.POST("/auth/refresh", authController.Refresh)

	secure := api.Group("", authMW.Auth)

	// Очередь заявлений
	applications := secure.Group("/applications")
	applications.POST("", queueController.Create)
	applications.GET("/search", queueController.Search)
	applications.GET("/:id", queueController.Find)
	applications.POST("/claim/:queue_type", queueController.ClaimNext)
	applications.POST("/:id/decision", queueController.Decide)
	applications.POST("/:id/return", queueController.ReturnToQueue)
	applications.POST("/:id/postpone", queueController.Postpone)
	applications.POST("/:id/escalate", queueController.Escalate)
	applications.PUT("/:id/queue-type", queueController.UpdateQueueType)
	applications.POST("/:id/resolve", queueController.ResolveProblem)
	applications.GET("/problems/:queue_type", queueController.ProblemApplications)
	applications.GET("/overdue-mail", queueController.OverdueMail)
	applications.POST("/cleanup", queueController.CleanupExpired, authMW.AdminOnly)

	// Импорт выгрузок
	secure.POST("/import/:queue_type", importController.ImportApplications, authMW.AdminOnly)

	// Рабочее время
	workday := secure.Group("/workday")
	workday.POST("/start", workTimeController.StartDay)
	workday.POST("/pause", workTimeController.PauseDay)
	workday.POST("/resume", workTimeController.ResumeDay)
	workday.POST("/finish", workTimeController.FinishDay)
	workday.GET("/current", workTimeController.CurrentDay)
	workday.GET("/history", workTimeController.History)
	workday.GET("/report", workTimeController.FleetReport, authMW.AdminOnly)

	// Сотрудники (только администратор)
	employees := secure.Group("/employees", authMW.AdminOnly)
	employees.POST("", employeeController.Create)
	employees.GET("", employeeController.List)
	employees.GET("/:id", employeeController.Find)
	employees.DELETE("/:id", employeeController.Delete)
	employees.POST("/:id/groups", employeeController.AddGroup)
	employees.DELETE("/:id/groups", employeeController.RemoveGroup)

	// Панель
	secure.GET("/dashboard/queues", dashboardController.QueueStatistics)

	return queueService, nil
}
