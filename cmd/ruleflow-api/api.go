// Package main provides the RuleFlow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/ruleflow-io/ruleflow/pkg/eventbus"
	"github.com/ruleflow-io/ruleflow/pkg/executor"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
	"github.com/ruleflow-io/ruleflow/pkg/scheduler"
	"github.com/ruleflow-io/ruleflow/pkg/services"
	"github.com/ruleflow-io/ruleflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	executor    *executor.Executor
	scheduler   *scheduler.Scheduler
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	exec *executor.Executor,
	sched *scheduler.Scheduler,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		executor:    exec,
		scheduler:   sched,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	policyService := services.NewPolicy(a.persistence)
	ruleService := services.NewRule(a.persistence)
	scheduleService := services.NewSchedule(a.persistence)
	catalogService := services.NewCatalog(a.persistence)
	authSettingService := services.NewAuthSetting(a.persistence)

	handlers := web.NewAPIHandlers(
		policyService,
		ruleService,
		scheduleService,
		catalogService,
		authSettingService,
		a.executor,
		a.scheduler,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("RuleFlow API")
	})

	p := app.Group("/policies")
	p.Get("/", handlers.GetPolicies)
	p.Post("/", handlers.CreatePolicy)
	p.Get("/:id", handlers.GetPolicy)
	p.Put("/:id", handlers.UpdatePolicy)
	p.Delete("/:id", handlers.DeletePolicy)
	p.Post("/:id/execute", handlers.ExecutePolicy)
	p.Get("/:id/logs", handlers.GetPolicyLogs)
	p.Get("/:id/rules", handlers.GetPolicyRules)

	r := app.Group("/rules")
	r.Post("/", handlers.CreateRule)
	r.Get("/:id", handlers.GetRule)
	r.Put("/:id", handlers.UpdateRule)
	r.Delete("/:id", handlers.DeleteRule)

	s := app.Group("/schedules")
	s.Get("/", handlers.GetSchedules)
	s.Post("/", handlers.CreateSchedule)
	s.Get("/:id", handlers.GetSchedule)
	s.Put("/:id", handlers.UpdateSchedule)
	s.Delete("/:id", handlers.DeleteSchedule)

	app.Post("/scheduler/start", handlers.StartScheduler)
	app.Post("/scheduler/stop", handlers.StopScheduler)
	app.Get("/scheduler/status", handlers.SchedulerStatus)

	as := app.Group("/authentication-settings")
	as.Get("/", handlers.GetAuthSettings)
	as.Post("/", handlers.CreateAuthSetting)
	as.Get("/:id", handlers.GetAuthSetting)
	as.Put("/:id", handlers.UpdateAuthSetting)
	as.Delete("/:id", handlers.DeleteAuthSetting)

	ss := app.Group("/swagger-sources")
	ss.Get("/", handlers.GetSwaggerSources)
	ss.Post("/", handlers.CreateSwaggerSource)
	ss.Get("/:id", handlers.GetSwaggerSource)
	ss.Put("/:id", handlers.UpdateSwaggerSource)
	ss.Delete("/:id", handlers.DeleteSwaggerSource)

	ad := app.Group("/api-definitions")
	ad.Get("/", handlers.GetApiDefinitions)
	ad.Post("/", handlers.CreateApiDefinition)
	ad.Get("/:id", handlers.GetApiDefinition)
	ad.Put("/:id", handlers.UpdateApiDefinition)
	ad.Delete("/:id", handlers.DeleteApiDefinition)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
