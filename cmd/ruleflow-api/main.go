package main

import (
	"context"
	"net/http"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/ruleflow-io/ruleflow/pkg/auth"
	"github.com/ruleflow-io/ruleflow/pkg/cmd"
	"github.com/ruleflow-io/ruleflow/pkg/executor"
	"github.com/ruleflow-io/ruleflow/pkg/invoker"
	"github.com/ruleflow-io/ruleflow/pkg/log"
	"github.com/ruleflow-io/ruleflow/pkg/otelhelper"
	"github.com/ruleflow-io/ruleflow/pkg/scheduler"
)

const defaultPort = 9090

func main() {
	command := &cli.Command{
		Name:                  "ruleflow-api",
		Usage:                 "Create, manage and execute policies",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the shared token cache (empty for in-process cache)",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password for the shared token cache",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number for the shared token cache",
				Sources: cli.EnvVars("REDIS_DB"),
			},
			&cli.BoolFlag{
				Name:    "disable-scheduler",
				Usage:   "Do not host the policy scheduler in this process",
				Sources: cli.EnvVars("DISABLE_SCHEDULER"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing RuleFlow API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tokenCache, err := cmd.NewTokenCache(ctx, logger,
				command.String("redis-addr"),
				command.String("redis-password"),
				int(command.Int("redis-db")),
			)
			if err != nil {
				return err
			}

			httpClient := &http.Client{Timeout: 100 * time.Second}
			tokens := auth.NewTokenService(persistence.AuthenticationSettings(), tokenCache, httpClient, logger)
			inv := invoker.NewInvoker(httpClient, tokens, logger)
			exec := executor.NewExecutor(persistence, inv, tokens, logger).WithEventBus(eventBus)

			if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
				tracer, err := otelhelper.NewTracer(ctx, "ruleflow-api")
				if err != nil {
					return err
				}

				exec.WithTracer(tracer)
			}

			var sched *scheduler.Scheduler

			if !command.Bool("disable-scheduler") {
				sched = scheduler.NewScheduler(persistence.Schedules(), exec, log.WithModule("scheduler")).
					WithEventBus(eventBus)

				go sched.Run(ctx)

				defer sched.Shutdown()
			}

			api := NewAPI(
				logger,
				persistence,
				exec,
				sched,
				eventBus,
			)

			if err := api.Start(int(command.Int("port"))); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
