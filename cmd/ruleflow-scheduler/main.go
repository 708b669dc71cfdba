// Package main provides the standalone RuleFlow scheduler daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/ruleflow-io/ruleflow/pkg/auth"
	"github.com/ruleflow-io/ruleflow/pkg/cmd"
	"github.com/ruleflow-io/ruleflow/pkg/executor"
	"github.com/ruleflow-io/ruleflow/pkg/invoker"
	"github.com/ruleflow-io/ruleflow/pkg/log"
	"github.com/ruleflow-io/ruleflow/pkg/otelhelper"
	"github.com/ruleflow-io/ruleflow/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "ruleflow-scheduler",
		Usage:                 "Run policies from their cron schedules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scheduler-id",
				Aliases: []string{"id"},
				Usage:   "Custom scheduler ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULER_ID"),
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
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			schedulerID := command.String("scheduler-id")
			if schedulerID == "" {
				schedulerID = fmt.Sprintf("scheduler-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("scheduler").With("scheduler_id", schedulerID)

			logger.InfoContext(ctx, "Initializing RuleFlow Scheduler")

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
				tracer, err := otelhelper.NewTracer(ctx, "ruleflow-scheduler")
				if err != nil {
					return err
				}

				exec.WithTracer(tracer)
			}

			sched := scheduler.NewScheduler(persistence.Schedules(), exec, logger).
				WithEventBus(eventBus)

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				sig := <-signals
				logger.Info("Received signal, shutting down gracefully", "signal", sig)
				sched.Shutdown()
			}()

			sched.Run(ctx)

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
