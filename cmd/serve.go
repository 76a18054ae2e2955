package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/jobsignal/internal/actions"
	"github.com/jobsignal/internal/api"
	"github.com/jobsignal/internal/config"
	"github.com/jobsignal/internal/database"
	"github.com/jobsignal/internal/jobqueue"
	"github.com/jobsignal/internal/logging"
	"github.com/jobsignal/internal/store"
)

// ServeCommand starts the API server and the background queue workers.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the API server and queue workers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overriding the configuration",
			},
			&cli.BoolFlag{
				Name:  "no-queue",
				Usage: "Run without background queue workers",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.General.LogLevel, true)

	db, err := database.NewDB(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	s := store.NewPostgresStore(db)

	orchestrator, companyProc := buildPipeline(cfg, s)

	var queue api.SignalQueue
	if !c.Bool("no-queue") {
		ctx := context.Background()
		pool, err := database.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		queueCfg := jobqueue.DefaultQueueConfig()
		if cfg.Queue.Workers > 0 {
			queueCfg.MaxWorkers = cfg.Queue.Workers
		}
		if cfg.Queue.MaxRetries > 0 {
			queueCfg.MaxRetries = cfg.Queue.MaxRetries
		}

		jq, err := jobqueue.NewJobQueue(pool, s, orchestrator, companyProc, queueCfg)
		if err != nil {
			return err
		}
		if err := jq.Start(ctx); err != nil {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		defer jq.Stop(ctx)
		queue = jq
		log.Info().Int("workers", queueCfg.MaxWorkers).Msg("queue workers started")
	}

	addr := cfg.Server.Addr
	if v := c.String("addr"); v != "" {
		addr = v
	}
	log.Info().Str("addr", addr).Msg("starting API server")

	server := api.NewServer(addr, s, orchestrator, actions.NewExecutor(s), queue)
	return server.Start()
}
