package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jobsignal/internal/config"
	"github.com/jobsignal/internal/database"
	"github.com/jobsignal/internal/logging"
	"github.com/jobsignal/internal/store"
)

// ProcessCommand runs the pipeline synchronously for a single signal and
// prints the composite result. Useful for debugging extraction behavior.
func ProcessCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Process one signal through the pipeline",
		ArgsUsage: "SIGNAL_ID",
		Action:    runProcess,
	}
}

func runProcess(c *cli.Context) error {
	signalID := c.Args().First()
	if signalID == "" {
		return fmt.Errorf("signal id is required")
	}

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

	ctx := context.Background()
	signal, err := s.GetSignal(ctx, signalID)
	if err != nil {
		return fmt.Errorf("load signal %s: %w", signalID, err)
	}

	orchestrator, companyProc := buildPipeline(cfg, s)
	result := orchestrator.Process(ctx, signal)

	if company := companyProc.Process(ctx, signal); company.Err != "" {
		fmt.Fprintf(os.Stderr, "company feedback pass failed: %s\n", company.Err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if result.Err != "" {
		return fmt.Errorf("processing failed: %s", result.Err)
	}
	return nil
}
