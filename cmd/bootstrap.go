// Package cmd holds the CLI commands.
package cmd

import (
	"github.com/jobsignal/internal/aiconnectors"
	"github.com/jobsignal/internal/config"
	"github.com/jobsignal/internal/extraction"
	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/pipeline"
	"github.com/jobsignal/internal/store"
)

// buildPipeline wires the orchestrator and its processors over a store.
func buildPipeline(cfg *config.Config, s store.Store) (*pipeline.Orchestrator, *extraction.CompanyFeedbackProcessor) {
	registry := aiconnectors.NewRegistry(cfg.ConnectorOptions())
	chain := extraction.NewChainRunner(registry, extraction.NewStoreAuditLogger(s))
	reporter := notify.NewLogReporter()
	providers := cfg.General.ProviderChain

	orchestrator := pipeline.NewOrchestrator(
		s,
		pipeline.NewApplier(s, reporter),
		reporter,
		extraction.NewRoundProcessor(s, chain, reporter, providers, cfg.Thresholds.Round),
		extraction.NewFeedbackProcessor(s, chain, reporter, providers, cfg.Thresholds.Feedback),
		extraction.NewStatusProcessor(s, chain, reporter, providers, cfg.Thresholds.Status),
	)
	return orchestrator, extraction.NewCompanyFeedbackProcessor(s)
}
