// Package jobqueue runs the signal-processing pipeline on a River-backed
// Postgres job queue. Delivery is at-least-once; the pipeline's idempotency
// checks make redelivery harmless.
package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/extraction"
	"github.com/jobsignal/internal/pipeline"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// SignalProcessArgs are the arguments for one signal-processing job.
type SignalProcessArgs struct {
	SignalID string `json:"signal_id"`
	UserID   string `json:"user_id"`
}

// Kind returns the job kind for River.
func (SignalProcessArgs) Kind() string {
	return "signal_process"
}

// SignalProcessWorker loads the signal and runs it through the orchestrator,
// then gives the company-feedback processor a pass over the signal's
// generic extracted data.
type SignalProcessWorker struct {
	river.WorkerDefaults[SignalProcessArgs]
	store        store.Store
	orchestrator *pipeline.Orchestrator
	companyProc  *extraction.CompanyFeedbackProcessor
	config       *QueueConfig
}

func (w *SignalProcessWorker) Work(ctx context.Context, job *river.Job[SignalProcessArgs]) error {
	ctx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	signal, err := w.store.GetSignal(ctx, job.Args.SignalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A deleted signal is not worth retrying.
			log.Warn().Str("signal_id", job.Args.SignalID).Msg("signal vanished before processing")
			return river.JobCancel(err)
		}
		return fmt.Errorf("load signal %s: %w", job.Args.SignalID, err)
	}

	result := w.orchestrator.Process(ctx, signal)
	if result.Err != "" {
		return fmt.Errorf("process signal %s: %s", signal.ID, result.Err)
	}

	if company := w.companyProc.Process(ctx, signal); company.Err != "" {
		return fmt.Errorf("company feedback for signal %s: %s", signal.ID, company.Err)
	}

	log.Info().
		Str("signal_id", signal.ID).
		Bool("skipped", result.Skipped).
		Str("skip_reason", result.SkipReason).
		Strs("applied", result.Applied).
		Msg("signal processed")
	return nil
}

// JobQueue manages the River client and its workers.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates a queue whose workers run the given pipeline.
func NewJobQueue(pool *pgxpool.Pool, s store.Store, orchestrator *pipeline.Orchestrator, companyProc *extraction.CompanyFeedbackProcessor, config *QueueConfig) (*JobQueue, error) {
	if config == nil {
		config = DefaultQueueConfig()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &SignalProcessWorker{
		store:        s,
		orchestrator: orchestrator,
		companyProc:  companyProc,
		config:       config,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{client: client, pool: pool, config: config}, nil
}

// Start starts the queue workers.
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the queue workers, letting in-flight jobs finish.
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// EnqueueSignal queues a signal for processing.
func (jq *JobQueue) EnqueueSignal(ctx context.Context, signal *models.Signal) error {
	_, err := jq.client.Insert(ctx, SignalProcessArgs{
		SignalID: signal.ID,
		UserID:   signal.UserID,
	}, &river.InsertOpts{
		MaxAttempts: jq.config.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to queue signal job: %w", err)
	}
	return nil
}
