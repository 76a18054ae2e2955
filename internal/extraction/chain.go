package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jobsignal/internal/aiconnectors"
	"github.com/jobsignal/internal/llm"
	"github.com/jobsignal/pkg/models"
)

const defaultAttemptTimeout = 45 * time.Second

// ChainRequest describes one extraction pass over the provider chain.
type ChainRequest struct {
	OperationType string
	SignalID      string
	Providers     []string
	Prompt        string
	ModelConfig   aiconnectors.ModelConfig
	Timeout       time.Duration
	// Accept decides whether a parsed response is good enough to stop the
	// chain. A nil Accept accepts any parseable response.
	Accept func(parsed map[string]interface{}) bool
}

// ChainResult is the outcome of a chain run. On success Data holds the parsed
// response and LogID points at the audit row of the winning attempt.
type ChainResult struct {
	Success  bool
	Data     map[string]interface{}
	Raw      string
	Provider string
	Model    string
	Latency  time.Duration
	LogID    string
	Err      string
}

// ChainRunner walks an ordered provider list until one produces an acceptable
// response. Unavailable providers are skipped, never retried in place; a
// provider that errors, rate-limits, or returns an unacceptable response
// simply yields to the next one. Every attempt is audit-logged.
type ChainRunner struct {
	registry *aiconnectors.Registry
	audit    AuditLogger
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewChainRunner(registry *aiconnectors.Registry, audit AuditLogger) *ChainRunner {
	return &ChainRunner{
		registry: registry,
		audit:    audit,
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Second),
		burst:    3,
	}
}

// limiterFor is called from concurrent chain runs; one runner is shared by
// every processor and queue worker.
func (cr *ChainRunner) limiterFor(provider string) *rate.Limiter {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	lim, ok := cr.limiters[provider]
	if !ok {
		lim = rate.NewLimiter(cr.limit, cr.burst)
		cr.limiters[provider] = lim
	}
	return lim
}

// MinConfidence builds an acceptance predicate that passes when the parsed
// response carries no confidence field at all, or a confidence at or above
// the threshold.
func MinConfidence(threshold float64) func(map[string]interface{}) bool {
	return func(parsed map[string]interface{}) bool {
		conf, ok := llm.Confidence(parsed)
		if !ok {
			return true
		}
		return conf >= threshold
	}
}

// Run walks the chain. It returns a failed ChainResult when no provider
// produced an acceptable result.
func (cr *ChainRunner) Run(ctx context.Context, req ChainRequest) ChainResult {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}

	for _, name := range req.Providers {
		extractor, ok := cr.registry.Resolve(ctx, name)
		if !ok {
			log.Debug().Str("provider", name).Msg("provider unavailable, skipping")
			continue
		}
		if !extractor.Available() {
			log.Debug().Str("provider", name).Msg("provider not ready, skipping")
			continue
		}

		if err := cr.limiterFor(name).Wait(ctx); err != nil {
			return ChainResult{Err: err.Error()}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		run := extractor.Run(attemptCtx, req.Prompt, req.ModelConfig)
		cancel()
		latency := time.Since(start)

		entry := &models.ExtractionLog{
			OperationType: req.OperationType,
			SignalID:      req.SignalID,
			Provider:      name,
			Model:         run.Model,
			LatencyMS:     latency.Milliseconds(),
			PromptTokens:  run.PromptTokens,
			OutputTokens:  run.CompletionTokens,
		}

		if run.Err != nil {
			entry.Outcome = models.ExtractionOutcomeError
			if run.RateLimited {
				entry.Outcome = models.ExtractionOutcomeRateLimited
			}
			msg := run.Err.Error()
			entry.Error = &msg
			cr.audit.LogAttempt(ctx, entry)
			log.Debug().
				Str("provider", name).
				Bool("rate_limited", run.RateLimited).
				Err(run.Err).
				Msg("provider attempt failed, moving to next")
			continue
		}

		parsed := llm.ParseResponse(run.Content)
		if parsed == nil {
			entry.Outcome = models.ExtractionOutcomeMalformed
			cr.audit.LogAttempt(ctx, entry)
			log.Debug().Str("provider", name).Msg("unparseable response, moving to next")
			continue
		}

		if conf, ok := llm.Confidence(parsed); ok {
			entry.Confidence = &conf
		}
		entry.Fields = llm.FieldNames(parsed)

		if req.Accept != nil && !req.Accept(parsed) {
			entry.Outcome = models.ExtractionOutcomeLowConfidence
			cr.audit.LogAttempt(ctx, entry)
			log.Debug().Str("provider", name).Msg("response below acceptance bar, moving to next")
			continue
		}

		entry.Outcome = models.ExtractionOutcomeSuccess
		logID := cr.audit.LogAttempt(ctx, entry)

		return ChainResult{
			Success:  true,
			Data:     parsed,
			Raw:      run.Content,
			Provider: name,
			Model:    run.Model,
			Latency:  latency,
			LogID:    logID,
		}
	}

	return ChainResult{Err: "no provider produced an acceptable result"}
}
