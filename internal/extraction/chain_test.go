package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsignal/internal/aiconnectors"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

func TestChainFirstProviderWins(t *testing.T) {
	first := &fakeExtractor{name: "openai", available: true, result: goodResponse(`{"stage": "technical", "confidence": 0.9}`)}
	second := &fakeExtractor{name: "gemini", available: true, result: goodResponse(`{"stage": "other"}`)}
	chain := newTestChain(NopAuditLogger{}, first, second)

	res := chain.Run(context.Background(), ChainRequest{
		OperationType: OpInterviewRound,
		SignalID:      "sig-1",
		Providers:     []string{"openai", "gemini"},
		Prompt:        "extract",
		Accept:        MinConfidence(0.6),
	})

	require.True(t, res.Success)
	assert.Equal(t, "openai", res.Provider)
	assert.Equal(t, "technical", res.Data["stage"])
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "an accepted result stops the chain")
}

func TestChainFallsThroughOnError(t *testing.T) {
	failing := &fakeExtractor{name: "openai", available: true, result: aiconnectors.RunResult{Err: errors.New("connection reset")}}
	limited := &fakeExtractor{name: "gemini", available: true, result: aiconnectors.RunResult{Err: errors.New("429 too many requests"), RateLimited: true}}
	working := &fakeExtractor{name: "claude", available: true, result: goodResponse(`{"result": "passed", "confidence": 0.8}`)}

	mem := store.NewInMemoryStore()
	chain := newTestChain(NewStoreAuditLogger(mem), failing, limited, working)

	res := chain.Run(context.Background(), ChainRequest{
		OperationType: OpRoundFeedback,
		SignalID:      "sig-2",
		Providers:     []string{"openai", "gemini", "claude"},
		Prompt:        "extract",
		Accept:        MinConfidence(0.5),
	})

	require.True(t, res.Success)
	assert.Equal(t, "claude", res.Provider)

	logs := mem.ExtractionLogs()
	require.Len(t, logs, 3, "every attempt is audited")
	assert.Equal(t, models.ExtractionOutcomeError, logs[0].Outcome)
	assert.Equal(t, models.ExtractionOutcomeRateLimited, logs[1].Outcome)
	assert.Equal(t, models.ExtractionOutcomeSuccess, logs[2].Outcome)
	assert.Equal(t, logs[2].ID, res.LogID)
}

func TestChainSkipsUnavailableProviders(t *testing.T) {
	down := &fakeExtractor{name: "openai", available: false}
	up := &fakeExtractor{name: "gemini", available: true, result: goodResponse(`{"ok": true}`)}
	chain := newTestChain(NopAuditLogger{}, down, up)

	res := chain.Run(context.Background(), ChainRequest{
		Providers: []string{"openai", "unknown", "gemini"},
		Prompt:    "extract",
	})

	require.True(t, res.Success)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, 0, down.calls)
}

func TestChainRejectsLowConfidence(t *testing.T) {
	hesitant := &fakeExtractor{name: "openai", available: true, result: goodResponse(`{"stage": "technical", "confidence": 0.3}`)}
	confident := &fakeExtractor{name: "gemini", available: true, result: goodResponse(`{"stage": "technical", "confidence": 0.95}`)}

	mem := store.NewInMemoryStore()
	chain := newTestChain(NewStoreAuditLogger(mem), hesitant, confident)

	res := chain.Run(context.Background(), ChainRequest{
		Providers: []string{"openai", "gemini"},
		Prompt:    "extract",
		Accept:    MinConfidence(0.6),
	})

	require.True(t, res.Success)
	assert.Equal(t, "gemini", res.Provider)

	logs := mem.ExtractionLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, models.ExtractionOutcomeLowConfidence, logs[0].Outcome)
	require.NotNil(t, logs[0].Confidence)
	assert.InDelta(t, 0.3, *logs[0].Confidence, 0.001)
}

func TestChainAcceptsMissingConfidence(t *testing.T) {
	quiet := &fakeExtractor{name: "openai", available: true, result: goodResponse(`{"stage": "screening"}`)}
	chain := newTestChain(NopAuditLogger{}, quiet)

	res := chain.Run(context.Background(), ChainRequest{
		Providers: []string{"openai"},
		Prompt:    "extract",
		Accept:    MinConfidence(0.9),
	})

	require.True(t, res.Success, "absent confidence is accepted, not rejected")
}

// One ChainRunner is shared by all processors and queue workers, so its
// limiter map must tolerate concurrent runs. Run under -race.
func TestChainConcurrentRuns(t *testing.T) {
	extractors := make([]*fakeExtractor, 8)
	names := make([]string, 8)
	for i := range extractors {
		names[i] = fmt.Sprintf("provider-%d", i)
		extractors[i] = &fakeExtractor{name: names[i], available: true, result: goodResponse(`{"ok": true}`)}
	}
	chain := newTestChain(NopAuditLogger{}, extractors...)

	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(provider string) {
			defer wg.Done()
			res := chain.Run(context.Background(), ChainRequest{
				Providers: []string{provider},
				Prompt:    "extract",
			})
			assert.True(t, res.Success)
		}(names[i])
	}
	wg.Wait()

	for i, e := range extractors {
		assert.Equal(t, 1, e.calls, "provider %d", i)
	}
}

func TestChainExhaustion(t *testing.T) {
	broken := &fakeExtractor{name: "openai", available: true, result: goodResponse("the model rambled with no JSON at all")}
	chain := newTestChain(NopAuditLogger{}, broken)

	res := chain.Run(context.Background(), ChainRequest{
		Providers: []string{"openai", "missing"},
		Prompt:    "extract",
	})

	require.False(t, res.Success)
	assert.Equal(t, "no provider produced an acceptable result", res.Err)
}
