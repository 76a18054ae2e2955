// Package notify is the error-notification collaborator: components report
// swallowed errors here with enough context to investigate, instead of
// failing the whole pipeline invocation.
package notify

import (
	"github.com/rs/zerolog/log"
)

// Reporter receives errors that were handled but should be visible to
// operators.
type Reporter interface {
	ReportError(err error, context map[string]string)
}

// LogReporter writes reported errors to the structured log.
type LogReporter struct{}

func NewLogReporter() *LogReporter { return &LogReporter{} }

func (r *LogReporter) ReportError(err error, context map[string]string) {
	ev := log.Error().Err(err)
	for k, v := range context {
		ev = ev.Str(k, v)
	}
	ev.Msg("Reported pipeline error")
}

// CollectingReporter records reported errors in memory, for tests.
type CollectingReporter struct {
	Errors   []error
	Contexts []map[string]string
}

func (r *CollectingReporter) ReportError(err error, context map[string]string) {
	r.Errors = append(r.Errors, err)
	r.Contexts = append(r.Contexts, context)
}
