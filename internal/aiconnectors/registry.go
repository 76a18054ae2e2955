package aiconnectors

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry resolves provider names to live connectors. Connectors are built
// lazily on first use and cached; a provider that fails to initialize is
// reported as unresolved so the chain skips it.
type Registry struct {
	mu       sync.Mutex
	options  map[string]ConnectorOptions
	resolved map[string]Extractor
}

// NewRegistry creates a registry over the configured provider options.
func NewRegistry(options map[string]ConnectorOptions) *Registry {
	return &Registry{
		options:  options,
		resolved: make(map[string]Extractor),
	}
}

// Register installs a prebuilt extractor under a name, used by tests to
// inject fakes.
func (r *Registry) Register(name string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[name] = e
}

// Resolve returns the extractor registered under name, constructing it from
// configuration when needed. The boolean is false when the provider is
// unknown or could not be initialized.
func (r *Registry) Resolve(ctx context.Context, name string) (Extractor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.resolved[name]; ok {
		return e, true
	}
	opts, ok := r.options[name]
	if !ok {
		return nil, false
	}
	conn, err := NewConnector(ctx, opts)
	if err != nil {
		log.Warn().Err(err).Str("provider", name).Msg("Provider failed to initialize")
		return nil, false
	}
	r.resolved[name] = conn
	return conn, true
}
