// Package mux builds composite routers from a list of API keys. Every router
// derived from one Mux shares a single dispatch state and strategy, so
// selection stays fair across all of them.
package mux

import (
	"fmt"

	"github.com/zen-systems/modelmux/pkg/adapter"
	"github.com/zen-systems/modelmux/pkg/router"
)

// Provider creates adapters bound to one credential.
type Provider interface {
	LanguageModel(modelID string) (adapter.Adapter, error)
}

// Factory creates a Provider for one API key.
type Factory func(apiKey string) (Provider, error)

// Mux fans LanguageModel out to one provider per key and composes the
// results into a router.
type Mux struct {
	providers []Provider
	names     []string
	state     *router.State
	opts      []router.Option
}

// New creates a provider per key. Retry on error is enabled unless opts
// disable it, and the default round-robin strategy is shared by every
// derived router.
func New(keys []string, factory Factory, opts ...router.Option) (*Mux, error) {
	if len(keys) == 0 {
		return nil, router.ErrEmptyCandidateSet
	}
	if factory == nil {
		return nil, fmt.Errorf("mux: factory is required")
	}

	m := &Mux{state: router.NewState()}
	for i, key := range keys {
		p, err := factory(key)
		if err != nil {
			return nil, fmt.Errorf("create provider for key %d: %w", i, err)
		}
		m.providers = append(m.providers, p)
		m.names = append(m.names, maskKey(i, key))
	}

	m.opts = append([]router.Option{
		router.WithStrategy(router.RoundRobin()),
		router.WithRetryOnError(true),
	}, opts...)
	m.opts = append(m.opts, router.WithState(m.state))
	return m, nil
}

// LanguageModel returns a router over modelID, one candidate per key.
func (m *Mux) LanguageModel(modelID string) (*router.Router, error) {
	candidates := make([]router.Candidate, len(m.providers))
	for i, p := range m.providers {
		a, err := p.LanguageModel(modelID)
		if err != nil {
			return nil, fmt.Errorf("create %s for key %d: %w", modelID, i, err)
		}
		candidates[i] = router.Candidate{Adapter: a, Name: m.names[i]}
	}
	return router.NewFromCandidates(candidates, m.opts...)
}

// State returns the dispatch state shared by derived routers.
func (m *Mux) State() *router.State {
	return m.state
}

// Size returns the number of keys.
func (m *Mux) Size() int {
	return len(m.providers)
}

// maskKey names a candidate after its key without revealing it.
func maskKey(i int, key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return fmt.Sprintf("key#%d", i)
	}
	return fmt.Sprintf("key#%d(…%s)", i, key[len(key)-visible:])
}
