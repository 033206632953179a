// Package router implements a composite model backend that selects one of
// several interchangeable candidates per call, fails over to the next
// candidate on retry-eligible errors, and records which candidate served the
// response.
package router

import (
	"context"

	"github.com/zen-systems/modelmux/pkg/adapter"
	"github.com/zen-systems/modelmux/pkg/metrics"
	"go.uber.org/zap"
)

// ModelID is the model identifier reported by every Router.
const ModelID = "multi"

// Router is a composite adapter over an ordered list of candidates.
type Router struct {
	candidates   []Candidate
	strategy     Strategy
	retryOnError bool
	onSelect     func(Selection)
	logger       *zap.Logger
	metrics      *metrics.Recorder
	state        *State
	caps         capabilityCache
	optErr       error
}

var _ adapter.Adapter = (*Router)(nil)

// Option configures a Router.
type Option func(*Router)

// WithStrategy sets the selection strategy.
func WithStrategy(s Strategy) Option {
	return func(r *Router) {
		if s != nil {
			r.strategy = s
		}
	}
}

// WithStrategyName selects a built-in strategy by name. The strategy is
// created once, so routers built with the same Option value share it.
func WithStrategyName(name string) Option {
	s, err := StrategyByName(name)
	return func(r *Router) {
		if err != nil {
			r.optErr = err
			return
		}
		r.strategy = s
	}
}

// WithRetryOnError enables failover to the next candidate on retry-eligible
// errors.
func WithRetryOnError(retry bool) Option {
	return func(r *Router) {
		r.retryOnError = retry
	}
}

// WithOnSelect registers a hook called synchronously after every successful
// sub-attempt.
func WithOnSelect(fn func(Selection)) Option {
	return func(r *Router) {
		r.onSelect = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records selections and failures with rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Router) {
		r.metrics = rec
	}
}

// WithState makes the router use an existing dispatch state.
func WithState(s *State) Option {
	return func(r *Router) {
		if s != nil {
			r.state = s
		}
	}
}

// New creates a router over candidates. Each element must be an
// adapter.Adapter, a Named or a Candidate. The default strategy is
// round-robin and retry on error is off.
func New(candidates []any, opts ...Option) (*Router, error) {
	normalized, err := Normalize(candidates)
	if err != nil {
		return nil, err
	}
	return newRouter(normalized, opts...)
}

// NewFromCandidates creates a router from an already normalized list.
func NewFromCandidates(candidates []Candidate, opts ...Option) (*Router, error) {
	inputs := make([]any, len(candidates))
	for i, c := range candidates {
		inputs[i] = c
	}
	return New(inputs, opts...)
}

func newRouter(candidates []Candidate, opts ...Option) (*Router, error) {
	r := &Router{
		candidates: candidates,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.optErr != nil {
		return nil, r.optErr
	}
	if r.strategy == nil {
		r.strategy = RoundRobin()
	}
	if r.state == nil {
		r.state = NewState()
	}
	r.logger = r.logger.Named("router")
	return r, nil
}

// Name returns the router identity.
func (r *Router) Name() string {
	return Namespace
}

// ModelID returns the fixed composite model identifier.
func (r *Router) ModelID() string {
	return ModelID
}

// Candidates returns a copy of the candidate list.
func (r *Router) Candidates() []Candidate {
	return append([]Candidate(nil), r.candidates...)
}

// State returns the router's dispatch state.
func (r *Router) State() *State {
	return r.state
}

// Attempt returns the number of logical calls started so far.
func (r *Router) Attempt() int {
	return r.state.Attempt()
}

// LastIndex returns the index that served the most recent successful call.
func (r *Router) LastIndex() (int, bool) {
	return r.state.LastIndex()
}

// RetryOnError reports whether failover is enabled.
func (r *Router) RetryOnError() bool {
	return r.retryOnError
}

// Generate routes req to a candidate and annotates the response with the
// selection.
func (r *Router) Generate(ctx context.Context, req *adapter.Request) (*adapter.Response, error) {
	var resp *adapter.Response
	res, err := r.dispatch(ctx, "generate", func(ctx context.Context, c Candidate) error {
		var err error
		resp, err = c.Adapter.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return Annotate(resp, metadataFor(res.index, res.candidate)), nil
}

// Stream routes req to a candidate. Failover covers stream establishment;
// errors reported by the stream after it was returned belong to the caller.
func (r *Router) Stream(ctx context.Context, req *adapter.Request) (adapter.Stream, error) {
	var stream adapter.Stream
	res, err := r.dispatch(ctx, "stream", func(ctx context.Context, c Candidate) error {
		var err error
		stream, err = c.Adapter.Stream(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return AnnotateStream(stream, metadataFor(res.index, res.candidate)), nil
}

// SupportedURLs returns the URL patterns every candidate supports. The
// intersection is resolved on first use and cached; callers must not modify
// the returned set.
func (r *Router) SupportedURLs(ctx context.Context) (adapter.CapabilitySet, error) {
	return r.caps.get(ctx, r.candidates)
}

// CapabilitiesResolved reports whether SupportedURLs has been resolved.
func (r *Router) CapabilitiesResolved() bool {
	return r.caps.isResolved()
}
