package router

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State holds the dispatch counters of a router. It is safe for concurrent
// use. Routers derived from one credential mux share a single State.
type State struct {
	mu        sync.Mutex
	attempt   int
	lastIndex int
	hasLast   bool
}

// NewState returns a fresh dispatch state.
func NewState() *State {
	return &State{}
}

// Attempt returns the number of logical calls started so far.
func (s *State) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// LastIndex returns the index that served the most recent successful call.
func (s *State) LastIndex() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIndex, s.hasLast
}

// begin asks the strategy for a start index and counts the call, as one step.
func (s *State) begin(strategy Strategy, candidates []Candidate) (start, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := SelectionContext{
		Candidates: slices.Clone(candidates),
		Attempt:    s.attempt,
		LastIndex:  s.lastIndex,
		HasLast:    s.hasLast,
	}
	start = NormalizeIndex(strategy(sc), len(candidates))
	attempt = s.attempt
	s.attempt++
	return start, attempt
}

func (s *State) succeed(index int) {
	s.mu.Lock()
	s.lastIndex = index
	s.hasLast = true
	s.mu.Unlock()
}

// attemptResult identifies the candidate that served a logical call.
type attemptResult struct {
	index     int
	candidate Candidate
}

// dispatch runs one logical call. invoke is called for each candidate in
// trial order until one succeeds; no lock is held while it runs.
func (r *Router) dispatch(ctx context.Context, op string, invoke func(context.Context, Candidate) error) (attemptResult, error) {
	start, attempt := r.state.begin(r.strategy, r.candidates)

	order := []int{start}
	if r.retryOnError {
		order = WrapOrder(start, len(r.candidates))
	}

	log := r.logger.With(
		zap.String("call_id", uuid.NewString()),
		zap.String("op", op),
		zap.Int("attempt", attempt),
	)

	var errs []error
	for n, idx := range order {
		if n > 0 {
			if err := ctx.Err(); err != nil {
				r.metrics.ObserveSubattempts(n)
				log.Debug("context done; stopping failover", zap.Int("tried", n), zap.Error(err))
				return attemptResult{}, err
			}
		}
		c := r.candidates[idx]
		log.Debug("invoking candidate", zap.Int("index", idx), zap.String("candidate", c.Label()))

		err := invoke(ctx, c)
		if err == nil {
			r.state.succeed(idx)
			r.metrics.RecordSelection(c.Label())
			r.metrics.ObserveSubattempts(n + 1)
			if n > 0 {
				log.Info("candidate selected after failover",
					zap.Int("index", idx),
					zap.String("candidate", c.Label()),
					zap.Int("failed", n))
			}
			if r.onSelect != nil {
				r.onSelect(Selection{Index: idx, Name: c.Name, Adapter: c.Adapter})
			}
			return attemptResult{index: idx, candidate: c}, nil
		}

		eligible := IsRetryEligible(err)
		r.metrics.RecordFailure(c.Label(), eligible)
		if !r.retryOnError || !eligible {
			r.metrics.ObserveSubattempts(n + 1)
			log.Debug("candidate failed; not retrying",
				zap.Int("index", idx),
				zap.String("candidate", c.Label()),
				zap.Bool("eligible", eligible),
				zap.Error(err))
			return attemptResult{}, err
		}

		log.Warn("candidate failed; trying next",
			zap.Int("index", idx),
			zap.String("candidate", c.Label()),
			zap.Error(err))
		errs = append(errs, err)
	}

	r.metrics.ObserveSubattempts(len(order))
	if len(errs) == 1 {
		return attemptResult{}, errs[0]
	}
	r.metrics.RecordAggregated()
	log.Error("all candidates failed", zap.Int("failures", len(errs)))
	return attemptResult{}, &AggregateError{Errors: errs}
}
