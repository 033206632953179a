package router

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/zen-systems/modelmux/pkg/adapter"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Intersect resolves every candidate's supported URLs concurrently and
// returns the patterns common to all of them.
func Intersect(ctx context.Context, candidates []Candidate) (adapter.CapabilitySet, error) {
	sets := make([]adapter.CapabilitySet, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		g.Go(func() error {
			set, err := c.Adapter.SupportedURLs(gctx)
			if err != nil {
				return fmt.Errorf("resolve supported urls for %s: %w", c.Label(), err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return IntersectSets(sets), nil
}

// IntersectSets returns the strict intersection of sets. Categories come from
// the first set; a category is dropped when any set lacks it or declares no
// patterns for it. Within a category, a pattern survives only when its string
// form appears in every set.
func IntersectSets(sets []adapter.CapabilitySet) adapter.CapabilitySet {
	out := adapter.CapabilitySet{}
	if len(sets) == 0 {
		return out
	}

	for category, patterns := range sets[0] {
		keep := dedupePatterns(patterns)
		for _, other := range sets[1:] {
			if len(keep) == 0 {
				break
			}
			present := make(map[string]struct{}, len(other[category]))
			for _, p := range other[category] {
				if p != nil {
					present[p.String()] = struct{}{}
				}
			}
			filtered := keep[:0:0]
			for _, p := range keep {
				if _, ok := present[p.String()]; ok {
					filtered = append(filtered, p)
				}
			}
			keep = filtered
		}
		if len(keep) > 0 {
			out[category] = keep
		}
	}
	return out
}

func dedupePatterns(patterns []*regexp.Regexp) []*regexp.Regexp {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == nil {
			continue
		}
		if _, ok := seen[p.String()]; ok {
			continue
		}
		seen[p.String()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// capabilityCache resolves the intersection once. Concurrent first callers
// share one resolution; a failed resolution is retried on the next call. The
// shared resolution ignores cancellation of the caller that started it; each
// caller stops waiting when its own ctx is done.
type capabilityCache struct {
	mu       sync.Mutex
	resolved bool
	set      adapter.CapabilitySet
	group    singleflight.Group
}

func (c *capabilityCache) get(ctx context.Context, candidates []Candidate) (adapter.CapabilitySet, error) {
	c.mu.Lock()
	if c.resolved {
		set := c.set
		c.mu.Unlock()
		return set, nil
	}
	c.mu.Unlock()

	resolveCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("supported-urls", func() (any, error) {
		c.mu.Lock()
		if c.resolved {
			set := c.set
			c.mu.Unlock()
			return set, nil
		}
		c.mu.Unlock()

		set, err := Intersect(resolveCtx, candidates)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.resolved = true
		c.set = set
		c.mu.Unlock()
		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(adapter.CapabilitySet), nil
	}
}

// isResolved reports whether the intersection has been computed.
func (c *capabilityCache) isResolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}
