package router

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
)

// SelectionContext is the input handed to a Strategy for one logical call.
type SelectionContext struct {
	// Candidates is a copy of the router's candidate list.
	Candidates []Candidate
	// Attempt counts the logical calls made before this one.
	Attempt int
	// LastIndex is the candidate that served the previous call.
	// It is only meaningful when HasLast is true.
	LastIndex int
	HasLast   bool
}

// Strategy picks the starting candidate index for a logical call. The result
// is normalized into range by the router, so out-of-range values are allowed.
type Strategy func(sc SelectionContext) int

// FloatStrategy is a strategy computed in floating point. Non-finite and
// fractional results select candidate 0.
type FloatStrategy func(sc SelectionContext) float64

// Strategy names understood by StrategyByName.
const (
	StrategyRoundRobin = "round-robin"
	StrategyRandom     = "random"
)

// RoundRobin returns a strategy that cycles through candidates in order. The
// cursor is seeded uniformly at random on first use so that independent
// routers do not all start at candidate 0.
func RoundRobin() Strategy {
	var (
		mu     sync.Mutex
		seeded bool
		cursor int
	)
	return func(sc SelectionContext) int {
		n := len(sc.Candidates)
		if n == 0 {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		if !seeded {
			cursor = rand.IntN(n)
			seeded = true
		}
		idx := cursor % n
		cursor = (idx + 1) % n
		return idx
	}
}

// Random returns a strategy that picks a uniformly random candidate.
func Random() Strategy {
	return func(sc SelectionContext) int {
		if len(sc.Candidates) == 0 {
			return 0
		}
		return rand.IntN(len(sc.Candidates))
	}
}

// Float adapts a FloatStrategy to a Strategy.
func Float(fs FloatStrategy) Strategy {
	return func(sc SelectionContext) int {
		return NormalizeFloatIndex(fs(sc), len(sc.Candidates))
	}
}

// StrategyByName resolves a built-in strategy. An empty name selects
// round-robin.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyRoundRobin:
		return RoundRobin(), nil
	case StrategyRandom:
		return Random(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// NormalizeIndex maps any integer into [0, n).
func NormalizeIndex(k, n int) int {
	if n <= 0 {
		return 0
	}
	return ((k % n) + n) % n
}

// NormalizeFloatIndex maps a floating point index into [0, n), treating
// non-finite and fractional values as 0.
func NormalizeFloatIndex(f float64, n int) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	if n <= 0 {
		return 0
	}
	return NormalizeIndex(int(math.Mod(f, float64(n))), n)
}

// WrapOrder returns the trial order for a logical call starting at start:
// every candidate exactly once, wrapping around the end of the list.
func WrapOrder(start, n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = (start + i) % n
	}
	return order
}
