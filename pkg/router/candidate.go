package router

import (
	"errors"
	"fmt"

	"github.com/zen-systems/modelmux/pkg/adapter"
)

// ErrEmptyCandidateSet is returned when a router is built without candidates.
var ErrEmptyCandidateSet = errors.New("modelmux: at least one candidate is required")

// Candidate is one backend eligible for selection.
type Candidate struct {
	Adapter adapter.Adapter
	Name    string
}

// Label returns the display name, falling back to "<adapter>:<model>".
func (c Candidate) Label() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Adapter == nil {
		return ""
	}
	return c.Adapter.Name() + ":" + c.Adapter.ModelID()
}

// Named pairs an adapter with a display name.
type Named struct {
	Adapter adapter.Adapter
	Name    string
}

// Normalize turns a mixed list of adapter.Adapter, Named and Candidate values
// into an ordered candidate list. Input order is preserved.
func Normalize(inputs []any) ([]Candidate, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyCandidateSet
	}

	candidates := make([]Candidate, 0, len(inputs))
	for i, in := range inputs {
		var c Candidate
		switch v := in.(type) {
		case Named:
			c = Candidate{Adapter: v.Adapter, Name: v.Name}
		case *Named:
			if v != nil {
				c = Candidate{Adapter: v.Adapter, Name: v.Name}
			}
		case Candidate:
			c = v
		case adapter.Adapter:
			c = Candidate{Adapter: v}
		default:
			return nil, fmt.Errorf("candidate %d: unsupported type %T", i, in)
		}
		if c.Adapter == nil {
			return nil, fmt.Errorf("candidate %d: no adapter", i)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
