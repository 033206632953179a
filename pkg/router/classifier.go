package router

import (
	"reflect"

	"github.com/zen-systems/modelmux/pkg/adapter"
)

// retryEligibleStatus is the set of status codes that make a failure safe to
// retry against a different candidate.
var retryEligibleStatus = map[int]struct{}{
	400: {},
	403: {},
	429: {},
	500: {},
	503: {},
	504: {},
}

// maxErrorDepth bounds the walk over nested errors.
const maxErrorDepth = 32

// relationKeys are the decoded-body fields that may hold a nested error.
var relationKeys = []string{"cause", "lastError", "errors", "data", "error"}

// IsRetryEligible reports whether err, or any error reachable from it, carries
// a retry-eligible status code. Errors without any status code are not
// eligible.
func IsRetryEligible(err error) bool {
	if err == nil {
		return false
	}
	w := errorWalker{visited: make(map[any]struct{})}
	return w.visit(err, 0)
}

type errorWalker struct {
	visited map[any]struct{}
}

type refKey struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

func (w *errorWalker) visit(node any, depth int) bool {
	if node == nil || depth > maxErrorDepth {
		return false
	}
	if key, ok := identityOf(node); ok {
		if _, seen := w.visited[key]; seen {
			return false
		}
		w.visited[key] = struct{}{}
	}

	if code, ok := adapter.StatusOf(node); ok {
		if _, eligible := retryEligibleStatus[code]; eligible {
			return true
		}
	}

	for _, next := range related(node) {
		if w.visit(next, depth+1) {
			return true
		}
	}
	return false
}

// identityOf returns a key identifying node by reference. Slices are keyed by
// their backing array and length. Values that are neither references nor
// comparable have no identity and rely on the depth bound instead.
func identityOf(node any) (any, bool) {
	v := reflect.ValueOf(node)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return refKey{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.Len() == 0 {
			return nil, false
		}
		return refKey{typ: v.Type(), ptr: v.Pointer(), n: v.Len()}, true
	}
	if v.Comparable() {
		return node, true
	}
	return nil, false
}

// related lists the nodes reachable from node in one step.
func related(node any) []any {
	var out []any
	switch v := node.(type) {
	case map[string]any:
		for _, key := range relationKeys {
			if next, ok := v[key]; ok {
				out = appendNodes(out, next)
			}
		}
		return out
	case []any:
		return appendNodes(nil, v)
	case *adapter.AdapterError:
		if v != nil && v.Data != nil {
			out = appendNodes(out, v.Data)
		}
	}

	if err, ok := node.(error); ok {
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				out = append(out, e)
			}
		case interface{ Unwrap() error }:
			if e := u.Unwrap(); e != nil {
				out = append(out, e)
			}
		}
		if l, ok := err.(interface{ LastError() error }); ok {
			if e := l.LastError(); e != nil {
				out = append(out, e)
			}
		}
	}
	return out
}

func appendNodes(out []any, value any) []any {
	switch v := value.(type) {
	case nil:
		return out
	case []any:
		out = append(out, v...)
	case []error:
		for _, e := range v {
			out = append(out, e)
		}
	case []map[string]any:
		for _, e := range v {
			out = append(out, e)
		}
	default:
		out = append(out, value)
	}
	return out
}
