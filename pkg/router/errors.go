package router

import (
	"fmt"
	"strings"
)

// AggregateError is returned when every candidate in a logical call failed
// with a retry-eligible error. Errors are kept in trial order.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "modelmux: all candidates failed"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("modelmux: all %d candidates failed", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("; [%d] %v", i, err))
	}
	return sb.String()
}

// Unwrap exposes the underlying errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Errors
}

// LastError returns the error of the final sub-attempt.
func (e *AggregateError) LastError() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
