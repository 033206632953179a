package adapter

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// AdapterError wraps provider errors with status metadata.
type AdapterError struct {
	Status int
	// Data holds a decoded error body, if the provider returned one.
	Data any
	Err  error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("adapter error (status=%d)", e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusOf extracts an HTTP-style status code from a single error node
// without following any wrapped errors. Decoded error bodies are accepted as
// map[string]any and inspected for a "statusCode" or "status" field holding a
// number or a numeric string.
func StatusOf(node any) (int, bool) {
	switch v := node.(type) {
	case nil:
		return 0, false
	case *AdapterError:
		if v == nil || v.Status == 0 {
			return 0, false
		}
		return v.Status, true
	case *openai.Error:
		if v == nil || v.StatusCode == 0 {
			return 0, false
		}
		return v.StatusCode, true
	case *anthropic.Error:
		if v == nil || v.StatusCode == 0 {
			return 0, false
		}
		return v.StatusCode, true
	case genai.APIError:
		return v.Code, v.Code != 0
	case *genai.APIError:
		if v == nil || v.Code == 0 {
			return 0, false
		}
		return v.Code, true
	case interface{ HTTPStatus() int }:
		code := v.HTTPStatus()
		return code, code != 0
	case map[string]any:
		if code, ok := statusFromValue(v["statusCode"]); ok {
			return code, true
		}
		return statusFromValue(v["status"])
	}
	return 0, false
}

func statusFromValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return statusFromFloat(v)
	case float32:
		return statusFromFloat(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return statusFromFloat(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return statusFromFloat(f)
	}
	return 0, false
}

func statusFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
