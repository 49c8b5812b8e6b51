package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

// InvalidInputError marks a malformed request. Never retried; no channel
// call is attempted.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Model names look like "llama3.2:3b" or "registry/name:tag".
var modelNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*(:[a-zA-Z0-9._-]+)?$`)

// optionRange bounds a known numeric generation option. Unknown options
// pass through untouched; the runtime is the authority on those.
type optionRange struct {
	min, max    float64
	integerOnly bool
}

var optionRanges = map[string]optionRange{
	"temperature":    {min: 0, max: 2},
	"top_p":          {min: 0, max: 1},
	"top_k":          {min: 0, max: 1 << 30, integerOnly: true},
	"num_predict":    {min: -1, max: 1 << 30, integerOnly: true},
	"num_ctx":        {min: 1, max: 1 << 30, integerOnly: true},
	"repeat_penalty": {min: 1e-9, max: 100},
	"seed":           {min: -(1 << 62), max: 1 << 62, integerOnly: true},
}

// validateRequest checks request shape before any channel call.
func validateRequest(req *models.GenerationRequest) error {
	if req == nil {
		return &InvalidInputError{Field: "request", Reason: "missing"}
	}
	if strings.TrimSpace(req.Model) == "" {
		return &InvalidInputError{Field: "model", Reason: "must be a non-empty string"}
	}
	if !modelNameRe.MatchString(req.Model) {
		return &InvalidInputError{Field: "model", Reason: fmt.Sprintf("%q does not match the model name pattern", req.Model)}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return &InvalidInputError{Field: "prompt", Reason: "must be a non-empty string"}
	}

	for name, value := range req.Options {
		bounds, known := optionRanges[name]
		if !known {
			continue
		}
		f, isInt, ok := numericValue(value)
		if !ok {
			return &InvalidInputError{Field: name, Reason: "must be a number"}
		}
		if bounds.integerOnly && !isInt {
			return &InvalidInputError{Field: name, Reason: "must be an integer"}
		}
		if f < bounds.min || f > bounds.max {
			return &InvalidInputError{Field: name, Reason: fmt.Sprintf("value %v out of range", value)}
		}
	}
	return nil
}

func numericValue(v any) (f float64, isInt bool, ok bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true, true
	case int32:
		return float64(val), true, true
	case int64:
		return float64(val), true, true
	case float32:
		f := float64(val)
		return f, f == float64(int64(f)), true
	case float64:
		return val, val == float64(int64(val)), true
	default:
		return 0, false, false
	}
}
