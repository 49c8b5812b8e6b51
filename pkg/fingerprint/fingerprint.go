// Package fingerprint derives deterministic cache keys from the semantic
// inputs of a generation request. Identical (model, prompt, options) inputs
// always map to the same key, regardless of option map iteration order.
package fingerprint

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidParam is returned when an option value cannot be canonicalized.
var ErrInvalidParam = errors.New("fingerprint: invalid parameter value")

// Key computes a SHA-256 fingerprint over model, prompt and options.
// Options are canonicalized by sorting on option name, so equivalent maps
// in different insertion order produce the same key.
func Key(model, prompt string, options map[string]any) (string, error) {
	var b strings.Builder
	b.WriteString(model)
	b.WriteByte(':')
	b.WriteString(prompt)
	b.WriteByte(':')

	if len(options) > 0 {
		names := make([]string, 0, len(options))
		for name := range options {
			names = append(names, name)
		}
		sort.Strings(names)

		for i, name := range names {
			val, err := formatValue(options[name])
			if err != nil {
				return "", fmt.Errorf("%w: option %q", err, name)
			}
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(val)
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum), nil
}

// formatValue renders a scalar option value in a canonical form. Composite
// values are rejected; their formatting would not be stable across runs.
func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case nil:
		return "", ErrInvalidParam
	default:
		return "", ErrInvalidParam
	}
}
