package fingerprint

import (
	"errors"
	"testing"
)

func TestKeyDeterministic(t *testing.T) {
	k1, err := Key("demo:1b", "2+2?", map[string]any{"temperature": 0.7, "top_p": 0.9})
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Key("demo:1b", "2+2?", map[string]any{"temperature": 0.7, "top_p": 0.9})
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Error("same input should produce same key")
	}
	if len(k1) != 64 {
		t.Errorf("expected 64-char hex key, got %d chars", len(k1))
	}
}

func TestKeyOrderIndependent(t *testing.T) {
	// Maps iterate in random order; build two with reversed insertion to be
	// explicit about the property under test.
	a := map[string]any{}
	a["temperature"] = 0.7
	a["num_predict"] = 128
	b := map[string]any{}
	b["num_predict"] = 128
	b["temperature"] = 0.7

	k1, err := Key("demo:1b", "hi", a)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Key("demo:1b", "hi", b)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Error("key must be invariant to option insertion order")
	}
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base, _ := Key("demo:1b", "hi", nil)

	cases := []struct {
		name           string
		model, prompt  string
		options        map[string]any
	}{
		{"model", "demo:3b", "hi", nil},
		{"prompt", "demo:1b", "hello", nil},
		{"options", "demo:1b", "hi", map[string]any{"temperature": 0.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := Key(tc.model, tc.prompt, tc.options)
			if err != nil {
				t.Fatal(err)
			}
			if k == base {
				t.Error("distinct inputs should produce distinct keys")
			}
		})
	}
}

func TestKeyRejectsCompositeValues(t *testing.T) {
	_, err := Key("demo:1b", "hi", map[string]any{"stop": []string{"\n"}})
	if !errors.Is(err, ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam, got %v", err)
	}
	_, err = Key("demo:1b", "hi", map[string]any{"seed": nil})
	if !errors.Is(err, ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam for nil value, got %v", err)
	}
}
