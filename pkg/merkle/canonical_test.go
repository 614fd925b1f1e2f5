package merkle

import (
	"encoding/json"
	"math"
	"testing"
)

func TestCanonicalizeRawJSONSortsKeys(t *testing.T) {
	canonical, err := CanonicalizeRawJSON([]byte(`{ "timestamp": 1700000000, "humidity": 40.50, "nested": {"b": 1, "a": "<x>"} }`))
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	expected := `{"humidity":40.50,"nested":{"a":"<x>","b":1},"timestamp":1700000000}`
	if string(canonical) != expected {
		t.Fatalf("unexpected canonical form: %s", canonical)
	}
}

func TestCanonicalizeRawJSONRejectsTrailingData(t *testing.T) {
	if _, err := CanonicalizeRawJSON([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
	if _, err := CanonicalizeRawJSON([]byte(`{"a":1} ]`)); err == nil {
		t.Fatal("expected error for a stray delimiter")
	}
	if _, err := CanonicalizeRawJSON([]byte(`{"a":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestCanonicalizeJSONStruct(t *testing.T) {
	value := struct {
		Zeta  string `json:"zeta"`
		Alpha []int  `json:"alpha"`
	}{Zeta: "z", Alpha: []int{3, 1}}

	canonical, err := CanonicalizeJSON(value)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	if string(canonical) != `{"alpha":[3,1],"zeta":"z"}` {
		t.Fatalf("unexpected canonical form: %s", canonical)
	}
}

func TestCanonicalizeJSONRejectsUnrepresentableValues(t *testing.T) {
	cases := map[string]any{
		"channel":      make(chan int),
		"func":         func() {},
		"complex":      complex(1, 2),
		"NaN":          math.NaN(),
		"+Inf":         math.Inf(1),
		"bool map key": map[bool]string{true: "x"},
		"nested":       map[string]any{"ok": 1, "bad": []any{math.Inf(-1)}},
	}
	for name, value := range cases {
		if _, err := CanonicalizeJSON(value); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestCanonicalizeJSONNumbers(t *testing.T) {
	canonical, err := CanonicalizeJSON(map[string]any{
		"big":     json.Number("12345678901234567890"),
		"float":   1e6,
		"small":   0.25,
		"text":    json.Number("1.0"),
		"integer": int64(-7),
	})
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	expected := `{"big":12345678901234567890,"float":1000000,"integer":-7,"small":0.25,"text":1.0}`
	if string(canonical) != expected {
		t.Fatalf("unexpected canonical form: %s", canonical)
	}
}

func TestCanonicalizeJSONKeepsTextUnescaped(t *testing.T) {
	canonical, err := CanonicalizeJSON(map[string]string{"site": "a&b <c>", "unit": "°C"})
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	if string(canonical) != `{"site":"a&b <c>","unit":"°C"}` {
		t.Fatalf("unexpected canonical form: %s", canonical)
	}

	fromRaw, err := CanonicalizeRawJSON([]byte(`{"unit":"°C","site":"a&b <c>"}`))
	if err != nil || string(fromRaw) != string(canonical) {
		t.Fatalf("raw and value forms differ: %s vs %s (err=%v)", fromRaw, canonical, err)
	}
}
