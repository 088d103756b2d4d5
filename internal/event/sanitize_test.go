package event

import (
	"encoding/json"
	"testing"
)

func TestSanitize_PlainPayload(t *testing.T) {
	in := map[string]any{
		"round":  3,
		"phase":  "voting",
		"alive":  []any{"Rowan", "Sage"},
		"nested": map[string]any{"count": 2},
	}

	out := Sanitize(in)

	if out["round"] != 3 || out["phase"] != "voting" {
		t.Errorf("scalars should pass through: %+v", out)
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok || nested["count"] != 2 {
		t.Errorf("nested map should pass through: %+v", out["nested"])
	}
}

func TestSanitize_IsACopy(t *testing.T) {
	in := map[string]any{"inner": map[string]any{"k": "v"}}

	out := Sanitize(in)
	out["inner"].(map[string]any)["k"] = "mutated"

	if in["inner"].(map[string]any)["k"] != "v" {
		t.Error("sanitized payload should not alias the original")
	}
}

func TestSanitize_ReplacesCycles(t *testing.T) {
	in := map[string]any{"name": "loop"}
	in["self"] = in

	out := Sanitize(in)

	if out["self"] != CircularSentinel {
		t.Errorf("cycle should become sentinel, got %v", out["self"])
	}
	if out["name"] != "loop" {
		t.Errorf("non-cyclic siblings should survive, got %v", out["name"])
	}

	// The result must serialize cleanly.
	if _, err := json.Marshal(out); err != nil {
		t.Errorf("sanitized payload failed to marshal: %v", err)
	}
}

func TestSanitize_SharedButAcyclicValue(t *testing.T) {
	shared := map[string]any{"k": 1}
	in := map[string]any{"a": shared, "b": shared}

	out := Sanitize(in)

	// Diamond sharing is not a cycle; both branches keep the value.
	for _, key := range []string{"a", "b"} {
		m, ok := out[key].(map[string]any)
		if !ok || m["k"] != 1 {
			t.Errorf("%s should hold the shared value, got %v", key, out[key])
		}
	}
}

func TestSanitize_UnserializableValues(t *testing.T) {
	in := map[string]any{
		"fn": func() {},
		"ch": make(chan int),
	}

	out := Sanitize(in)

	if out["fn"] != "[func]" {
		t.Errorf("func should become a marker, got %v", out["fn"])
	}
	if out["ch"] != "[chan]" {
		t.Errorf("chan should become a marker, got %v", out["ch"])
	}
	if _, err := json.Marshal(out); err != nil {
		t.Errorf("sanitized payload failed to marshal: %v", err)
	}
}

func TestSanitize_Nil(t *testing.T) {
	if Sanitize(nil) != nil {
		t.Error("nil payload should stay nil")
	}
}

func TestSerialize_AlwaysValidJSON(t *testing.T) {
	in := map[string]any{"k": "v"}
	in["self"] = in

	data := Serialize(in)

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Serialize produced invalid JSON: %v", err)
	}
	if decoded["self"] != CircularSentinel {
		t.Errorf("self = %v, want sentinel", decoded["self"])
	}
}
