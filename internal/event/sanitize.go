package event

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// CircularSentinel replaces any value that refers back to one of its own
// ancestors in a payload.
const CircularSentinel = "[circular]"

// Sanitize deep-copies a payload so it can safely leave the core.
// Cycles are replaced with CircularSentinel; values encoding/json cannot
// represent are stringified. Consumers may serialize the result for
// network delivery without further checks.
func Sanitize(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out, _ := sanitizeValue(payload, make(map[uintptr]bool)).(map[string]any)
	return out
}

// Serialize renders a sanitized payload as JSON. A marshal failure is
// caught and replaced with a minimal error payload rather than
// propagating (consumers always receive valid JSON).
func Serialize(payload map[string]any) []byte {
	data, err := json.Marshal(Sanitize(payload))
	if err != nil {
		fallback, _ := json.Marshal(map[string]any{
			"error": "payload serialization failed",
		})
		return fallback
	}
	return data
}

func sanitizeValue(v any, visiting map[uintptr]bool) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		ptr := rv.Pointer()
		if visiting[ptr] {
			return CircularSentinel
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)

		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			out[key] = sanitizeValue(iter.Value().Interface(), visiting)
		}
		return out

	case reflect.Slice:
		ptr := rv.Pointer()
		if visiting[ptr] {
			return CircularSentinel
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)

		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = sanitizeValue(rv.Index(i).Interface(), visiting)
		}
		return out

	case reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = sanitizeValue(rv.Index(i).Interface(), visiting)
		}
		return out

	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Ptr {
			ptr := rv.Pointer()
			if visiting[ptr] {
				return CircularSentinel
			}
			visiting[ptr] = true
			defer delete(visiting, ptr)
		}
		return sanitizeValue(rv.Elem().Interface(), visiting)

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		// Not representable; keep a readable marker instead of failing.
		return fmt.Sprintf("[%s]", rv.Kind())

	case reflect.Struct:
		// Structs pass through by value; they cannot introduce cycles
		// without a pointer, which is handled above.
		return v

	default:
		return v
	}
}
