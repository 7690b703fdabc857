package game

import (
	"encoding/json"
	"testing"
)

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("Failed to marshal: " + err.Error())
	}

	return data
}

func TestShortID_IsEightChars(t *testing.T) {
	for i := 0; i < 100; i++ {
		if id := ShortID(); len(id) != 8 {
			t.Fatalf("ShortID length = %d, want 8", len(id))
		}
	}
}

func TestShortID_VariesAcrossCalls(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		seen[ShortID()] = struct{}{}
	}

	if len(seen) < 2 {
		t.Fatalf("ShortID should not return a constant value")
	}
}
