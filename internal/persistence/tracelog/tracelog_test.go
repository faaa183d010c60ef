package tracelog

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"multiworld.gg/internal/trace"
)

func sample(i int) trace.StateUpdate {
	return trace.StateUpdate{
		Type:            trace.TypeStateUpdate,
		SphereIndex:     trace.RoundIndex(i),
		SphereLocations: []string{"Pedestal (Player 1)"},
		PlayerData: map[string]trace.PlayerData{
			"1": {
				InventoryDetails: trace.InventoryDetails{
					ProgItems:    map[string]int{"Sword": i},
					NonProgItems: map[string]int{},
				},
				AccessibleLocations: []string{"Pedestal"},
				AccessibleRegions:   []string{"Menu"},
			},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, name := range []string{"run.jsonl", "run.jsonl.zst"} {
		path := filepath.Join(t.TempDir(), name)
		w, err := Create(path)
		if err != nil {
			t.Fatalf("%s: create: %v", name, err)
		}
		for i := 1; i <= 3; i++ {
			if err := w.WriteStateUpdate(sample(i)); err != nil {
				t.Fatalf("%s: write: %v", name, err)
			}
		}
		if err := w.Close(); err != nil {
			t.Fatalf("%s: close: %v", name, err)
		}

		lines, err := ReadLines(path)
		if err != nil {
			t.Fatalf("%s: read: %v", name, err)
		}
		if len(lines) != 3 {
			t.Fatalf("%s: got %d lines, want 3", name, len(lines))
		}
		for i, line := range lines {
			var su trace.StateUpdate
			if err := json.Unmarshal(line, &su); err != nil {
				t.Fatalf("%s line %d: %v", name, i+1, err)
			}
			if su.Type != trace.TypeStateUpdate {
				t.Fatalf("%s line %d: type = %q", name, i+1, su.Type)
			}
		}
	}
}

// Every line is flushed through the encoder, so a log from a run that
// never closed cleanly still parses in full.
func TestLinesSurviveWithoutClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.jsonl.zst")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.WriteStateUpdate(sample(1)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteStateUpdate(sample(2)); err != nil {
		t.Fatalf("write: %v", err)
	}
	// No Close: simulate an aborted run.

	lines, err := ReadLines(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
}
