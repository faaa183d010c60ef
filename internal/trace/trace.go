// Package trace defines the newline-delimited JSON trace format the
// playthrough engine emits for debugging and replay verification.
package trace

import "fmt"

const TypeStateUpdate = "state_update"

// StateUpdate is one trace line. SphereIndex is either an integer
// (whole-round line) or an "N.M" string (per-item line); encoding/json
// sorts map keys, so identical runs marshal to identical bytes.
type StateUpdate struct {
	Type            string                `json:"type"`
	SphereIndex     any                   `json:"sphere_index"`
	SphereLocations []string              `json:"sphere_locations"`
	PlayerData      map[string]PlayerData `json:"player_data"`
}

type PlayerData struct {
	InventoryDetails    InventoryDetails `json:"inventory_details"`
	AccessibleLocations []string         `json:"accessible_locations"`
	AccessibleRegions   []string         `json:"accessible_regions"`
}

type InventoryDetails struct {
	ProgItems map[string]int `json:"prog_items"`
	// Reserved: non-progression inventory is not tracked by the
	// engine, but the field is always present and empty.
	NonProgItems map[string]int `json:"non_prog_items"`
}

// RoundIndex is the sphere_index for a finished round.
func RoundIndex(n int) any { return n }

// ItemIndex is the fractional sphere_index for the k-th item collected
// within round n (1-based).
func ItemIndex(n, k int) any { return fmt.Sprintf("%d.%d", n, k) }

// Sink receives trace lines. Implementations must write and flush each
// line independently so a truncated run still yields valid output.
type Sink interface {
	WriteStateUpdate(StateUpdate) error
}

type multiSink []Sink

func (m multiSink) WriteStateUpdate(su StateUpdate) error {
	for _, s := range m {
		if err := s.WriteStateUpdate(su); err != nil {
			return err
		}
	}
	return nil
}

// MultiSink fans one trace stream out to several sinks. The first
// write error wins.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
