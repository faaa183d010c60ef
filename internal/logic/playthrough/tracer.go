package playthrough

import (
	"log"
	"strconv"

	"multiworld.gg/internal/logic/world"
	"multiworld.gg/internal/trace"
)

// tracer emits state_update lines during the final pass. A sink write
// failure logs one diagnostic and disables the sink for the rest of
// the run; it never fails the computation. Oracle failures while
// building a line do propagate, they are the same class as any other
// oracle error.
type tracer struct {
	w      *world.World
	oracle Oracle
	sink   trace.Sink
	log    *log.Logger

	perItem  bool
	perRound bool
}

func newTracer(w *world.World, oracle Oracle, opts Options, logger *log.Logger) *tracer {
	return &tracer{
		w:        w,
		oracle:   oracle,
		sink:     opts.Sink,
		log:      logger,
		perItem:  opts.PerItem,
		perRound: opts.PerRound,
	}
}

func (t *tracer) item(state *world.State, round, k int, locs []string) error {
	if !t.perItem {
		return nil
	}
	return t.emit(state, trace.ItemIndex(round, k), locs)
}

func (t *tracer) round(state *world.State, round int, locs []string) error {
	if !t.perRound {
		return nil
	}
	return t.emit(state, trace.RoundIndex(round), locs)
}

func (t *tracer) emit(state *world.State, index any, locs []string) error {
	if t.sink == nil {
		return nil
	}
	if locs == nil {
		locs = []string{}
	}

	players := make(map[string]trace.PlayerData, len(t.w.Players))
	for _, p := range t.w.Players {
		var accessible []string
		for _, l := range t.w.Locations() {
			if l.Player != p.ID {
				continue
			}
			ok, err := t.oracle.CanReach(state, l)
			if err != nil {
				return err
			}
			if ok {
				accessible = append(accessible, l.Name)
			}
		}
		var regions []string
		for _, r := range t.w.Regions() {
			if r.Player != p.ID {
				continue
			}
			ok, err := t.oracle.CanReachRegion(state, r)
			if err != nil {
				return err
			}
			if ok {
				regions = append(regions, r.Name)
			}
		}
		if accessible == nil {
			accessible = []string{}
		}
		if regions == nil {
			regions = []string{}
		}
		players[strconv.Itoa(p.ID)] = trace.PlayerData{
			InventoryDetails: trace.InventoryDetails{
				ProgItems:    state.ProgItems(p.ID),
				NonProgItems: map[string]int{},
			},
			AccessibleLocations: accessible,
			AccessibleRegions:   regions,
		}
	}

	err := t.sink.WriteStateUpdate(trace.StateUpdate{
		Type:            trace.TypeStateUpdate,
		SphereIndex:     index,
		SphereLocations: locs,
		PlayerData:      players,
	})
	if err != nil {
		t.log.Printf("trace write failed, disabling tracing: %v", err)
		t.sink = nil
	}
	return nil
}
