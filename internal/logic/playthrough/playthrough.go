// Package playthrough derives the minimal required completion order of
// an already-placed multiworld: it partitions progression locations
// into reachability spheres, prunes every placement the game can be
// finished without, minimizes starting inventories, and re-derives a
// deterministic fine-grained trace of the result.
package playthrough

import (
	"bytes"
	"encoding/json"
	"log"
	"strconv"

	"multiworld.gg/internal/logic/world"
	"multiworld.gg/internal/trace"
)

// Oracle answers reachability and completability queries. It must be
// referentially transparent with respect to the state it is passed.
type Oracle interface {
	CanReach(*world.State, *world.Location) (bool, error)
	CanReachRegion(*world.State, *world.Region) (bool, error)
	CanBeatGame(*world.State) (bool, error)
}

// Options control trace emission. Tracing is observability, never a
// correctness dependency: a failing sink disables itself for the rest
// of the run and the computation proceeds.
type Options struct {
	Sink     trace.Sink
	PerItem  bool // fractional "N.k" line per collected item
	PerRound bool // integer line per finished round
	Log      *log.Logger
}

// Playthrough is the finalized minimized record: key "0" lists the
// surviving precollected progression items, every other key maps a
// location's display string to its item's display string.
type Playthrough struct {
	Precollected []string
	Spheres      []map[string]string // 1-based rounds
}

// MarshalJSON emits keys in numeric order ("0", "1", ...) rather than
// Go's lexical map-key order.
func (p Playthrough) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"0":`)
	pre := p.Precollected
	if pre == nil {
		pre = []string{}
	}
	b, err := json.Marshal(pre)
	if err != nil {
		return nil, err
	}
	buf.Write(b)
	for i, sphere := range p.Spheres {
		buf.WriteByte(',')
		buf.WriteString(strconv.Quote(strconv.Itoa(i + 1)))
		buf.WriteByte(':')
		if sphere == nil {
			sphere = map[string]string{}
		}
		b, err := json.Marshal(sphere)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the output of Create.
type Result struct {
	Playthrough Playthrough

	// ExcessPrecollected lists starting items the minimizer proved
	// unnecessary; they have been removed from the starting sets and
	// can go back into general circulation.
	ExcessPrecollected []string

	// UnreachableExcess lists progression locations left deliberately
	// unreachable for minimal-accessibility players.
	UnreachableExcess []string
}

// Create runs the full engine against the world. On every exit path,
// success or failure, all temporary detachments are undone; starting-
// item removals stick only when the whole operation succeeds.
//
// The caller must own the world exclusively for the duration of the
// call; the engine mutates locations and starting sets in place.
func Create(w *world.World, oracle Oracle, opts Options) (res *Result, err error) {
	if w.State == nil {
		w.InitState()
	}
	logger := opts.Log
	if logger == nil {
		logger = log.New(log.Writer(), "[playthrough] ", log.LstdFlags)
	}

	lg := newLedger(w)
	defer func() { lg.restore(err == nil) }()

	spheres, unreachable, err := buildSpheres(w, oracle)
	if err != nil {
		return nil, err
	}

	if err := prune(oracle, spheres, lg); err != nil {
		return nil, err
	}

	excess, err := minimizePrecollected(w, oracle, lg)
	if err != nil {
		return nil, err
	}

	tr := newTracer(w, oracle, opts, logger)
	pt, err := finalPass(w, oracle, spheres, tr)
	if err != nil {
		return nil, err
	}

	return &Result{
		Playthrough:        *pt,
		ExcessPrecollected: excess,
		UnreachableExcess:  unreachable,
	}, nil
}
