// Package logictest holds black-box tests for the playthrough engine
// plus a small harness for assembling worlds programmatically. It
// drives everything through exported APIs so the tests double as usage
// examples.
package logictest

import (
	"testing"

	"multiworld.gg/internal/logic/rules"
	"multiworld.gg/internal/logic/world"
)

// Harness builds a test world one region, entrance and placement at a
// time. Call Ready before running the engine.
type Harness struct {
	T *testing.T
	W *world.World
}

func NewHarness(t *testing.T, players ...*world.Player) *Harness {
	t.Helper()
	return &Harness{T: t, W: world.New(players)}
}

// Player is a convenience constructor; start region and goal are set
// through the harness.
func Player(id int, name string) *world.Player {
	return &world.Player{ID: id, Name: name}
}

// Region returns the named region, creating and registering it on
// first use.
func (h *Harness) Region(player int, name string) *world.Region {
	h.T.Helper()
	if r := h.W.Region(player, name); r != nil {
		return r
	}
	r := &world.Region{Player: player, Name: name}
	if err := h.W.AddRegion(r); err != nil {
		h.T.Fatalf("add region %s: %v", name, err)
	}
	return r
}

// Connect adds a one-way entrance between two regions of one player.
func (h *Harness) Connect(player int, from, to string, rule world.Rule) {
	h.T.Helper()
	src := h.Region(player, from)
	dst := h.Region(player, to)
	src.Exits = append(src.Exits, &world.Entrance{
		Name:      from + " -> " + to,
		Parent:    src,
		Connected: dst,
		Rule:      rule,
	})
}

// Place puts an item at a new location in the given region.
func (h *Harness) Place(player int, region, locName string, it *world.Item, rule world.Rule) *world.Location {
	h.T.Helper()
	r := h.Region(player, region)
	l := &world.Location{Player: player, Name: locName, Item: it, Rule: rule}
	if err := h.W.AddLocation(r, l); err != nil {
		h.T.Fatalf("add location %s: %v", locName, err)
	}
	return l
}

func (h *Harness) Start(player int, region string) {
	h.T.Helper()
	p := h.W.Player(player)
	if p == nil {
		h.T.Fatalf("unknown player %d", player)
	}
	p.Start = h.Region(player, region)
}

func (h *Harness) Goal(player int, rule world.Rule) {
	h.T.Helper()
	p := h.W.Player(player)
	if p == nil {
		h.T.Fatalf("unknown player %d", player)
	}
	p.Completion = rule
}

// Ready seeds the live base state and returns the oracle.
func (h *Harness) Ready() *rules.Evaluator {
	h.T.Helper()
	for _, p := range h.W.Players {
		if p.Start == nil {
			h.T.Fatalf("player %d has no start region", p.ID)
		}
	}
	h.W.InitState()
	return rules.NewEvaluator(h.W)
}

// Prog makes a progression item.
func Prog(player int, name string) *world.Item {
	return &world.Item{Player: player, Name: name, Class: world.ClassProgression}
}

// Filler makes a non-progression item.
func Filler(player int, name string) *world.Item {
	return &world.Item{Player: player, Name: name, Class: world.ClassFiller}
}

// Has builds an access rule requiring an item count.
func Has(player int, item string, n int) world.Rule {
	return func(s *world.State) (bool, error) { return s.Has(player, item, n), nil }
}

// Never is a rule that can never be satisfied.
func Never() world.Rule {
	return func(*world.State) (bool, error) { return false, nil }
}

// Snapshot captures every location's current item pointer so tests can
// assert restoration fidelity after a run.
func Snapshot(w *world.World) map[world.Key]*world.Item {
	out := map[world.Key]*world.Item{}
	for _, l := range w.Locations() {
		out[l.Key()] = l.Item
	}
	return out
}
