package playthrough

import "multiworld.gg/internal/logic/world"

type detachedLocation struct {
	loc  *world.Location
	item *world.Item
}

// ledger records every temporary mutation the engine makes to the
// world graph so teardown can undo it. It is drained exactly once.
//
// Location detachments are always undone: pruning shrinks the trace,
// not the world. Precollected removals are final on success and undone
// only when the run aborts before finalizing.
type ledger struct {
	world        *world.World
	locations    []detachedLocation
	precollected []*world.Item
	drained      bool
}

func newLedger(w *world.World) *ledger {
	return &ledger{world: w}
}

// detach removes the location's item and records it for restoration.
func (lg *ledger) detach(l *world.Location) *world.Item {
	it := l.Item
	l.Item = nil
	lg.locations = append(lg.locations, detachedLocation{loc: l, item: it})
	return it
}

// reattachLast undoes the most recent detach (a failed pruning trial).
func (lg *ledger) reattachLast() {
	n := len(lg.locations)
	if n == 0 {
		return
	}
	e := lg.locations[n-1]
	e.loc.Item = e.item
	lg.locations = lg.locations[:n-1]
}

// removedPrecollected records a starting item taken out by the
// minimizer. The item is already detached from the world and the live
// state by the caller.
func (lg *ledger) removedPrecollected(it *world.Item) {
	lg.precollected = append(lg.precollected, it)
}

// popPrecollected forgets the most recent starting-item removal; the
// caller has already put the item back.
func (lg *ledger) popPrecollected() {
	if n := len(lg.precollected); n > 0 {
		lg.precollected = lg.precollected[:n-1]
	}
}

// restore drains the ledger. Draining an empty or already-drained
// ledger is a no-op.
func (lg *ledger) restore(succeeded bool) {
	if lg.drained {
		return
	}
	lg.drained = true

	for _, e := range lg.locations {
		e.loc.Item = e.item
	}
	lg.locations = nil

	if !succeeded {
		for _, it := range lg.precollected {
			lg.world.Precollect(it)
			if lg.world.State != nil {
				lg.world.State.Collect(it)
			}
		}
	}
	lg.precollected = nil
}
