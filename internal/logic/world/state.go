package world

import (
	"fmt"
	"sort"
)

// State is a snapshot of everything collected so far: per-player
// progression item counts, the set of checked locations, and a lazily
// derived reachable-region cache. Copies are fully independent.
type State struct {
	world *World

	prog    map[int]map[string]int
	checked map[Key]struct{}

	// Region reachability cache, recomputed per player on demand.
	reachable map[int]map[string]struct{}
	stale     map[int]bool
}

func (w *World) NewState() *State {
	s := &State{
		world:     w,
		prog:      map[int]map[string]int{},
		checked:   map[Key]struct{}{},
		reachable: map[int]map[string]struct{}{},
		stale:     map[int]bool{},
	}
	for _, p := range w.Players {
		s.prog[p.ID] = map[string]int{}
		s.stale[p.ID] = true
	}
	return s
}

// Copy returns a deep copy. The copy shares the world graph (which the
// state only reads) but no mutable maps; mutating one never affects the
// other. Reachability caches are not carried over, they rebuild on
// first query.
func (s *State) Copy() *State {
	c := s.world.NewState()
	for player, counts := range s.prog {
		dst := c.prog[player]
		for name, n := range counts {
			dst[name] = n
		}
	}
	for k := range s.checked {
		c.checked[k] = struct{}{}
	}
	return c
}

func (s *State) World() *World { return s.world }

// Collect adds one copy of the item. Non-progression items are ignored;
// this engine only tracks what can move the logic forward.
func (s *State) Collect(it *Item) {
	if it == nil || !it.Advancement() {
		return
	}
	counts, ok := s.prog[it.Player]
	if !ok {
		counts = map[string]int{}
		s.prog[it.Player] = counts
	}
	counts[it.Name]++
	s.invalidate()
}

// CollectLocation collects the location's item and marks the location
// checked. Safe to call on a location with a detached item.
func (s *State) CollectLocation(loc *Location) {
	s.checked[loc.Key()] = struct{}{}
	s.Collect(loc.Item)
}

// Remove takes one copy of the item back out of the state.
func (s *State) Remove(it *Item) {
	if it == nil || !it.Advancement() {
		return
	}
	counts := s.prog[it.Player]
	if counts == nil {
		return
	}
	if counts[it.Name] <= 1 {
		delete(counts, it.Name)
	} else {
		counts[it.Name]--
	}
	s.invalidate()
}

func (s *State) Checked(loc *Location) bool {
	_, ok := s.checked[loc.Key()]
	return ok
}

func (s *State) Count(player int, name string) int {
	return s.prog[player][name]
}

func (s *State) Has(player int, name string, count int) bool {
	if count <= 0 {
		return true
	}
	return s.prog[player][name] >= count
}

// ProgItems returns a copy of one player's progression item counts.
func (s *State) ProgItems(player int) map[string]int {
	out := make(map[string]int, len(s.prog[player]))
	for name, n := range s.prog[player] {
		out[name] = n
	}
	return out
}

// Collecting or removing any item can change reachability for every
// player: rules may reference other players' inventories.
func (s *State) invalidate() {
	for id := range s.stale {
		s.stale[id] = true
	}
}

// CanReachRegion reports whether the region is reachable from its
// player's start region under this state.
func (s *State) CanReachRegion(r *Region) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("nil region")
	}
	if err := s.updateReachable(r.Player); err != nil {
		return false, err
	}
	_, ok := s.reachable[r.Player][r.Name]
	return ok, nil
}

// CanReachLocation reports whether the location's region is reachable
// and its own access rule passes.
func (s *State) CanReachLocation(l *Location) (bool, error) {
	ok, err := s.CanReachRegion(l.Region)
	if err != nil || !ok {
		return false, err
	}
	if l.Rule == nil {
		return true, nil
	}
	ok, err = l.Rule(s)
	if err != nil {
		return false, fmt.Errorf("location %s: %w", l, err)
	}
	return ok, nil
}

// ReachableRegions returns the sorted names of one player's currently
// reachable regions.
func (s *State) ReachableRegions(player int) ([]string, error) {
	if err := s.updateReachable(player); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.reachable[player]))
	for name := range s.reachable[player] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// updateReachable recomputes one player's reachable-region set by a
// breadth-first walk over entrances whose rules pass. The walk order
// does not affect the resulting set.
func (s *State) updateReachable(player int) error {
	if !s.stale[player] {
		return nil
	}
	p := s.world.Player(player)
	if p == nil || p.Start == nil {
		return fmt.Errorf("player %d has no start region", player)
	}

	seen := map[string]struct{}{p.Start.Name: {}}
	queue := []*Region{p.Start}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for _, e := range r.Exits {
			if e.Connected == nil {
				continue
			}
			if _, ok := seen[e.Connected.Name]; ok {
				continue
			}
			pass := true
			if e.Rule != nil {
				var err error
				pass, err = e.Rule(s)
				if err != nil {
					return fmt.Errorf("entrance %s: %w", e.Name, err)
				}
			}
			if pass {
				seen[e.Connected.Name] = struct{}{}
				queue = append(queue, e.Connected)
			}
		}
	}
	s.reachable[player] = seen
	s.stale[player] = false
	return nil
}
