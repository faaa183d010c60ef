package world

import (
	"fmt"
	"sort"
)

// ItemClass tags how an item affects the logic graph. Only progression
// items participate in reachability and sphere computation.
type ItemClass int

const (
	ClassFiller ItemClass = iota
	ClassProgression
	ClassUseful
	ClassTrap
)

func (c ItemClass) String() string {
	switch c {
	case ClassProgression:
		return "progression"
	case ClassUseful:
		return "useful"
	case ClassTrap:
		return "trap"
	default:
		return "filler"
	}
}

func ParseItemClass(s string) (ItemClass, error) {
	switch s {
	case "progression":
		return ClassProgression, nil
	case "useful":
		return ClassUseful, nil
	case "trap":
		return ClassTrap, nil
	case "filler", "":
		return ClassFiller, nil
	}
	return ClassFiller, fmt.Errorf("unknown item class %q", s)
}

// Rule is an access predicate evaluated against a collection state.
// A nil Rule always passes. Rules must be pure with respect to the
// state they are given.
type Rule func(*State) (bool, error)

// Item belongs to exactly one player and lives at exactly one location,
// or in a player's precollected set.
type Item struct {
	Player int
	Name   string
	Class  ItemClass
}

func (it *Item) Advancement() bool { return it.Class == ClassProgression }

func (it *Item) String() string {
	return fmt.Sprintf("%s (Player %d)", it.Name, it.Player)
}

// Location holds at most one item. Item is nil only while a pruning
// trial has it detached; the restoration ledger puts it back.
type Location struct {
	Player int
	Name   string
	Region *Region
	Item   *Item
	Rule   Rule
}

func (l *Location) String() string {
	return fmt.Sprintf("%s (Player %d)", l.Name, l.Player)
}

// Key identifies a location or region within one player's world.
type Key struct {
	Player int
	Name   string
}

func (l *Location) Key() Key { return Key{Player: l.Player, Name: l.Name} }

// Entrance is a directed edge between two regions, gated by a rule.
type Entrance struct {
	Name      string
	Parent    *Region
	Connected *Region
	Rule      Rule
}

// Region is a node of the traversal graph.
type Region struct {
	Player    int
	Name      string
	Exits     []*Entrance
	Locations []*Location
}

func (r *Region) String() string {
	return fmt.Sprintf("%s (Player %d)", r.Name, r.Player)
}

// Accessibility selects how strictly a player's progression items must
// remain reachable. Minimal permits permanently unreachable excess.
type Accessibility int

const (
	AccessFull Accessibility = iota
	AccessMinimal
)

func ParseAccessibility(s string) (Accessibility, error) {
	switch s {
	case "full", "":
		return AccessFull, nil
	case "minimal":
		return AccessMinimal, nil
	}
	return AccessFull, fmt.Errorf("unknown accessibility %q", s)
}

// Player carries per-participant settings. IDs are stable for the
// lifetime of a run.
type Player struct {
	ID            int
	Name          string
	Accessibility Accessibility
	Start         *Region
	Completion    Rule
}

// World is the populated multiworld graph: every player's regions,
// locations and placed items, plus the live base collection state.
// The playthrough engine is the only mutator while it runs and must
// return the graph to its pre-call shape.
type World struct {
	Players []*Player // sorted by ID

	regions   map[Key]*Region
	locations map[Key]*Location

	// Precollected items per player, kept in (player, name) order.
	Precollected map[int][]*Item

	// State is the live base state seeded with precollected items.
	State *State
}

func New(players []*Player) *World {
	sorted := make([]*Player, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &World{
		Players:      sorted,
		regions:      map[Key]*Region{},
		locations:    map[Key]*Location{},
		Precollected: map[int][]*Item{},
	}
}

func (w *World) Player(id int) *Player {
	for _, p := range w.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (w *World) AddRegion(r *Region) error {
	k := Key{Player: r.Player, Name: r.Name}
	if _, dup := w.regions[k]; dup {
		return fmt.Errorf("duplicate region %s", r)
	}
	w.regions[k] = r
	for _, l := range r.Locations {
		lk := l.Key()
		if _, dup := w.locations[lk]; dup {
			return fmt.Errorf("duplicate location %s", l)
		}
		l.Region = r
		w.locations[lk] = l
	}
	return nil
}

// AddLocation attaches a location to an already-registered region.
func (w *World) AddLocation(r *Region, l *Location) error {
	k := l.Key()
	if _, dup := w.locations[k]; dup {
		return fmt.Errorf("duplicate location %s", l)
	}
	l.Region = r
	r.Locations = append(r.Locations, l)
	w.locations[k] = l
	return nil
}

func (w *World) Region(player int, name string) *Region {
	return w.regions[Key{Player: player, Name: name}]
}

func (w *World) Location(player int, name string) *Location {
	return w.locations[Key{Player: player, Name: name}]
}

// Locations returns every location in (player, name) order.
func (w *World) Locations() []*Location {
	out := make([]*Location, 0, len(w.locations))
	for _, l := range w.locations {
		out = append(out, l)
	}
	SortLocations(out)
	return out
}

// ProgressionLocations returns the locations currently holding a
// progression item, in (player, name) order.
func (w *World) ProgressionLocations() []*Location {
	var out []*Location
	for _, l := range w.locations {
		if l.Item != nil && l.Item.Advancement() {
			out = append(out, l)
		}
	}
	SortLocations(out)
	return out
}

// Regions returns every region in (player, name) order.
func (w *World) Regions() []*Region {
	out := make([]*Region, 0, len(w.regions))
	for _, r := range w.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Player != out[j].Player {
			return out[i].Player < out[j].Player
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Precollect adds an item to a player's starting set, keeping the set
// in (player, name) order so downstream iteration is deterministic.
func (w *World) Precollect(it *Item) {
	items := append(w.Precollected[it.Player], it)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	w.Precollected[it.Player] = items
}

// RemovePrecollected detaches one item (by identity) from a player's
// starting set. Reports whether it was present.
func (w *World) RemovePrecollected(it *Item) bool {
	items := w.Precollected[it.Player]
	for i, have := range items {
		if have == it {
			w.Precollected[it.Player] = append(items[:i:i], items[i+1:]...)
			return true
		}
	}
	return false
}

// InitState builds the live base state: a fresh state with every
// precollected item collected.
func (w *World) InitState() {
	s := w.NewState()
	for _, p := range w.Players {
		for _, it := range w.Precollected[p.ID] {
			s.Collect(it)
		}
	}
	w.State = s
}

// PrecollectedProgression returns each player's starting progression
// items flattened in (player, name) order.
func (w *World) PrecollectedProgression() []*Item {
	var out []*Item
	for _, p := range w.Players {
		for _, it := range w.Precollected[p.ID] {
			if it.Advancement() {
				out = append(out, it)
			}
		}
	}
	return out
}

// SortLocations orders locations by (player, name). Every phase of the
// engine iterates locations in this order so output is reproducible.
func SortLocations(ls []*Location) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].Player != ls[j].Player {
			return ls[i].Player < ls[j].Player
		}
		return ls[i].Name < ls[j].Name
	})
}
