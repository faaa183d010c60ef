// Package worlddef loads multiworld definitions from YAML and builds
// the world graph plus a rule evaluator bound to it.
package worlddef

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"multiworld.gg/internal/logic/rules"
	"multiworld.gg/internal/logic/world"
)

type Def struct {
	Game    string      `yaml:"game" json:"game"`
	Players []PlayerDef `yaml:"players" json:"players"`
}

type PlayerDef struct {
	ID            int         `yaml:"id" json:"id"`
	Name          string      `yaml:"name" json:"name"`
	Accessibility string      `yaml:"accessibility,omitempty" json:"accessibility,omitempty"`
	StartRegion   string      `yaml:"start_region" json:"start_region"`
	Goal          *rules.Expr `yaml:"goal,omitempty" json:"goal,omitempty"`
	Precollected  []ItemDef   `yaml:"precollected,omitempty" json:"precollected,omitempty"`
	Regions       []RegionDef `yaml:"regions" json:"regions"`
}

type RegionDef struct {
	Name      string        `yaml:"name" json:"name"`
	Exits     []ExitDef     `yaml:"exits,omitempty" json:"exits,omitempty"`
	Locations []LocationDef `yaml:"locations,omitempty" json:"locations,omitempty"`
}

type ExitDef struct {
	Name string      `yaml:"name,omitempty" json:"name,omitempty"`
	To   string      `yaml:"to" json:"to"`
	Rule *rules.Expr `yaml:"rule,omitempty" json:"rule,omitempty"`
}

type LocationDef struct {
	Name string      `yaml:"name" json:"name"`
	Rule *rules.Expr `yaml:"rule,omitempty" json:"rule,omitempty"`
	Item *ItemDef    `yaml:"item,omitempty" json:"item,omitempty"`
}

// ItemDef names an item. Player 0 means "the player this definition
// appears under"; items may be owned by any player in the multiworld.
type ItemDef struct {
	Name   string `yaml:"name" json:"name"`
	Player int    `yaml:"player,omitempty" json:"player,omitempty"`
	Class  string `yaml:"class,omitempty" json:"class,omitempty"`
}

func Load(path string) (*Def, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Def
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &d, nil
}

// Digest is a content hash over the canonical JSON form of the
// definition, stable across reloads of the same file.
func (d *Def) Digest() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Build validates the definition and constructs the world graph with
// compiled rules, a seeded base state, and an evaluator bound to it.
func Build(d *Def) (*world.World, *rules.Evaluator, error) {
	if len(d.Players) == 0 {
		return nil, nil, fmt.Errorf("world has no players")
	}

	players := make([]*world.Player, 0, len(d.Players))
	seen := map[int]bool{}
	for _, pd := range d.Players {
		if pd.ID <= 0 {
			return nil, nil, fmt.Errorf("player %q: id must be positive", pd.Name)
		}
		if seen[pd.ID] {
			return nil, nil, fmt.Errorf("duplicate player id %d", pd.ID)
		}
		seen[pd.ID] = true
		access, err := world.ParseAccessibility(pd.Accessibility)
		if err != nil {
			return nil, nil, fmt.Errorf("player %d: %w", pd.ID, err)
		}
		players = append(players, &world.Player{
			ID:            pd.ID,
			Name:          pd.Name,
			Accessibility: access,
		})
	}
	w := world.New(players)

	// First pass: regions, locations and items, no rules yet. Rule
	// compilation needs the complete item namespace.
	knownItems := map[world.Key]bool{}
	for _, pd := range d.Players {
		for _, rd := range pd.Regions {
			r := &world.Region{Player: pd.ID, Name: rd.Name}
			for _, ld := range rd.Locations {
				loc := &world.Location{Player: pd.ID, Name: ld.Name}
				if ld.Item != nil {
					it, err := buildItem(*ld.Item, pd.ID, seen)
					if err != nil {
						return nil, nil, fmt.Errorf("location %q: %w", ld.Name, err)
					}
					loc.Item = it
					knownItems[world.Key{Player: it.Player, Name: it.Name}] = true
				}
				r.Locations = append(r.Locations, loc)
			}
			if err := w.AddRegion(r); err != nil {
				return nil, nil, err
			}
		}
		for _, id := range pd.Precollected {
			it, err := buildItem(id, pd.ID, seen)
			if err != nil {
				return nil, nil, fmt.Errorf("player %d precollected: %w", pd.ID, err)
			}
			knownItems[world.Key{Player: it.Player, Name: it.Name}] = true
			w.Precollect(it)
		}
	}

	// Second pass: wire exits, start regions, and compile every rule.
	ctx := rules.CompileContext{
		KnownItem: func(player int, item string) bool {
			return knownItems[world.Key{Player: player, Name: item}]
		},
		KnownPlayer: func(player int) bool { return seen[player] },
	}
	for _, pd := range d.Players {
		start := w.Region(pd.ID, pd.StartRegion)
		if start == nil {
			return nil, nil, fmt.Errorf("player %d: start region %q not found", pd.ID, pd.StartRegion)
		}
		w.Player(pd.ID).Start = start

		goal, err := rules.Compile(pd.Goal, pd.ID, ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("player %d goal: %w", pd.ID, err)
		}
		w.Player(pd.ID).Completion = goal

		for _, rd := range pd.Regions {
			r := w.Region(pd.ID, rd.Name)
			for _, ed := range rd.Exits {
				target := w.Region(pd.ID, ed.To)
				if target == nil {
					return nil, nil, fmt.Errorf("region %q: exit to unknown region %q", rd.Name, ed.To)
				}
				rule, err := rules.Compile(ed.Rule, pd.ID, ctx)
				if err != nil {
					return nil, nil, fmt.Errorf("region %q exit %q: %w", rd.Name, ed.To, err)
				}
				name := ed.Name
				if name == "" {
					name = fmt.Sprintf("%s -> %s", rd.Name, ed.To)
				}
				r.Exits = append(r.Exits, &world.Entrance{
					Name:      name,
					Parent:    r,
					Connected: target,
					Rule:      rule,
				})
			}
			for _, ld := range rd.Locations {
				rule, err := rules.Compile(ld.Rule, pd.ID, ctx)
				if err != nil {
					return nil, nil, fmt.Errorf("location %q: %w", ld.Name, err)
				}
				w.Location(pd.ID, ld.Name).Rule = rule
			}
		}
	}

	w.InitState()
	return w, rules.NewEvaluator(w), nil
}

func buildItem(id ItemDef, defaultPlayer int, players map[int]bool) (*world.Item, error) {
	if id.Name == "" {
		return nil, fmt.Errorf("item with empty name")
	}
	owner := id.Player
	if owner == 0 {
		owner = defaultPlayer
	}
	if !players[owner] {
		return nil, fmt.Errorf("item %q: unknown owner player %d", id.Name, owner)
	}
	class, err := world.ParseItemClass(id.Class)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", id.Name, err)
	}
	return &world.Item{Player: owner, Name: id.Name, Class: class}, nil
}
