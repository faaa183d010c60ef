// Package rules provides the access-rule expression language and the
// reachability evaluator the playthrough engine queries.
package rules

import (
	"fmt"

	"multiworld.gg/internal/logic/world"
)

// Expr is one node of a rule expression as authored in world files.
// Exactly one field may be set; a zero Expr is invalid. An absent rule
// (nil *Expr) always passes.
type Expr struct {
	Has *HasExpr `yaml:"has,omitempty" json:"has,omitempty"`
	Any []*Expr  `yaml:"any,omitempty" json:"any,omitempty"`
	All []*Expr  `yaml:"all,omitempty" json:"all,omitempty"`
	Not *Expr    `yaml:"not,omitempty" json:"not,omitempty"`
}

// HasExpr tests a collected-item count. Player 0 means "the player the
// rule belongs to"; Count 0 means 1.
type HasExpr struct {
	Item   string `yaml:"item" json:"item"`
	Count  int    `yaml:"count,omitempty" json:"count,omitempty"`
	Player int    `yaml:"player,omitempty" json:"player,omitempty"`
}

// CompileContext resolves references while compiling expressions.
type CompileContext struct {
	// KnownItem reports whether an item name exists for a player.
	// Unknown references are compile errors, not silent falses.
	KnownItem   func(player int, item string) bool
	KnownPlayer func(player int) bool
}

// Compile turns an expression tree into a closure over collection
// state. defaultPlayer scopes unqualified item references.
func Compile(e *Expr, defaultPlayer int, ctx CompileContext) (world.Rule, error) {
	if e == nil {
		return nil, nil
	}
	set := 0
	if e.Has != nil {
		set++
	}
	if e.Any != nil {
		set++
	}
	if e.All != nil {
		set++
	}
	if e.Not != nil {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("rule expression must set exactly one of has/any/all/not")
	}

	switch {
	case e.Has != nil:
		h := *e.Has
		if h.Player == 0 {
			h.Player = defaultPlayer
		}
		if h.Count == 0 {
			h.Count = 1
		}
		if h.Item == "" {
			return nil, fmt.Errorf("has: empty item name")
		}
		if ctx.KnownPlayer != nil && !ctx.KnownPlayer(h.Player) {
			return nil, fmt.Errorf("has: unknown player %d", h.Player)
		}
		if ctx.KnownItem != nil && !ctx.KnownItem(h.Player, h.Item) {
			return nil, fmt.Errorf("has: unknown item %q for player %d", h.Item, h.Player)
		}
		return func(s *world.State) (bool, error) {
			return s.Has(h.Player, h.Item, h.Count), nil
		}, nil

	case e.Any != nil:
		subs, err := compileAll(e.Any, defaultPlayer, ctx)
		if err != nil {
			return nil, err
		}
		return func(s *world.State) (bool, error) {
			for _, sub := range subs {
				ok, err := sub(s)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		}, nil

	case e.All != nil:
		subs, err := compileAll(e.All, defaultPlayer, ctx)
		if err != nil {
			return nil, err
		}
		return func(s *world.State) (bool, error) {
			for _, sub := range subs {
				ok, err := sub(s)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
			return true, nil
		}, nil

	default:
		sub, err := Compile(e.Not, defaultPlayer, ctx)
		if err != nil {
			return nil, err
		}
		return func(s *world.State) (bool, error) {
			if sub == nil {
				return false, nil
			}
			ok, err := sub(s)
			return !ok, err
		}, nil
	}
}

func compileAll(exprs []*Expr, defaultPlayer int, ctx CompileContext) ([]world.Rule, error) {
	subs := make([]world.Rule, 0, len(exprs))
	for i, sub := range exprs {
		if sub == nil {
			return nil, fmt.Errorf("empty sub-expression at index %d", i)
		}
		r, err := Compile(sub, defaultPlayer, ctx)
		if err != nil {
			return nil, err
		}
		if r == nil {
			r = func(*world.State) (bool, error) { return true, nil }
		}
		subs = append(subs, r)
	}
	return subs, nil
}

// Evaluator answers reachability and completability queries for one
// world. It never mutates a state it is handed; CanBeatGame sweeps a
// private copy.
type Evaluator struct {
	w *world.World
}

func NewEvaluator(w *world.World) *Evaluator { return &Evaluator{w: w} }

func (ev *Evaluator) CanReach(s *world.State, l *world.Location) (bool, error) {
	return s.CanReachLocation(l)
}

func (ev *Evaluator) CanReachRegion(s *world.State, r *world.Region) (bool, error) {
	return s.CanReachRegion(r)
}

// CanBeatGame reports whether every player's completion rule can be
// satisfied starting from the given state: it copies the state, then
// repeatedly collects every reachable unchecked progression item until
// completion holds or no round makes progress. Detached items (pruning
// trials) are simply absent from the sweep.
func (ev *Evaluator) CanBeatGame(s *world.State) (bool, error) {
	probe := s.Copy()
	for {
		done, err := ev.completed(probe)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}

		var round []*world.Location
		for _, l := range ev.w.ProgressionLocations() {
			if probe.Checked(l) {
				continue
			}
			ok, err := probe.CanReachLocation(l)
			if err != nil {
				return false, err
			}
			if ok {
				round = append(round, l)
			}
		}
		if len(round) == 0 {
			return false, nil
		}
		for _, l := range round {
			probe.CollectLocation(l)
		}
	}
}

func (ev *Evaluator) completed(s *world.State) (bool, error) {
	for _, p := range ev.w.Players {
		if p.Completion == nil {
			continue
		}
		ok, err := p.Completion(s)
		if err != nil {
			return false, fmt.Errorf("completion for player %d: %w", p.ID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
