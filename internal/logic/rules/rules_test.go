package rules

import (
	"testing"

	"multiworld.gg/internal/logic/world"
)

func compileCtx() CompileContext {
	return CompileContext{
		KnownItem:   func(player int, item string) bool { return item != "Bogus" },
		KnownPlayer: func(player int) bool { return player == 1 || player == 2 },
	}
}

func TestCompileValidation(t *testing.T) {
	cases := []struct {
		name string
		expr *Expr
	}{
		{"empty node", &Expr{}},
		{"two kinds set", &Expr{Has: &HasExpr{Item: "Sword"}, Not: &Expr{Has: &HasExpr{Item: "Sword"}}}},
		{"empty item", &Expr{Has: &HasExpr{}}},
		{"unknown item", &Expr{Has: &HasExpr{Item: "Bogus"}}},
		{"unknown player", &Expr{Has: &HasExpr{Item: "Sword", Player: 9}}},
		{"nil sub-expression", &Expr{All: []*Expr{nil}}},
	}
	for _, tc := range cases {
		if _, err := Compile(tc.expr, 1, compileCtx()); err == nil {
			t.Fatalf("%s: expected compile error", tc.name)
		}
	}

	// Absent rule compiles to nil (always passes).
	r, err := Compile(nil, 1, compileCtx())
	if err != nil || r != nil {
		t.Fatalf("nil expr: rule=%v err=%v", r, err)
	}
}

func TestCompileEvaluation(t *testing.T) {
	p1 := &world.Player{ID: 1, Name: "alice"}
	p2 := &world.Player{ID: 2, Name: "bob"}
	w := world.New([]*world.Player{p1, p2})
	menu := &world.Region{Player: 1, Name: "Menu"}
	if err := w.AddRegion(menu); err != nil {
		t.Fatalf("add region: %v", err)
	}
	p1.Start = menu
	s := w.NewState()
	s.Collect(&world.Item{Player: 1, Name: "Sword", Class: world.ClassProgression})
	s.Collect(&world.Item{Player: 2, Name: "Hammer", Class: world.ClassProgression})

	expr := &Expr{All: []*Expr{
		{Has: &HasExpr{Item: "Sword"}},                      // player defaults to 1
		{Has: &HasExpr{Item: "Hammer", Player: 2}},          // cross-player reference
		{Not: &Expr{Has: &HasExpr{Item: "Sword", Count: 2}}},
		{Any: []*Expr{
			{Has: &HasExpr{Item: "Bow"}},
			{Has: &HasExpr{Item: "Sword"}},
		}},
	}}
	rule, err := Compile(expr, 1, compileCtx())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ok, err := rule(s)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !ok {
		t.Fatalf("rule should pass against this state")
	}

	s.Collect(&world.Item{Player: 1, Name: "Sword", Class: world.ClassProgression})
	ok, err = rule(s)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if ok {
		t.Fatalf("not-clause should now fail with two swords")
	}
}

func TestCanBeatGameSweeps(t *testing.T) {
	p := &world.Player{ID: 1, Name: "solo"}
	w := world.New([]*world.Player{p})
	menu := &world.Region{Player: 1, Name: "Menu"}
	gate := &world.Region{Player: 1, Name: "Gate"}
	if err := w.AddRegion(menu); err != nil {
		t.Fatalf("add region: %v", err)
	}
	if err := w.AddRegion(gate); err != nil {
		t.Fatalf("add region: %v", err)
	}
	menu.Exits = append(menu.Exits, &world.Entrance{
		Name: "Menu -> Gate", Parent: menu, Connected: gate,
		Rule: func(s *world.State) (bool, error) { return s.Has(1, "Sword", 1), nil },
	})
	sword := &world.Item{Player: 1, Name: "Sword", Class: world.ClassProgression}
	crown := &world.Item{Player: 1, Name: "Crown", Class: world.ClassProgression}
	swordLoc := &world.Location{Player: 1, Name: "Pedestal", Item: sword}
	if err := w.AddLocation(menu, swordLoc); err != nil {
		t.Fatalf("add location: %v", err)
	}
	if err := w.AddLocation(gate, &world.Location{Player: 1, Name: "Throne", Item: crown}); err != nil {
		t.Fatalf("add location: %v", err)
	}
	p.Start = menu
	p.Completion = func(s *world.State) (bool, error) { return s.Has(1, "Crown", 1), nil }
	w.InitState()

	ev := NewEvaluator(w)
	ok, err := ev.CanBeatGame(w.State)
	if err != nil {
		t.Fatalf("can beat: %v", err)
	}
	if !ok {
		t.Fatalf("game should be beatable via two-step sweep")
	}
	// The sweep works on a copy; the caller's state is untouched.
	if w.State.Count(1, "Sword") != 0 || w.State.Count(1, "Crown") != 0 {
		t.Fatalf("CanBeatGame mutated the caller's state")
	}

	// Detaching the sword breaks the chain.
	swordLoc.Item = nil
	ok, err = ev.CanBeatGame(w.State)
	if err != nil {
		t.Fatalf("can beat: %v", err)
	}
	if ok {
		t.Fatalf("game beatable without the sword placement")
	}
	swordLoc.Item = sword
}
