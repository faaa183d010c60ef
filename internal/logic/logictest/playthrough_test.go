package logictest

import (
	"errors"
	"fmt"
	"testing"

	"multiworld.gg/internal/logic/playthrough"
	"multiworld.gg/internal/logic/world"
)

func TestSingleRequiredPlacement(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	sword := Prog(1, "Sword")
	loc := h.Place(1, "Menu", "Pedestal", sword, nil)
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Sword", 1))
	oracle := h.Ready()

	res, err := playthrough.Create(h.W, oracle, playthrough.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Playthrough.Precollected) != 0 {
		t.Fatalf("unexpected precollected: %v", res.Playthrough.Precollected)
	}
	if len(res.Playthrough.Spheres) != 1 {
		t.Fatalf("want 1 sphere, got %d", len(res.Playthrough.Spheres))
	}
	got := res.Playthrough.Spheres[0]
	if got[loc.String()] != sword.String() {
		t.Fatalf("sphere 1 = %v, want %s -> %s", got, loc, sword)
	}
	if loc.Item != sword {
		t.Fatalf("item not restored to its location after run")
	}
}

func TestPrecollectedRequiredItemKept(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	h.Region(1, "Menu")
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Sword", 1))
	sword := Prog(1, "Sword")
	h.W.Precollect(sword)
	oracle := h.Ready()

	res, err := playthrough.Create(h.W, oracle, playthrough.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Playthrough.Spheres) != 0 {
		t.Fatalf("want no spheres, got %d", len(res.Playthrough.Spheres))
	}
	want := []string{sword.String()}
	if len(res.Playthrough.Precollected) != 1 || res.Playthrough.Precollected[0] != want[0] {
		t.Fatalf("precollected = %v, want %v", res.Playthrough.Precollected, want)
	}
	if len(res.ExcessPrecollected) != 0 {
		t.Fatalf("required starting item flagged as excess: %v", res.ExcessPrecollected)
	}
	if len(h.W.Precollected[1]) != 1 {
		t.Fatalf("starting set mutated: %v", h.W.Precollected[1])
	}
}

func TestUnneededPlacementPrunedButRestored(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	sword := Prog(1, "Sword")
	shield := Prog(1, "Shield")
	altar := h.Place(1, "Menu", "Altar", sword, nil)
	ledge := h.Place(1, "Menu", "Ledge", shield, nil)
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Sword", 1))
	oracle := h.Ready()

	res, err := playthrough.Create(h.W, oracle, playthrough.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Playthrough.Spheres) != 1 {
		t.Fatalf("want 1 sphere, got %d", len(res.Playthrough.Spheres))
	}
	got := res.Playthrough.Spheres[0]
	if len(got) != 1 || got[altar.String()] != sword.String() {
		t.Fatalf("minimized sphere = %v, want only %s", got, altar)
	}
	// Pruning shrinks the trace, not the world.
	if ledge.Item != shield {
		t.Fatalf("pruned location lost its item: %v", ledge.Item)
	}
}

func TestMinimalAccessibilityExcess(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	h.W.Player(1).Accessibility = world.AccessMinimal
	lamp := Prog(1, "Lamp")
	h.Place(1, "Menu", "Shelf", lamp, nil)
	vault := h.Place(1, "Menu", "Vault", Prog(1, "Key"), Never())
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Lamp", 1))
	oracle := h.Ready()

	res, err := playthrough.Create(h.W, oracle, playthrough.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.UnreachableExcess) != 1 || res.UnreachableExcess[0] != vault.String() {
		t.Fatalf("unreachable excess = %v, want [%s]", res.UnreachableExcess, vault)
	}
	if len(res.Playthrough.Spheres) != 1 {
		t.Fatalf("want 1 sphere, got %d", len(res.Playthrough.Spheres))
	}
}

func TestStrandedLocationIsFatal(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	h.Place(1, "Menu", "Shelf", Prog(1, "Lamp"), nil)
	vault := h.Place(1, "Menu", "Vault", Prog(1, "Key"), Never())
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Lamp", 1))
	oracle := h.Ready()

	before := Snapshot(h.W)
	_, err := playthrough.Create(h.W, oracle, playthrough.Options{})
	var inc *playthrough.InconsistencyError
	if !errors.As(err, &inc) {
		t.Fatalf("want InconsistencyError, got %v", err)
	}
	if inc.Phase != playthrough.PhaseSweep || inc.Sphere != 2 {
		t.Fatalf("unexpected failure point: phase=%s sphere=%d", inc.Phase, inc.Sphere)
	}
	if len(inc.Stranded) != 1 || inc.Stranded[0] != vault.String() {
		t.Fatalf("stranded = %v, want [%s]", inc.Stranded, vault)
	}
	for k, it := range Snapshot(h.W) {
		if before[k] != it {
			t.Fatalf("location %v changed across failed run", k)
		}
	}
}

// flakyOracle delegates to a real oracle but fails CanBeatGame on a
// chosen call, exercising the abort-with-restoration path.
type flakyOracle struct {
	playthrough.Oracle
	calls  int
	failAt int
}

func (f *flakyOracle) CanBeatGame(s *world.State) (bool, error) {
	f.calls++
	if f.calls == f.failAt {
		return false, fmt.Errorf("injected oracle failure on call %d", f.calls)
	}
	return f.Oracle.CanBeatGame(s)
}

func TestRestorationAfterPruningFailure(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	sword := Prog(1, "Sword")
	altar := h.Place(1, "Menu", "Altar", sword, nil)
	h.Place(1, "Menu", "Ledge", Prog(1, "Shield"), nil)
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Sword", 1))
	oracle := h.Ready()

	before := Snapshot(h.W)
	// First CanBeatGame call happens inside the first pruning trial,
	// while Altar's item is detached.
	_, err := playthrough.Create(h.W, &flakyOracle{Oracle: oracle, failAt: 1}, playthrough.Options{})
	if err == nil {
		t.Fatalf("expected injected failure")
	}
	for k, it := range Snapshot(h.W) {
		if before[k] != it {
			t.Fatalf("location %v not restored after abort", k)
		}
	}
	if altar.Item != sword {
		t.Fatalf("detached item not restored")
	}
}

func TestRestorationOfPrecollectedAfterAbort(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	h.Place(1, "Menu", "Altar", Prog(1, "Sword"), nil)
	h.Place(1, "Menu", "Ledge", Prog(1, "Shield"), nil)
	charm := Prog(1, "Charm")
	h.W.Precollect(charm)
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Sword", 1))
	oracle := h.Ready()

	// Calls 1 and 2 are the two pruning trials; call 3 is the
	// minimizer's test with Charm already removed.
	_, err := playthrough.Create(h.W, &flakyOracle{Oracle: oracle, failAt: 3}, playthrough.Options{})
	if err == nil {
		t.Fatalf("expected injected failure")
	}
	if len(h.W.Precollected[1]) != 1 || h.W.Precollected[1][0] != charm {
		t.Fatalf("precollected not restored after abort: %v", h.W.Precollected[1])
	}
	if h.W.State.Count(1, "Charm") != 1 {
		t.Fatalf("live state not restored after abort")
	}
}

func TestExcessPrecollectedRemovedOnSuccess(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	sword := Prog(1, "Sword")
	h.Place(1, "Menu", "Altar", sword, nil)
	charm := Prog(1, "Charm")
	h.W.Precollect(charm)
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Sword", 1))
	oracle := h.Ready()

	res, err := playthrough.Create(h.W, oracle, playthrough.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.ExcessPrecollected) != 1 || res.ExcessPrecollected[0] != charm.String() {
		t.Fatalf("excess = %v, want [%s]", res.ExcessPrecollected, charm)
	}
	if len(h.W.Precollected[1]) != 0 {
		t.Fatalf("excess starting item not removed on success: %v", h.W.Precollected[1])
	}
	if len(res.Playthrough.Precollected) != 0 {
		t.Fatalf("round 0 should be empty, got %v", res.Playthrough.Precollected)
	}
}

func TestPruningSoundness(t *testing.T) {
	h := NewHarness(t, Player(1, "solo"))
	sword := Prog(1, "Sword")
	bow := Prog(1, "Bow")
	bridge := h.Place(1, "Menu", "Bridge Chest", sword, nil)
	h.Place(1, "Menu", "Side Chest", Prog(1, "Bomb"), nil)
	h.Connect(1, "Menu", "Gate", Has(1, "Sword", 1))
	gate := h.Place(1, "Gate", "Gate Chest", bow, nil)
	h.Start(1, "Menu")
	h.Goal(1, Has(1, "Bow", 1))
	oracle := h.Ready()

	res, err := playthrough.Create(h.W, oracle, playthrough.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Playthrough.Spheres) != 2 {
		t.Fatalf("want 2 spheres, got %v", res.Playthrough.Spheres)
	}

	// No survivor is redundant: removing any one of them must make
	// the game incompletable from scratch.
	for _, loc := range []*world.Location{bridge, gate} {
		it := loc.Item
		loc.Item = nil
		ok, err := oracle.CanBeatGame(h.W.State)
		if err != nil {
			t.Fatalf("oracle: %v", err)
		}
		loc.Item = it
		if ok {
			t.Fatalf("survivor %s is redundant", loc)
		}
	}
}
