package tablist

import (
	"errors"
	"testing"

	"github.com/lotas/setuptabs/internal/types"
)

func list(tabs ...types.Tab) types.TabList { return types.TabList(tabs) }

func tab(title, url string) types.Tab { return types.Tab{TabTitle: title, URL: url} }

func orgTab(title, url, org string) types.Tab {
	return types.Tab{TabTitle: title, URL: url, Org: org}
}

func TestAddStampsOrgForRecordPages(t *testing.T) {
	got := Add(nil, tab("Account", "Account/001ab0000012Xyz/view"), "acme", true)
	if len(got) != 1 || got[0].Org != "acme" {
		t.Fatalf("expected org-stamped tab, got %+v", got)
	}

	// opt-out leaves the tab global
	got = Add(nil, tab("Users", "ManageUsers/home"), "acme", false)
	if got[0].Org != "" {
		t.Errorf("expected global tab, got org %q", got[0].Org)
	}
}

func TestAddDoesNotOverwriteExistingOrg(t *testing.T) {
	got := Add(nil, orgTab("A", "u", "other"), "acme", true)
	if got[0].Org != "other" {
		t.Errorf("expected org preserved, got %q", got[0].Org)
	}
}

func TestRemoveFamily(t *testing.T) {
	l := list(tab("A", "u1"), tab("B", "u1"), tab("C", "u2"))

	// no title: everything sharing the URL goes
	got, err := Remove(l, "u1", "")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(got) != 1 || got[0].TabTitle != "C" {
		t.Errorf("expected only C left, got %+v", got)
	}

	// with title: only the exact pair
	got, err = Remove(l, "u1", "B")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(got) != 2 || got[0].TabTitle != "A" || got[1].TabTitle != "C" {
		t.Errorf("expected A,C left, got %+v", got)
	}
}

func TestRemoveNotFound(t *testing.T) {
	l := list(tab("A", "u1"))
	got, err := Remove(l, "missing", "")
	if !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
	if !got.Equal(l) {
		t.Error("list should be unchanged on not-found")
	}
}

func TestMoveTabNeighborSwap(t *testing.T) {
	l := list(tab("A", "u1"), tab("B", "u2"), tab("C", "u3"))

	got, err := MoveTab(l, "u2", "B", true, false)
	if err != nil {
		t.Fatalf("MoveTab: %v", err)
	}
	if got[0].TabTitle != "B" || got[1].TabTitle != "A" {
		t.Errorf("expected B,A,C, got %+v", got)
	}

	got, err = MoveTab(l, "u2", "B", false, false)
	if err != nil {
		t.Fatalf("MoveTab: %v", err)
	}
	if got[1].TabTitle != "C" || got[2].TabTitle != "B" {
		t.Errorf("expected A,C,B, got %+v", got)
	}
}

func TestMoveTabBoundaryNoOp(t *testing.T) {
	l := list(tab("A", "u1"), tab("B", "u2"))

	got, err := MoveTab(l, "u1", "A", true, false)
	if err != nil {
		t.Fatalf("MoveTab: %v", err)
	}
	if !got.Equal(l) {
		t.Error("move-left on first element must be a no-op")
	}

	got, err = MoveTab(l, "u2", "B", false, false)
	if err != nil {
		t.Fatalf("MoveTab: %v", err)
	}
	if !got.Equal(l) {
		t.Error("move-right on last element must be a no-op")
	}
}

func TestMoveTabFullMovement(t *testing.T) {
	l := list(tab("A", "u1"), tab("B", "u2"), tab("C", "u3"))

	got, err := MoveTab(l, "u3", "C", true, true)
	if err != nil {
		t.Fatalf("MoveTab: %v", err)
	}
	if got[0].TabTitle != "C" || got[1].TabTitle != "A" || got[2].TabTitle != "B" {
		t.Errorf("make-first: got %+v", got)
	}

	got, err = MoveTab(l, "u1", "A", false, true)
	if err != nil {
		t.Fatalf("MoveTab: %v", err)
	}
	if got[2].TabTitle != "A" || got[0].TabTitle != "B" {
		t.Errorf("make-last: got %+v", got)
	}
}

func TestMoveTabNotFound(t *testing.T) {
	l := list(tab("A", "u1"))
	if _, err := MoveTab(l, "u9", "Z", true, true); !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
}

func TestRemoveOtherTabs(t *testing.T) {
	l := list(tab("A", "u1"), tab("B", "u2"), tab("C", "u3"))
	boolPtr := func(b bool) *bool { return &b }

	got, err := RemoveOtherTabs(l, "u2", "B", nil)
	if err != nil {
		t.Fatalf("RemoveOtherTabs: %v", err)
	}
	if len(got) != 1 || got[0].TabTitle != "B" {
		t.Errorf("keep-only: got %+v", got)
	}

	got, _ = RemoveOtherTabs(l, "u2", "B", boolPtr(true))
	if len(got) != 2 || got[0].TabTitle != "B" || got[1].TabTitle != "C" {
		t.Errorf("remove-before: got %+v", got)
	}

	got, _ = RemoveOtherTabs(l, "u2", "B", boolPtr(false))
	if len(got) != 2 || got[0].TabTitle != "A" || got[1].TabTitle != "B" {
		t.Errorf("remove-after: got %+v", got)
	}
}

func TestRemoveOtherTabsSelfPreserving(t *testing.T) {
	l := list(tab("A", "u1"))
	got, err := RemoveOtherTabs(l, "u1", "A", nil)
	if err != nil {
		t.Fatalf("RemoveOtherTabs: %v", err)
	}
	if !got.Equal(l) {
		t.Errorf("single-element keep-only must preserve the list, got %+v", got)
	}
}

func TestOverwriteUnion(t *testing.T) {
	cur := list(tab("A", "u1"))
	got := Overwrite(cur, list(tab("B", "u2")), false, false)
	if len(got) != 2 || got[0].TabTitle != "A" || got[1].TabTitle != "B" {
		t.Errorf("union: got %+v", got)
	}
}

func TestOverwriteOrgIsolation(t *testing.T) {
	cur := list(tab("G", "u1"), orgTab("Mine", "u2", "acme"), orgTab("Theirs", "u3", "other"))
	got := Overwrite(cur, list(tab("New", "u4")), true, false)

	for _, want := range []string{"Mine", "Theirs", "New"} {
		found := false
		for _, tb := range got {
			if tb.TabTitle == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s in result, got %+v", want, got)
		}
	}
	for _, tb := range got {
		if tb.TabTitle == "G" {
			t.Error("global tab should be dropped on resetTabs=true")
		}
	}
}

func TestOverwriteFullWipe(t *testing.T) {
	cur := list(tab("G", "u1"), orgTab("Mine", "u2", "acme"))
	got := Overwrite(cur, list(tab("New", "u4")), true, true)
	if len(got) != 1 || got[0].TabTitle != "New" {
		t.Errorf("full wipe: got %+v", got)
	}
}

func TestOverwriteDropOrgKeepGlobals(t *testing.T) {
	cur := list(tab("G", "u1"), orgTab("Mine", "u2", "acme"))
	got := Overwrite(cur, list(tab("New", "u4")), false, true)
	if len(got) != 2 || got[0].TabTitle != "G" || got[1].TabTitle != "New" {
		t.Errorf("drop-org: got %+v", got)
	}
}

func TestOverwriteDedupStability(t *testing.T) {
	cur := list(tab("X", "u1"))
	imported := list(tab("X", "u1"), tab("Y", "u1"))

	once := Overwrite(cur, imported, false, false)
	twice := Overwrite(once, imported, false, false)

	if !once.Equal(twice) {
		t.Errorf("repeated identical import must be stable: %+v vs %+v", once, twice)
	}

	countX, countY := 0, 0
	for _, tb := range once {
		switch tb.TabTitle {
		case "X":
			countX++
		case "Y":
			countY++
		}
	}
	if countX != 1 || countY != 1 {
		t.Errorf("expected one X and one Y (distinct by title), got %+v", once)
	}
}

func TestDedupLastSeenWins(t *testing.T) {
	l := list(tab("A", "u1"), tab("B", "u2"), tab("A", "u1"))
	got := Dedup(l)
	if len(got) != 2 {
		t.Fatalf("expected 2 tabs, got %+v", got)
	}
	// the later A keeps its later position
	if got[0].TabTitle != "B" || got[1].TabTitle != "A" {
		t.Errorf("expected B,A, got %+v", got)
	}
}

func TestContainsURL(t *testing.T) {
	l := list(tab("Users", "ManageUsers/home"))
	if !ContainsURL(l, "ManageUsers/home") {
		t.Error("exact match should be contained")
	}
	if !ContainsURL(l, "ManageUsers") {
		t.Error("substring of canonical form should match")
	}
	if ContainsURL(l, "Flows") {
		t.Error("unrelated URL should not match")
	}
	if ContainsURL(l, "") {
		t.Error("empty location never matches")
	}
}
