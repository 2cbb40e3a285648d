package store

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/lotas/setuptabs/internal/types"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetTabsEmpty(t *testing.T) {
	db := testDB(t)
	tabs, found, err := GetTabs(db)
	if err != nil {
		t.Fatalf("GetTabs: %v", err)
	}
	if found {
		t.Error("expected found=false on fresh store")
	}
	if tabs != nil {
		t.Errorf("expected nil tabs, got %+v", tabs)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	db := testDB(t)
	want := types.TabList{
		{TabTitle: "Users", URL: "ManageUsers/home"},
		{TabTitle: "Mine", URL: "u2", Org: "acme"},
	}

	if err := SetTabs(db, want); err != nil {
		t.Fatalf("SetTabs: %v", err)
	}
	got, found, err := GetTabs(db)
	if err != nil {
		t.Fatalf("GetTabs: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if !got.Equal(want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLastWriteWins(t *testing.T) {
	db := testDB(t)
	first := types.TabList{{TabTitle: "A", URL: "u1"}}
	second := types.TabList{{TabTitle: "B", URL: "u2"}}

	if err := SetTabs(db, first); err != nil {
		t.Fatal(err)
	}
	if err := SetTabs(db, second); err != nil {
		t.Fatal(err)
	}

	got, _, err := GetTabs(db)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(second) {
		t.Errorf("expected last write to win, got %+v", got)
	}
}

func TestRevisionHistory(t *testing.T) {
	db := testDB(t)
	first := types.TabList{{TabTitle: "A", URL: "u1"}}
	second := types.TabList{{TabTitle: "A", URL: "u1"}, {TabTitle: "B", URL: "u2"}}

	SetTabs(db, first)
	SetTabs(db, second)

	revs, err := ListRevisions(db)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	// newest first
	if revs[0].TabCount != 2 || revs[1].TabCount != 1 {
		t.Errorf("revision order wrong: %+v", revs)
	}

	old, err := GetRevision(db, revs[1].ID)
	if err != nil {
		t.Fatalf("GetRevision: %v", err)
	}
	if !old.Equal(first) {
		t.Errorf("revision content: got %+v, want %+v", old, first)
	}
}

func TestCompressPayloadRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(`[]`),
		[]byte(`[{"tabTitle":"Users","url":"ManageUsers/home"}]`),
		bytes.Repeat([]byte(`{"tabTitle":"Flows","url":"/lightning/app/standard__FlowsApp"},`), 50),
	}
	for _, p := range payloads {
		compressed, err := CompressPayload(p)
		if err != nil {
			t.Fatalf("CompressPayload: %v", err)
		}
		got, err := DecompressPayload(compressed)
		if err != nil {
			t.Fatalf("DecompressPayload: %v", err)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("round trip mismatch for %d-byte payload", len(p))
		}
	}
}

func TestDecompressRejectsBadMagic(t *testing.T) {
	if _, err := DecompressPayload([]byte("garbage data here")); err == nil {
		t.Error("expected error for bad magic")
	}
	if _, err := DecompressPayload([]byte("x")); err == nil {
		t.Error("expected error for short payload")
	}
}
