package importer

import (
	"errors"
	"testing"

	"github.com/lotas/setuptabs/internal/types"
)

func TestParseValid(t *testing.T) {
	data := []byte(`[
		{"tabTitle": "Users", "url": "ManageUsers/home"},
		{"tabTitle": "Mine", "url": "u2", "org": "acme"}
	]`)

	tabs, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("expected 2 tabs, got %d", len(tabs))
	}
	if tabs[0].TabTitle != "Users" || tabs[0].URL != "ManageUsers/home" {
		t.Errorf("tab 0 = %+v", tabs[0])
	}
	if tabs[1].Org != "acme" {
		t.Errorf("expected org acme, got %q", tabs[1].Org)
	}
}

func TestParseRejectsMissingFields(t *testing.T) {
	cases := []string{
		`[{"tabTitle": "Users"}]`,                    // missing url
		`[{"url": "ManageUsers/home"}]`,              // missing title
		`[{"tabTitle": 3, "url": "u"}]`,              // wrong type
		`[{"tabTitle": "A", "url": "u", "org": 1}]`,  // wrong org type
		`{"tabTitle": "A", "url": "u"}`,              // not an array
		`not json`,
	}
	for _, c := range cases {
		_, err := Parse([]byte(c))
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Parse(%s): expected ValidationError, got %v", c, err)
		}
	}
}

func TestParseRejectsWholePayload(t *testing.T) {
	// one bad entry poisons the batch
	data := []byte(`[
		{"tabTitle": "Good", "url": "u1"},
		{"tabTitle": "Bad"}
	]`)
	tabs, err := Parse(data)
	if err == nil {
		t.Fatal("expected error")
	}
	if tabs != nil {
		t.Errorf("no partial import: got %+v", tabs)
	}
}

func TestMergeAppend(t *testing.T) {
	current := types.TabList{{TabTitle: "X", URL: "u1"}}
	data := []byte(`[{"tabTitle": "X", "url": "u1"}, {"tabTitle": "Y", "url": "u1"}]`)

	got, err := Merge(current, data, false, true)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	// full-field dedup: {X,u1} once, {Y,u1} once
	if len(got) != 2 {
		t.Fatalf("expected 2 tabs after dedup, got %+v", got)
	}
}

func TestMergeOverwritePreservesOtherOrg(t *testing.T) {
	current := types.TabList{
		{TabTitle: "G", URL: "u1"},
		{TabTitle: "Theirs", URL: "u2", Org: "other"},
	}
	data := []byte(`[{"tabTitle": "New", "url": "u3"}]`)

	got, err := Merge(current, data, true, true)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	foundTheirs := false
	for _, tb := range got {
		if tb.TabTitle == "Theirs" {
			foundTheirs = true
		}
		if tb.TabTitle == "G" {
			t.Error("global tab should be dropped by overwrite")
		}
	}
	if !foundTheirs {
		t.Error("foreign-Org tab must survive overwrite with preserveOtherOrg")
	}
}

func TestMergeOverwriteDropOtherOrg(t *testing.T) {
	current := types.TabList{{TabTitle: "Theirs", URL: "u2", Org: "other"}}
	data := []byte(`[{"tabTitle": "New", "url": "u3"}]`)

	got, err := Merge(current, data, true, false)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(got) != 1 || got[0].TabTitle != "New" {
		t.Errorf("expected full replace, got %+v", got)
	}
}
