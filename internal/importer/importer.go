// Package importer validates tab lists supplied by the user (file import,
// popup paste) before they reach the merge engine. Validation is strict and
// atomic: one malformed entry rejects the whole payload.
package importer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/lotas/setuptabs/internal/tablist"
	"github.com/lotas/setuptabs/internal/types"
)

// tabsSchema mirrors the rule the extension enforces on import: an array in
// which every item has string tabTitle and url, with an optional string org.
const tabsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"tabTitle": {"type": "string", "minLength": 1},
			"url": {"type": "string", "minLength": 1},
			"org": {"type": "string"}
		},
		"required": ["tabTitle", "url"],
		"additionalProperties": false
	}
}`

var schema = mustCompile()

func mustCompile() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(tabsSchema))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tabs.schema.json", doc); err != nil {
		panic(err)
	}
	s, err := c.Compile("tabs.schema.json")
	if err != nil {
		panic(err)
	}
	return s
}

// ValidationError reports why an import payload was rejected. It is shown
// to the user as a transient notification.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid import: " + e.Reason
}

// Parse validates raw import JSON and decodes it into a TabList. On any
// validation failure it returns a *ValidationError and no tabs — no partial
// import is ever committed.
func Parse(data []byte) (types.TabList, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("parsing JSON: %v", err)}
	}
	if err := schema.Validate(inst); err != nil {
		return nil, &ValidationError{
			Reason: "each item must have 'tabTitle' and 'url' as strings: " + err.Error(),
		}
	}

	items := inst.([]any)
	tabs := make(types.TabList, 0, len(items))
	for _, it := range items {
		obj := it.(map[string]any)
		tab := types.Tab{
			TabTitle: obj["tabTitle"].(string),
			URL:      obj["url"].(string),
		}
		if org, ok := obj["org"].(string); ok {
			tab.Org = org
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

// Merge validates an import payload and folds it into the current list.
// overwrite maps to resetTabs; preserveOtherOrg (the default) keeps tabs
// scoped to other Orgs out of the wipe.
func Merge(current types.TabList, data []byte, overwrite, preserveOtherOrg bool) (types.TabList, error) {
	imported, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return tablist.Overwrite(current, imported, overwrite, !preserveOtherOrg), nil
}
