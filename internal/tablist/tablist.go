// Package tablist computes the next persisted tab list for each user
// operation, honoring Org scoping and user-controlled ordering.
package tablist

import (
	"errors"
	"strings"

	"github.com/lotas/setuptabs/internal/types"
)

// ErrTabNotFound is returned when a move or remove target no longer exists.
// Callers surface it as a transient notification and leave state unchanged.
var ErrTabNotFound = errors.New("tab not found")

// Add appends a tab to the end of the list. When stampOrg is set and org is
// non-empty, the tab is scoped to that Org before appending — callers pass
// stampOrg for record-specific pages (URLs carrying a Salesforce Id).
func Add(list types.TabList, tab types.Tab, org string, stampOrg bool) types.TabList {
	if stampOrg && org != "" && tab.Org == "" {
		tab.Org = org
	}
	out := list.Clone()
	return append(out, tab)
}

// Remove deletes every tab matching url — and title, when given. With an
// empty title this is the remove-family semantic: all tabs sharing the URL
// go, whatever their titles. Returns ErrTabNotFound when nothing matched.
func Remove(list types.TabList, url, title string) (types.TabList, error) {
	out := make(types.TabList, 0, len(list))
	removed := false
	for _, t := range list {
		if t.Matches(url, title) {
			removed = true
			continue
		}
		out = append(out, t)
	}
	if !removed {
		return list, ErrTabNotFound
	}
	return out, nil
}

// MoveTab relocates the first tab matching (url, title). With fullMovement
// it goes to the list head (moveBefore) or tail; otherwise it swaps with
// its immediate neighbor in the requested direction. Moves past the list
// edge are no-ops, not errors.
func MoveTab(list types.TabList, url, title string, moveBefore, fullMovement bool) (types.TabList, error) {
	i := list.IndexOf(url, title)
	if i < 0 {
		return list, ErrTabNotFound
	}

	out := list.Clone()
	switch {
	case fullMovement && moveBefore:
		tab := out[i]
		copy(out[1:i+1], out[:i])
		out[0] = tab
	case fullMovement:
		tab := out[i]
		copy(out[i:], out[i+1:])
		out[len(out)-1] = tab
	case moveBefore:
		if i == 0 {
			return list, nil
		}
		out[i-1], out[i] = out[i], out[i-1]
	default:
		if i == len(out)-1 {
			return list, nil
		}
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out, nil
}

// RemoveOtherTabs keeps the first tab matching (url, title) and drops its
// neighbors. removeBefore selects which side goes: nil keeps only the match,
// true keeps the match and everything after it, false keeps the match and
// everything before it.
func RemoveOtherTabs(list types.TabList, url, title string, removeBefore *bool) (types.TabList, error) {
	i := list.IndexOf(url, title)
	if i < 0 {
		return list, ErrTabNotFound
	}

	switch {
	case removeBefore == nil:
		return types.TabList{list[i]}, nil
	case *removeBefore:
		return list[i:].Clone(), nil
	default:
		return list[:i+1].Clone(), nil
	}
}

// Overwrite is the general replace primitive behind import and the bulk
// operations. The four flag combinations:
//
//	resetTabs=false removeOrgSpecific=false  append newTabs (pure union)
//	resetTabs=true  removeOrgSpecific=false  keep Org-scoped tabs, drop
//	                                         globals, append newTabs
//	resetTabs=true  removeOrgSpecific=true   replace entirely with newTabs
//	resetTabs=false removeOrgSpecific=true   keep globals, drop Org-scoped,
//	                                         append newTabs
//
// The composed list is deduplicated by full-field equality, last seen wins.
// Org-scoped tabs are never dropped unless removeOrgSpecific opts in.
func Overwrite(list types.TabList, newTabs types.TabList, resetTabs, removeOrgSpecific bool) types.TabList {
	var out types.TabList
	switch {
	case resetTabs && removeOrgSpecific:
		// full wipe
	case resetTabs:
		for _, t := range list {
			if t.Org != "" {
				out = append(out, t)
			}
		}
	case removeOrgSpecific:
		for _, t := range list {
			if t.Org == "" {
				out = append(out, t)
			}
		}
	default:
		out = list.Clone()
	}
	out = append(out, newTabs...)
	return Dedup(out)
}

// Dedup removes full-field duplicates. The last occurrence survives in its
// own position, so a re-imported tab lands where the import put it.
func Dedup(list types.TabList) types.TabList {
	seen := make(map[types.Tab]bool, len(list))
	out := make(types.TabList, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if seen[list[i]] {
			continue
		}
		seen[list[i]] = true
		out = append(out, list[i])
	}
	// reverse back into original order
	for a, b := 0, len(out)-1; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// ContainsURL reports whether any saved tab's URL contains the minified
// current location — the substring membership rule used by saved-tab
// detection on navigation.
func ContainsURL(list types.TabList, miniURL string) bool {
	if miniURL == "" {
		return false
	}
	for _, t := range list {
		if strings.Contains(t.URL, miniURL) {
			return true
		}
	}
	return false
}
