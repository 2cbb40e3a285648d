package types

// Tab is a single saved Setup shortcut. URL holds the canonical (minified)
// form produced by urlcodec.Minify, never a full address — that is what
// makes it portable between Orgs.
type Tab struct {
	TabTitle string `json:"tabTitle"`
	URL      string `json:"url"`
	Org      string `json:"org,omitempty"` // empty = visible in every Org
}

// Equal reports full-field equality. Duplicate detection treats two tabs
// as the same only when title, url and org all match.
func (t Tab) Equal(o Tab) bool {
	return t.TabTitle == o.TabTitle && t.URL == o.URL && t.Org == o.Org
}

// Matches reports whether the tab matches a (url, title) lookup.
// An empty title matches any title — the documented remove-family rule.
func (t Tab) Matches(url, title string) bool {
	if t.URL != url {
		return false
	}
	return title == "" || t.TabTitle == title
}

// TabList is the ordered shortcut list. Order is user-controlled and
// significant; the list is always persisted wholesale.
type TabList []Tab

// Clone returns an independent copy of the list.
func (l TabList) Clone() TabList {
	if l == nil {
		return nil
	}
	out := make(TabList, len(l))
	copy(out, l)
	return out
}

// Equal reports element-wise full-field equality in order.
func (l TabList) Equal(o TabList) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// IndexOf returns the position of the first tab matching (url, title),
// or -1 if none does.
func (l TabList) IndexOf(url, title string) int {
	for i, t := range l {
		if t.Matches(url, title) {
			return i
		}
	}
	return -1
}

// DefaultTabs is the list seeded on first run, before the user has saved
// anything.
func DefaultTabs() TabList {
	return TabList{
		{TabTitle: "⚡", URL: "/lightning"},
		{TabTitle: "Flows", URL: "/lightning/app/standard__FlowsApp"},
		{TabTitle: "Users", URL: "ManageUsers/home"},
	}
}
