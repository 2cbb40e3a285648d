package surface

import (
	"context"
	"errors"

	"github.com/lotas/setuptabs/internal/applog"
	"github.com/lotas/setuptabs/internal/coordinator"
	"github.com/lotas/setuptabs/internal/navwatch"
	"github.com/lotas/setuptabs/internal/tablist"
	"github.com/lotas/setuptabs/internal/types"
)

// Standard setup landing pages where the favourite toggle is suppressed:
// they are always reachable from the host chrome, so saving them is noise.
var standardSetupPages = []string{
	"SetupOneHome/home",
	"ObjectManager/home",
}

// Backend is the slice of the coordinator the page surface needs. Every
// call crosses the message boundary; the surface never touches the store
// directly.
type Backend interface {
	Tabs(ctx context.Context) (types.TabList, bool, error)
	SetTabs(ctx context.Context, tabs types.TabList) error
	Minify(ctx context.Context, url string) (string, error)
	ExtractOrgName(ctx context.Context, url string) (string, error)
	ContainsSalesforceID(ctx context.Context, url string) (bool, error)
}

// Renderer is the strip the page surface drives. Implementations render a
// tab row, a favourite toggle, theming and transient toasts.
type Renderer interface {
	RenderTabs(tabs types.TabList, activeURL string)
	SetFavourite(visible, saved bool)
	SetTheme(theme string)
	Toast(level, text string)
}

// Page is the page surface controller: it mirrors the persisted list into
// a working copy, tracks whether the current location is a saved tab, and
// applies rebroadcast commands. The persisted list is only ever replaced
// wholesale through the backend.
type Page struct {
	backend  Backend
	renderer Renderer
	tracker  *navwatch.Tracker

	tabs     types.TabList
	location string // minified current URL
	org      string
}

// NewPage wires a page surface to its backend and renderer.
func NewPage(backend Backend, renderer Renderer) *Page {
	return &Page{
		backend:  backend,
		renderer: renderer,
		tracker:  navwatch.NewTracker(),
	}
}

// Tabs returns the working copy.
func (p *Page) Tabs() types.TabList {
	return p.tabs
}

// Org returns the Org extracted from the last observed location.
func (p *Page) Org() string {
	return p.org
}

// Refresh re-fetches the persisted list. On a fresh store it seeds the
// default tabs and persists them, so every later surface sees the same
// baseline.
func (p *Page) Refresh(ctx context.Context) error {
	tabs, found, err := p.backend.Tabs(ctx)
	if err != nil {
		return err
	}
	if !found {
		tabs = types.DefaultTabs()
		if err := p.backend.SetTabs(ctx, tabs); err != nil {
			return err
		}
		applog.Info("page.seeded", "count", len(tabs))
	}
	p.tabs = tabs
	p.render()
	return nil
}

// OnNavigate handles a settled navigation event. It recomputes the saved
// state for the new location and either reloads the whole strip or only
// refreshes the favourite toggle, per the transition.
func (p *Page) OnNavigate(ctx context.Context, rawURL string) error {
	minified, err := p.backend.Minify(ctx, rawURL)
	if err != nil {
		return err
	}
	org, err := p.backend.ExtractOrgName(ctx, rawURL)
	if err != nil {
		return err
	}
	p.location = minified
	p.org = org

	if p.tracker.Observe(minified, p.tabs) {
		return p.Refresh(ctx)
	}
	p.renderFavourite()
	return nil
}

// OnSavedTab reports the tracker's current state.
func (p *Page) OnSavedTab() bool {
	return p.tracker.State() == navwatch.OnSavedTab
}

// SaveCurrent favourites the current location under the given title,
// Org-scoped when orgScoped is set. No-op with a toast on standard setup
// pages.
func (p *Page) SaveCurrent(ctx context.Context, title string, orgScoped bool) error {
	if p.isStandardPage() {
		p.renderer.Toast("warning", "this page cannot be saved")
		return nil
	}
	tabs := tablist.Add(p.tabs, types.Tab{TabTitle: title, URL: p.location}, p.org, orgScoped)
	return p.commit(ctx, tabs)
}

// saveCurrentDefault is the save path without an explicit scoping choice:
// a URL carrying a Salesforce record Id is Org-specific, so such tabs
// default to the current Org.
func (p *Page) saveCurrentDefault(ctx context.Context, title string) error {
	orgScoped, err := p.backend.ContainsSalesforceID(ctx, p.location)
	if err != nil {
		return err
	}
	return p.SaveCurrent(ctx, title, orgScoped)
}

// RemoveCurrent unfavourites the current location.
func (p *Page) RemoveCurrent(ctx context.Context) error {
	tabs, err := tablist.Remove(p.tabs, p.location, "")
	if err != nil {
		if errors.Is(err, tablist.ErrTabNotFound) {
			p.renderer.Toast("warning", "tab not found")
			return nil
		}
		return err
	}
	return p.commit(ctx, tabs)
}

// HandleNotification applies a coordinator rebroadcast. State-changing
// commands mutate the working copy and push the result through the
// backend; refresh hints re-fetch instead of trusting the local copy.
func (p *Page) HandleNotification(ctx context.Context, msg coordinator.Message) error {
	switch msg.What {
	case coordinator.WhatSaved, coordinator.WhatAdd, coordinator.WhatReload:
		return p.Refresh(ctx)

	case coordinator.WhatTheme:
		p.renderer.SetTheme(msg.Theme)

	case coordinator.WhatError:
		p.renderer.Toast("error", msg.Text)
	case coordinator.WhatWarning:
		p.renderer.Toast("warning", msg.Text)

	case coordinator.WhatPageSaveTab:
		return p.saveCurrentDefault(ctx, msg.TabTitle)
	case coordinator.WhatPageRemoveTab:
		return p.RemoveCurrent(ctx)

	case coordinator.WhatMoveFirst:
		return p.moveTarget(ctx, msg, true, true)
	case coordinator.WhatMoveLeft:
		return p.moveTarget(ctx, msg, true, false)
	case coordinator.WhatMoveRight:
		return p.moveTarget(ctx, msg, false, false)
	case coordinator.WhatMoveLast:
		return p.moveTarget(ctx, msg, false, true)

	case coordinator.WhatRemoveTab:
		url, title := p.target(msg)
		tabs, err := tablist.Remove(p.tabs, url, title)
		if err != nil {
			return p.reportNotFound(err)
		}
		return p.commit(ctx, tabs)

	case coordinator.WhatRemoveOthers:
		return p.removeOthers(ctx, msg, nil)
	case coordinator.WhatRemoveLeft:
		before := true
		return p.removeOthers(ctx, msg, &before)
	case coordinator.WhatRemoveRight:
		before := false
		return p.removeOthers(ctx, msg, &before)

	case coordinator.WhatEmptyTabs:
		return p.commit(ctx, types.TabList{})

	default:
		applog.Info("page.notify.ignored", "what", msg.What)
	}
	return nil
}

func (p *Page) moveTarget(ctx context.Context, msg coordinator.Message, before, full bool) error {
	url, title := p.target(msg)
	tabs, err := tablist.MoveTab(p.tabs, url, title, before, full)
	if err != nil {
		return p.reportNotFound(err)
	}
	return p.commit(ctx, tabs)
}

func (p *Page) removeOthers(ctx context.Context, msg coordinator.Message, before *bool) error {
	url, title := p.target(msg)
	tabs, err := tablist.RemoveOtherTabs(p.tabs, url, title, before)
	if err != nil {
		return p.reportNotFound(err)
	}
	return p.commit(ctx, tabs)
}

// target resolves a command's subject: the named tab, or the current
// location when the command came without one.
func (p *Page) target(msg coordinator.Message) (url, title string) {
	if msg.TabURL != "" || msg.TabTitle != "" {
		return msg.TabURL, msg.TabTitle
	}
	return p.location, ""
}

func (p *Page) reportNotFound(err error) error {
	if errors.Is(err, tablist.ErrTabNotFound) {
		p.renderer.Toast("warning", "tab not found")
		return nil
	}
	return err
}

// commit replaces the working copy and pushes it wholesale. The coordinator
// rebroadcasts "saved" afterwards; Refresh on that notification re-fetches
// rather than trusting this copy.
func (p *Page) commit(ctx context.Context, tabs types.TabList) error {
	if err := p.backend.SetTabs(ctx, tabs); err != nil {
		return err
	}
	p.tabs = tabs
	p.render()
	return nil
}

func (p *Page) render() {
	p.renderer.RenderTabs(p.tabs, p.location)
	p.renderFavourite()
}

// renderFavourite uses exact-URL membership: the star answers "is this
// exact page saved", while saved-tab detection on navigation uses the
// looser containment rule.
func (p *Page) renderFavourite() {
	saved := p.tabs.IndexOf(p.location, "") >= 0
	p.renderer.SetFavourite(!p.isStandardPage(), saved)
}

func (p *Page) isStandardPage() bool {
	for _, page := range standardSetupPages {
		if p.location == page {
			return true
		}
	}
	return false
}
