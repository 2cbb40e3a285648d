// Package coordinator is the only process with direct store access. It
// arbitrates every read and write, answers URL codec queries, and
// rebroadcasts state-changing events to the active page surface.
package coordinator

import (
	"database/sql"
	"errors"

	"github.com/lotas/setuptabs/internal/applog"
	"github.com/lotas/setuptabs/internal/importer"
	"github.com/lotas/setuptabs/internal/store"
	"github.com/lotas/setuptabs/internal/types"
	"github.com/lotas/setuptabs/internal/urlcodec"
)

// Coordinator dispatches surface messages against the store and the URL
// codec. Every failure is converted to a response value here — nothing
// crosses the message boundary as a panic or unhandled error, because the
// caller lives in another context and cannot inspect it.
type Coordinator struct {
	db *sql.DB

	// Exporter performs the file-download side effect of the "export"
	// verb. Nil disables it (tests).
	Exporter func(types.TabList) error

	// notify delivers a rebroadcast to the active page surface. Wired by
	// the Server; nil means no surface transport is attached (CLI use).
	notify func(Message)
}

// New returns a Coordinator over an open store database.
func New(db *sql.DB) *Coordinator {
	return &Coordinator{db: db}
}

// Handle processes one envelope and produces its response. Fire-and-forget
// verbs are acked immediately; their rebroadcast happens asynchronously.
func (c *Coordinator) Handle(env Envelope) Response {
	msg := env.Message
	resp := Response{ID: env.ID, Handled: true}

	switch msg.What {
	case WhatGet:
		tabs, found, err := store.GetTabs(c.db)
		if err != nil {
			applog.Error("handle.get", err)
			resp.Error = err.Error()
			return resp
		}
		resp.Tabs = tabs
		resp.Found = found

	case WhatSet:
		if err := store.SetTabs(c.db, msg.Tabs); err != nil {
			applog.Error("handle.set", err)
			resp.Error = err.Error()
			return resp
		}
		applog.Info("tabs.set", "count", len(msg.Tabs))
		// Store changes are not pushed by the store itself; the active
		// page surface is told to re-fetch after every mutation.
		c.rebroadcast(Message{What: WhatSaved})

	case WhatMinify:
		resp.Value = strPtr(urlcodec.Minify(msg.URL))

	case WhatExpand:
		resp.Value = strPtr(urlcodec.Expand(msg.URL, msg.BaseURL))

	case WhatExtractOrg:
		resp.Value = strPtr(urlcodec.ExtractOrgName(msg.URL))

	case WhatContainsSfID:
		resp.Bool = boolPtr(urlcodec.ContainsSalesforceID(msg.URL))

	case WhatImport:
		tabs, err := c.importTabs(msg)
		if err != nil {
			applog.Error("handle.import", err)
			resp.Error = err.Error()
			return resp
		}
		resp.Tabs = tabs
		c.rebroadcast(Message{What: WhatSaved})

	case WhatExport:
		tabs := msg.Tabs
		if tabs == nil {
			stored, _, err := store.GetTabs(c.db)
			if err != nil {
				applog.Error("handle.export", err)
				resp.Error = err.Error()
				return resp
			}
			tabs = stored
		}
		if c.Exporter != nil {
			if err := c.Exporter(tabs); err != nil {
				applog.Error("handle.export", err)
				resp.Error = err.Error()
				return resp
			}
		}
		applog.Info("tabs.export", "count", len(tabs))

	case WhatReload:
		c.rebroadcast(Message{What: WhatReload})

	case WhatSaved, WhatAdd, WhatTheme, WhatError, WhatWarning, WhatFocused,
		WhatOpenOtherOrg,
		WhatMoveFirst, WhatMoveLeft, WhatMoveRight, WhatMoveLast,
		WhatRemoveTab, WhatRemoveOthers, WhatRemoveLeft, WhatRemoveRight,
		WhatEmptyTabs, WhatPageSaveTab, WhatPageRemoveTab:
		c.rebroadcast(msg)

	case WhatRegister:
		// handled at the transport layer; acked here for direct callers

	default:
		applog.Error("handle.unknown", errors.New("unknown message"), "what", msg.What)
		resp.Handled = false
	}
	return resp
}

// importTabs validates an import payload, merges it into the persisted list
// per the overwrite/preserveOtherOrg flags and persists the result. On
// validation failure nothing is mutated.
func (c *Coordinator) importTabs(msg Message) (types.TabList, error) {
	current, _, err := store.GetTabs(c.db)
	if err != nil {
		return nil, err
	}

	preserve := true
	if msg.PreserveOtherOrg != nil {
		preserve = *msg.PreserveOtherOrg
	}

	merged, err := importer.Merge(current, msg.Imported, msg.Overwrite, preserve)
	if err != nil {
		return nil, err
	}
	if err := store.SetTabs(c.db, merged); err != nil {
		return nil, err
	}
	applog.Info("tabs.import", "count", len(merged), "overwrite", msg.Overwrite)
	return merged, nil
}

func (c *Coordinator) rebroadcast(msg Message) {
	if c.notify != nil {
		c.notify(msg)
	}
}

// Tabs reads the persisted list, seeding the defaults on first run. Used by
// the CLI subcommands, which run the coordinator in-process.
func (c *Coordinator) Tabs() (types.TabList, error) {
	tabs, found, err := store.GetTabs(c.db)
	if err != nil {
		return nil, err
	}
	if !found {
		tabs = types.DefaultTabs()
		if err := store.SetTabs(c.db, tabs); err != nil {
			return nil, err
		}
		applog.Info("tabs.seeded", "count", len(tabs))
	}
	return tabs, nil
}

// SetTabs persists a new list via the same path the "set" verb takes.
func (c *Coordinator) SetTabs(tabs types.TabList) error {
	resp := c.Handle(Envelope{Message: Message{What: WhatSet, Tabs: tabs}})
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}
