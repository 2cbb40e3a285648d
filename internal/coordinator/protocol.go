package coordinator

import (
	"encoding/json"

	"github.com/lotas/setuptabs/internal/types"
)

// Message verbs. The envelope's "what" field is the dispatch tag.
const (
	WhatRegister = "register" // transport-level: surface announces its role

	WhatGet          = "get"
	WhatSet          = "set"
	WhatMinify       = "minify"
	WhatExpand       = "expand"
	WhatExtractOrg   = "extract-org"
	WhatContainsSfID = "contains-sf-id"
	WhatImport       = "import"
	WhatExport       = "export"
	WhatReload       = "reload"

	// Fire-and-forget verbs, acked and rebroadcast to the active page surface.
	WhatSaved   = "saved"
	WhatAdd     = "add"
	WhatTheme   = "theme"
	WhatError   = "error"
	WhatWarning = "warning"
	WhatFocused = "focused"

	// Context-menu verbs, likewise rebroadcast.
	WhatOpenOtherOrg  = "open-other-org"
	WhatMoveFirst     = "move-first"
	WhatMoveLeft      = "move-left"
	WhatMoveRight     = "move-right"
	WhatMoveLast      = "move-last"
	WhatRemoveTab     = "remove-tab"
	WhatRemoveOthers  = "remove-other-tabs"
	WhatRemoveLeft    = "remove-left-tabs"
	WhatRemoveRight   = "remove-right-tabs"
	WhatEmptyTabs     = "empty-tabs"
	WhatPageSaveTab   = "page-save-tab"
	WhatPageRemoveTab = "page-remove-tab"
)

// Surface roles announced on register.
const (
	RolePopup = "popup"
	RolePage  = "page"
)

// Message is the inner payload of an envelope. Fields beyond What are
// verb-specific; unused ones stay empty on the wire.
type Message struct {
	What string `json:"what"`
	Role string `json:"role,omitempty"` // register

	URL     string `json:"url,omitempty"`     // minify / expand / extract-org / contains-sf-id
	BaseURL string `json:"baseUrl,omitempty"` // expand

	Tabs types.TabList `json:"tabs,omitempty"` // set / export

	Imported         json.RawMessage `json:"imported,omitempty"` // import
	Overwrite        bool            `json:"overwrite,omitempty"`
	PreserveOtherOrg *bool           `json:"preserveOtherOrg,omitempty"` // default true

	Theme string `json:"theme,omitempty"` // theme
	Text  string `json:"message,omitempty"` // error / warning toast text

	TabTitle string `json:"tabTitle,omitempty"` // context-menu target
	TabURL   string `json:"tabUrl,omitempty"`
}

// Envelope is the request wrapper every surface sends: the message plus the
// sender's page URL. ID correlates the response on the shared websocket.
type Envelope struct {
	ID      string  `json:"id,omitempty"`
	Message Message `json:"message"`
	URL     string  `json:"url,omitempty"`
}

// Response is the coordinator's reply. Exactly one of Tabs, Value or Bool
// is set for request/response verbs; fire-and-forget verbs get a bare ack.
// Handled=false is the explicit not-handled signal for unknown verbs, so
// callers never hang waiting for a reply that is not coming.
type Response struct {
	ID      string        `json:"id,omitempty"`
	Handled bool          `json:"handled"`
	Tabs    types.TabList `json:"tabs,omitempty"`
	Found   bool          `json:"found,omitempty"` // get: false = nothing persisted yet
	Value   *string       `json:"value,omitempty"`
	Bool    *bool         `json:"bool,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Notification is a message pushed from the coordinator to the active page
// surface (rebroadcasts and post-mutation refresh hints).
type Notification struct {
	Message Message `json:"message"`
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
