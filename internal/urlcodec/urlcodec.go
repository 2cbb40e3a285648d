// Package urlcodec converts between absolute Salesforce Setup URLs and the
// canonical, host-independent form used as the stable storage key for a tab.
package urlcodec

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// SetupLightning is the Setup path marker stripped by Minify and
	// re-inserted by Expand.
	SetupLightning = "/lightning/setup/"

	https = "https://"

	// Host suffixes, in stripping priority order.
	commonMainDomain  = "lightning.force.com"
	commonSetupDomain = "my.salesforce-setup.com"

	lightningForceCom    = ".lightning.force.com"
	mySalesforceSetupCom = ".my.salesforce-setup.com"
	mySalesforceCom      = ".my.salesforce.com"
)

// salesforceIDPattern matches a 15- or 18-character alphanumeric Salesforce
// Id bounded by /, =, ?, & or string start/end.
var salesforceIDPattern = regexp.MustCompile(`(?:^|/|=)([a-zA-Z0-9]{15}|[a-zA-Z0-9]{18})(?:$|/|\?|&)`)

// Minify strips the host and the Setup path marker from a Setup URL,
// leaving the canonical storage form. The empty string is the sentinel for
// empty input. Minify is idempotent: applying it to an already-canonical
// path returns the path unchanged.
//
// All of these collapse into "SetupOneHome/home":
//
//	https://acme.sandbox.my.salesforce-setup.com/lightning/setup/SetupOneHome/home/
//	https://acme.lightning.force.com/lightning/setup/SetupOneHome/home
//	/lightning/setup/SetupOneHome/home
//	SetupOneHome/home/
func Minify(u string) string {
	if u == "" {
		return ""
	}

	// Drop the org-specific part: first host suffix match wins.
	if i := strings.Index(u, commonMainDomain); i >= 0 {
		u = u[i+len(commonMainDomain):]
	} else if i := strings.Index(u, commonSetupDomain); i >= 0 {
		u = u[i+len(commonSetupDomain):]
	}

	if i := strings.Index(u, SetupLightning); i >= 0 {
		u = u[i+len(SetupLightning):]
	}

	u = strings.TrimSuffix(u, "/")

	if u == "" {
		u = "/" // Setup home
	}
	return u
}

// Expand undoes Minify, prepending baseOrigin and — for bare Setup-relative
// segments like "SetupOneHome/home" — the Setup path marker. Paths that are
// absolute from the root ("/lightning/app/...") get the origin only, and
// already-absolute URLs are returned unchanged.
func Expand(u, baseOrigin string) string {
	if u == "" || strings.HasPrefix(u, https) {
		return u
	}
	if strings.HasPrefix(u, "/") {
		return baseOrigin + u
	}
	return baseOrigin + SetupLightning + u
}

// ExtractOrgName parses the host of a Salesforce URL and returns the Org
// identifier (the subdomain label left after stripping a known suffix).
// Returns the empty string for unparsable input.
func ExtractOrgName(u string) string {
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, https) {
		u = https + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	host := parsed.Host

	for _, suffix := range []string{lightningForceCom, mySalesforceSetupCom, mySalesforceCom} {
		if strings.HasSuffix(host, suffix) {
			host = host[:len(host)-len(suffix)]
		}
	}
	return host
}

// ContainsSalesforceID reports whether the (decoded) URL carries a 15- or
// 18-character Salesforce Id. Record-specific URLs are almost always
// Org-specific, so this decides the default Org-scoping of a new tab.
func ContainsSalesforceID(u string) bool {
	if decoded, err := url.QueryUnescape(u); err == nil {
		u = decoded
	}
	return salesforceIDPattern.MatchString(u)
}

// CleanupURL normalizes a hand-typed URL from the popup editor. Unlike
// Minify it leaves non-Setup paths ("/lightning...", "/_ui/common...")
// untouched apart from host stripping, and it also strips a leading slash
// from Setup-relative results.
func CleanupURL(u string) string {
	if u == "" {
		return ""
	}

	if i := strings.Index(u, SetupLightning); i >= 0 {
		u = u[i+len(SetupLightning):]
	} else if strings.Contains(u, "/lightning") || strings.Contains(u, "/_ui/common") {
		return u
	}

	u = strings.TrimPrefix(u, "/")
	u = strings.TrimSuffix(u, "/")
	return u
}
