// Package wiki builds page addresses on the community wiki.
package wiki

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is the wiki article root every page title is appended to.
const DefaultBaseURL = "https://www.poewiki.net/wiki/"

// EncodeTitle turns an asset name into a wiki page identifier: spaces become
// underscores, then everything outside [A-Za-z0-9-_.~] is percent-encoded.
func EncodeTitle(name string) string {
	return url.QueryEscape(strings.ReplaceAll(name, " ", "_"))
}

// PageURL appends the encoded title to base. An empty base falls back to
// DefaultBaseURL.
func PageURL(base, name string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return base + EncodeTitle(name)
}
