// Package capture decides which page region is screenshotted for each asset
// category and builds the script that injects item annotations before the
// capture.
package capture

import (
	"github.com/JakeFAU/poewiki-assets/internal/asset"
)

// Page element selectors on the wiki.
const (
	InfoCardSelector = "div.info-card__card"
	ItemBoxSelector  = "span.item-box"
	ModsSelector     = "span.item-stats > span.group.tc.-mod"
)

// Rule describes how one asset page is captured.
type Rule struct {
	// Selector is the CSS selector of the region to screenshot.
	Selector string
	// Script runs in the page before capture. Empty means no injection.
	Script string
}

// Selector returns the capture region for category c.
func Selector(c asset.Category) string {
	if c == asset.CategoryNode {
		return InfoCardSelector
	}
	return ItemBoxSelector
}

// RuleFor builds the capture rule for a request of category c. Annotations
// are only honored for items.
func RuleFor(c asset.Category, req asset.Request) Rule {
	rule := Rule{Selector: Selector(c)}
	if c == asset.CategoryItem && req.Annotated() {
		rule.Script = AnnotationScript(req.Annotations)
	}
	return rule
}

// Request is everything a page renderer needs to produce one image file.
type Request struct {
	// URL is the page to load.
	URL string
	// Dest is the file the captured PNG is written to.
	Dest string
	// Selector is the region to screenshot.
	Selector string
	// Overwrite allows replacing an existing Dest.
	Overwrite bool
	// Script is evaluated after load and before capture when non-empty.
	Script string
}
