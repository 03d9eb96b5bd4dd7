package asset

import "fmt"

// Category identifies one of the fixed asset kinds. It determines the capture
// selector and the cache directory.
type Category string

// Supported categories, in dispatch order.
const (
	CategoryNode  Category = "node"
	CategoryItem  Category = "item"
	CategorySkill Category = "skill"
)

// Categories lists every category in dispatch order.
var Categories = []Category{CategoryNode, CategoryItem, CategorySkill}

// Dir returns the cache subdirectory name for the category.
func (c Category) Dir() string {
	switch c {
	case CategoryNode:
		return "nodes"
	case CategoryItem:
		return "items"
	case CategorySkill:
		return "skills"
	default:
		return ""
	}
}

// Validate reports whether c is one of the known categories.
func (c Category) Validate() error {
	switch c {
	case CategoryNode, CategoryItem, CategorySkill:
		return nil
	default:
		return fmt.Errorf("unknown asset category %q", string(c))
	}
}

func (c Category) String() string {
	return string(c)
}
