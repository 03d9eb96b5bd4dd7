package asset

// Request names one asset to resolve. Item requests may carry annotation
// lines ("mods") that are injected into the page before capture.
//
// The zero value of Annotations together with Annotated == false is the
// simple form; use NewRequest or NewAnnotatedRequest to build either variant.
type Request struct {
	Name        string
	Annotations []string
	annotated   bool
}

// NewRequest builds a plain request for name.
func NewRequest(name string) Request {
	return Request{Name: name}
}

// NewAnnotatedRequest builds a request that injects the annotations, in
// order, beneath the page's own stats. An empty list is still annotated: the
// page table is removed and nothing is appended.
func NewAnnotatedRequest(name string, annotations []string) Request {
	return Request{
		Name:        name,
		Annotations: append([]string{}, annotations...),
		annotated:   true,
	}
}

// Annotated reports whether the request uses the annotated variant.
func (r Request) Annotated() bool {
	return r.annotated
}

// Requests groups the configured request lists per category.
type Requests struct {
	Nodes  []Request
	Items  []Request
	Skills []Request
}

// For returns the request list configured for category c.
func (r Requests) For(c Category) []Request {
	switch c {
	case CategoryNode:
		return r.Nodes
	case CategoryItem:
		return r.Items
	case CategorySkill:
		return r.Skills
	default:
		return nil
	}
}

// Len returns the total number of requests across all categories.
func (r Requests) Len() int {
	return len(r.Nodes) + len(r.Items) + len(r.Skills)
}
