package asset

import "errors"

var (
	// ErrRender marks a failed page render or probe.
	ErrRender = errors.New("render failed")
	// ErrCopy marks a failed file copy or write.
	ErrCopy = errors.New("copy failed")
)

// Outcome is the settled state of one unit.
type Outcome string

// Unit outcomes.
const (
	OutcomeCached  Outcome = "cached"
	OutcomeFetched Outcome = "fetched"
	OutcomeFailed  Outcome = "failed"
)

// Result is returned by every unit. Err is non-nil only for OutcomeFailed.
type Result struct {
	Category Category
	Name     string
	Outcome  Outcome
	// Filename is the file written into the output directory.
	Filename string
	Err      error
}

// Failed reports whether the unit failed.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Summary counts unit outcomes for a settled batch.
type Summary struct {
	Cached  int
	Fetched int
	Failed  int
}

// Total returns the number of settled units.
func (s Summary) Total() int {
	return s.Cached + s.Fetched + s.Failed
}

// Summarize tallies the outcomes in results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCached:
			s.Cached++
		case OutcomeFetched:
			s.Fetched++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
