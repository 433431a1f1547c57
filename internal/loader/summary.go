package loader

import (
	"fmt"

	"github.com/yeshinnorbu/claw/internal/entity"
)

// maxFailureReasons bounds how many per-record reasons a summary retains.
const maxFailureReasons = 20

// Summary is the typed outcome of one load phase: every record ends up
// inserted, updated, skipped or failed-with-reason, and the totals are
// surfaced to the operator instead of being silently swallowed.
type Summary struct {
	Kind     entity.Kind
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
	Failures []string
}

func newSummary(kind entity.Kind) *Summary {
	return &Summary{Kind: kind}
}

func (s *Summary) fail(reason string, err error) {
	s.Failed++
	if len(s.Failures) < maxFailureReasons {
		s.Failures = append(s.Failures, fmt.Sprintf("%s: %v", reason, err))
	}
}

// Total is the number of drafts the phase attempted.
func (s *Summary) Total() int {
	return s.Inserted + s.Updated + s.Skipped + s.Failed
}
