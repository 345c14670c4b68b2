package testutil

import (
	"fmt"
	"sync"

	"github.com/trezcool/darasa/core"
)

// Invalidator records report invalidations as "assessment:ID", "course:ID" or "all".
type Invalidator struct {
	mu     sync.Mutex
	events []string
}

var _ core.ReportInvalidator = (*Invalidator)(nil)

func (inv *Invalidator) record(event string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.events = append(inv.events, event)
}

func (inv *Invalidator) InvalidateAssessment(id int) { inv.record(fmt.Sprintf("assessment:%d", id)) }
func (inv *Invalidator) InvalidateCourse(id int)     { inv.record(fmt.Sprintf("course:%d", id)) }
func (inv *Invalidator) InvalidateAll()              { inv.record("all") }

// Events returns the recorded invalidations and forgets them.
func (inv *Invalidator) Events() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	events := inv.events
	inv.events = nil
	return events
}
