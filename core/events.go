package core

import "sync"

// ReportInvalidator is notified whenever data feeding the score reports changes.
type ReportInvalidator interface {
	InvalidateAssessment(assessmentID int)
	InvalidateCourse(courseID int)
	// InvalidateAll is used when the change cannot be narrowed down to known reports (e.g. a user was removed).
	InvalidateAll()
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateAssessment(int) {}
func (nopInvalidator) InvalidateCourse(int)     {}
func (nopInvalidator) InvalidateAll()           {}

// NopInvalidator ignores every notification.
var NopInvalidator ReportInvalidator = nopInvalidator{}

// InvalidatorRelay forwards notifications to a target set once it exists.
// It lets the services be built before the report engine that reads through them.
type InvalidatorRelay struct {
	mu     sync.RWMutex
	target ReportInvalidator
}

var _ ReportInvalidator = (*InvalidatorRelay)(nil) // interface compliance check

func (r *InvalidatorRelay) SetTarget(target ReportInvalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = target
}

func (r *InvalidatorRelay) get() ReportInvalidator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.target == nil {
		return NopInvalidator
	}
	return r.target
}

func (r *InvalidatorRelay) InvalidateAssessment(assessmentID int) { r.get().InvalidateAssessment(assessmentID) }
func (r *InvalidatorRelay) InvalidateCourse(courseID int)         { r.get().InvalidateCourse(courseID) }
func (r *InvalidatorRelay) InvalidateAll()                        { r.get().InvalidateAll() }
