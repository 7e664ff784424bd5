package schedule

import "time"

// Reconciler binds the clock and calendar location used by Reconcile.
type Reconciler struct {
	loc *time.Location
	now func() time.Time
}

// NewReconciler builds a Reconciler. A nil location means server local time and
// a nil clock means time.Now.
func NewReconciler(loc *time.Location, now func() time.Time) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{loc: loc, now: now}
}

// Location returns the calendar location used to read date and clock strings.
func (r *Reconciler) Location() *time.Location {
	return r.loc
}

// Create validates the schedule of a new class.
func (r *Reconciler) Create(startDate, startTime, endTime string) (Window, error) {
	return New(startDate, startTime, endTime, r.now(), r.loc)
}

// Update merges patch into the persisted instants.
func (r *Reconciler) Update(start, end time.Time, patch Patch) (Window, error) {
	return Reconcile(FromInstants(start, end, r.loc), patch, r.now(), r.loc)
}
