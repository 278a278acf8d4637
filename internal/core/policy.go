package core

import "time"

// DefaultEditWindow is how long after creation an entry may still be changed.
const DefaultEditWindow = 12 * time.Hour

// EditPolicy decides whether an entry may be updated or deleted.
type EditPolicy struct {
	Window time.Duration
}

func NewEditPolicy(window time.Duration) EditPolicy {
	if window <= 0 {
		window = DefaultEditWindow
	}
	return EditPolicy{Window: window}
}

// CanEdit is true while createdAt is strictly after now minus the window.
func (p EditPolicy) CanEdit(createdAt, now time.Time) bool {
	return createdAt.After(now.Add(-p.Window))
}

// Check returns ErrEditWindowExpired when the entry is outside the window.
func (p EditPolicy) Check(e Entry, now time.Time) error {
	if !p.CanEdit(e.CreatedAt, now) {
		return ErrEditWindowExpired
	}
	return nil
}
