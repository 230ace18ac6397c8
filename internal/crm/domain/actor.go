package domain

import "github.com/google/uuid"

// Actor is the caller of an engine operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
	// System marks timer-triggered callers such as the reminder sweep.
	System bool
}

// SystemActor is used by background jobs.
func SystemActor() Actor {
	return Actor{System: true}
}

// Privileged reports whether the actor may touch any record.
func (a Actor) Privileged() bool {
	return a.Admin || a.System
}

// CanAccess reports whether the actor may read or mutate a record owned by owner.
func (a Actor) CanAccess(owner *uuid.UUID) bool {
	if a.Privileged() {
		return true
	}
	return owner != nil && *owner == a.UserID
}

// ScopeAssignee resolves the assignee filter of a list query. Non-privileged
// actors always see their own records; privileged actors may pass nil for all.
func (a Actor) ScopeAssignee(requested *uuid.UUID) *uuid.UUID {
	if a.Privileged() {
		return requested
	}
	id := a.UserID
	return &id
}
