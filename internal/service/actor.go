package service

import "github.com/google/uuid"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID      uuid.UUID
	WorkspaceID *uuid.UUID
	IsSuperuser bool
}

// CanAccessWorkspace reports whether the actor may read or write rows that
// belong to workspace id. Rows without a workspace are superuser-only.
func (a Actor) CanAccessWorkspace(id *uuid.UUID) bool {
	if a.IsSuperuser {
		return true
	}
	return id != nil && a.WorkspaceID != nil && *id == *a.WorkspaceID
}

// CanAccessUser reports whether the actor may act on user id.
func (a Actor) CanAccessUser(id uuid.UUID) bool {
	return a.IsSuperuser || a.UserID == id
}
