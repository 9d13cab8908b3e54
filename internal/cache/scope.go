package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is the entity family a snapshot holds.
type Kind string

const (
	KindBirthdays  Kind = "birthdays"
	KindUsers      Kind = "users"
	KindWorkspaces Kind = "workspaces"
)

// Scope identifies one cached list. A zero WorkspaceID means "all".
type Scope struct {
	Kind        Kind
	WorkspaceID uuid.UUID
}

func BirthdaysAll() Scope { return Scope{Kind: KindBirthdays} }

func BirthdaysByWorkspace(id uuid.UUID) Scope {
	return Scope{Kind: KindBirthdays, WorkspaceID: id}
}

func UsersAll() Scope { return Scope{Kind: KindUsers} }

func WorkspacesAll() Scope { return Scope{Kind: KindWorkspaces} }

// Key renders the scope without the namespace prefix.
func (s Scope) Key() string {
	if s.WorkspaceID == uuid.Nil {
		return fmt.Sprintf("%s:all", s.Kind)
	}
	return fmt.Sprintf("%s:ws:%s", s.Kind, s.WorkspaceID)
}

func (s Scope) String() string {
	return s.Key()
}
