package diagram

import (
	"encoding/json"
	"fmt"
)

// Permission is the closed set of access levels an actor can hold on a
// diagram. The numeric order is the capability order: a level grants
// everything below it, so comparisons use AtLeast rather than ad-hoc
// string checks.
//
// PermissionOwner granted through a share gives owner-equivalent rights on
// payload and shares but does NOT make the grantee the creator: delete stays
// reserved to the literal OwnerID (see access.CanDelete).
type Permission int

const (
	PermissionNone Permission = iota
	PermissionViewer
	PermissionEditor
	PermissionOwner
)

const (
	permNone   = "none"
	permViewer = "viewer"
	permEditor = "editor"
	permOwner  = "owner"
)

func (p Permission) String() string {
	switch p {
	case PermissionViewer:
		return permViewer
	case PermissionEditor:
		return permEditor
	case PermissionOwner:
		return permOwner
	}
	return permNone
}

// AtLeast reports whether p grants the capabilities of q.
func (p Permission) AtLeast(q Permission) bool { return p >= q }

// ParsePermission maps a wire-level string to a Permission. "none" is not a
// grantable level and is rejected like any other unknown value.
func ParsePermission(s string) (Permission, error) {
	switch s {
	case permViewer:
		return PermissionViewer, nil
	case permEditor:
		return PermissionEditor, nil
	case permOwner:
		return PermissionOwner, nil
	}
	return PermissionNone, fmt.Errorf("unknown permission level %q", s)
}

func (p Permission) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Permission) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePermission(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
