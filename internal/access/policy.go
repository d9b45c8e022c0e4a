package access

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the authorization checks.
var (
	ErrForbidden    = errors.New("access: insufficient access level")
	ErrSelfChange   = errors.New("access: cannot change own access level")
	ErrInvalidLevel = errors.New("access: invalid access level")
	ErrNoTarget     = errors.New("access: target identity is required")
)

// Principal is the caller of a gated action.
type Principal struct {
	ID    string
	Level Level
}

// Is reports whether the principal is the identity with the given id.
func (p Principal) Is(id string) bool {
	return p.ID != "" && p.ID == strings.TrimSpace(id)
}

// AuthorizeAccessChange decides whether caller may set target's access level
// to next. Only owners may reassign levels and never on their own row, so the
// last owner cannot lock themselves out.
func AuthorizeAccessChange(caller Principal, targetID string, next Level) error {
	if !next.Valid() {
		return ErrInvalidLevel
	}
	if strings.TrimSpace(targetID) == "" {
		return ErrNoTarget
	}
	if caller.Level != LevelOwner {
		return ErrForbidden
	}
	if caller.Is(targetID) {
		return ErrSelfChange
	}
	return nil
}

// AuthorizeShortcutEdit decides whether caller may edit the shortcut list of
// targetID. Editing one's own list is always allowed; another identity's list
// requires admin.
func AuthorizeShortcutEdit(caller Principal, targetID string) error {
	if strings.TrimSpace(targetID) == "" {
		return ErrNoTarget
	}
	if caller.Is(targetID) {
		return nil
	}
	if !HasAccess(caller.Level, LevelAdmin) {
		return ErrForbidden
	}
	return nil
}

// CanViewAdmin reports whether the administrative section is visible to level.
func CanViewAdmin(level Level) bool {
	return HasAccess(level, LevelAdmin)
}
