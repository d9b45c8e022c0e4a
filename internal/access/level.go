// Package access encodes the ordered account levels and the decisions that
// gate administrative actions. It holds no state and talks to no storage, so
// every check can run before a mutation is attempted.
package access

import (
	"fmt"
	"strings"
)

// Level is an account's access level. Levels are totally ordered:
// user < moderator < admin < owner.
type Level string

const (
	LevelUser      Level = "user"
	LevelModerator Level = "moderator"
	LevelAdmin     Level = "admin"
	LevelOwner     Level = "owner"
)

var order = []Level{LevelUser, LevelModerator, LevelAdmin, LevelOwner}

// Levels returns every level from lowest to highest.
func Levels() []Level {
	out := make([]Level, len(order))
	copy(out, order)
	return out
}

// Rank reports the position of l in the order, or -1 for unknown values.
func (l Level) Rank() int {
	for i, candidate := range order {
		if candidate == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	return l.Rank() >= 0
}

func (l Level) String() string {
	return string(l)
}

// ParseLevel normalises user input into a Level.
func ParseLevel(value string) (Level, error) {
	level := Level(strings.ToLower(strings.TrimSpace(value)))
	if !level.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, value)
	}
	return level, nil
}

// HasAccess reports whether actual is at least required. Unknown levels never
// grant access.
func HasAccess(actual, required Level) bool {
	a, r := actual.Rank(), required.Rank()
	if a < 0 || r < 0 {
		return false
	}
	return a >= r
}
