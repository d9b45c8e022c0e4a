// Package models holds the gorm models and the value types persisted with
// them.
package models

// All returns every model that must be migrated.
func All() []any {
	return []any{
		&Account{},
		&RefreshToken{},
		&Profile{},
		&Visit{},
		&Contact{},
		&CVDownload{},
		&SessionRecord{},
	}
}
