// Package store persists the user dictionary layer in SQLite.
package store

import "time"

// Action names a recorded dictionary mutation.
type Action string

const (
	ActionSave   Action = "save"
	ActionDelete Action = "delete"
)

// Registration is one row of the mutation history.
type Registration struct {
	ID        int64
	Midashigo string
	Word      string
	Action    Action
	CreatedAt time.Time
}

// Stats summarizes the stored dictionary.
type Stats struct {
	Entries       int
	Candidates    int
	Registrations int
	SchemaVersion int
}
