package store

import "time"

// AllowedLog is one path clients may watch.
type AllowedLog struct {
	Path    string
	AddedAt time.Time
	Note    string // free text, e.g. "imported from allowlist file"
}
