// Package types defines every cross‑package data structure used by the rtree CLI.
package types

const (
	CommandLocal  = "local"
	CommandRemote = "remote"

	ModeFlat        = "flat"
	ModeIncremental = "incremental"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Entry is one listed path together with its directory flag, as returned by a
// bulk or per-folder listing call.
type Entry struct {
	Path        string
	IsDirectory bool
}

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

// Repository identifies one remote root.
type Repository struct {
	ID   string
	Name string
}
