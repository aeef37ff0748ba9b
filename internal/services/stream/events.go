package stream

import (
	"time"
)

const SchemaVersion = 1

type EventKind string

const (
	EventKindStart   EventKind = "start"
	EventKindNode    EventKind = "node"
	EventKindError   EventKind = "error"
	EventKindWarning EventKind = "warning"
	EventKindSummary EventKind = "summary"
	EventKindDone    EventKind = "done"
)

// Event is one step of a rendering stream. Path is the root the event belongs
// to: a repository name or a local directory path.
type Event struct {
	Version   int       `json:"version"`
	Kind      EventKind `json:"kind"`
	Command   string    `json:"command,omitempty"`
	Path      string    `json:"path,omitempty"`
	Depth     int       `json:"depth,omitempty"`
	EmittedAt time.Time `json:"emittedAt,omitempty"`

	Node    *NodeEvent    `json:"node,omitempty"`
	Summary *SummaryEvent `json:"summary,omitempty"`
	Message *LogEvent     `json:"message,omitempty"`
	Err     *ErrorEvent   `json:"error,omitempty"`
}

type NodeEvent struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
}

// SummaryEvent carries the final counters of one invocation.
// Repositories is reported only for remote commands.
type SummaryEvent struct {
	Repositories        int  `json:"repositories,omitempty"`
	Directories         int  `json:"directories"`
	Files               int  `json:"files"`
	IncludeRepositories bool `json:"-"`
}

type LogEvent struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
