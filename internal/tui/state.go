package tui

import "time"

// Unknown is shown for server fields that have never been fetched.
const Unknown = "Unknown"

// Snapshot is one poll's view of the server. It is never mutated after
// construction; each cycle builds a new one.
type Snapshot struct {
	Timestamp    time.Time
	Hostname     string
	Version      string
	ProjectCount int
	Changes      []ChangeRow
}

type ChangeRow struct {
	Number     int
	Owner      string
	ChangeID   string
	Subject    string
	Insertions *int // nil = unknown
	Deletions  *int
}

// InitialSnapshot is the state before any poll has succeeded.
func InitialSnapshot() Snapshot {
	return Snapshot{
		Hostname: Unknown,
		Version:  Unknown,
	}
}
