// Package cycle defines the transient record of one automation cycle.
package cycle

import "time"

// Phase names, in execution order.
const (
	PhaseScan        = "scan"
	PhaseWishlist    = "wishlist_scan"
	PhaseDLC         = "dlc_scan"
	PhaseWinSync     = "win_sync"
	PhaseEnteredSync = "entered_sync"
	PhaseEntry       = "entry"
)

// Skip reasons surfaced on runs and phases.
const (
	SkipReasonNotAuthenticated   = "not_authenticated"
	SkipReasonSessionInvalid     = "session invalid"
	SkipReasonAutomationDisabled = "automation disabled"
	SkipReasonDLCDisabled        = "dlc scanning disabled"
	SkipReasonAlreadyRunning     = "cycle already running"
)

// ScanStats is the outcome of one scan phase.
type ScanStats struct {
	New          int `json:"new"`
	Updated      int `json:"updated"`
	PagesScanned int `json:"pagesScanned"`
}

// EntryStats is the outcome of the entry phase.
type EntryStats struct {
	Eligible    int `json:"eligible"`
	Entered     int `json:"entered"`
	Failed      int `json:"failed"`
	PointsSpent int `json:"pointsSpent"`
}

// SyncStats is the outcome of a win/entered sync phase.
type SyncStats struct {
	Checked int `json:"checked"`
	Marked  int `json:"marked"`
}

// PhaseResult records one phase. Errors are downgraded to the Error field so a
// partially failed cycle still yields a full, renderable run record.
type PhaseResult struct {
	Phase   string      `json:"phase"`
	Skipped bool        `json:"skipped,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Error   string      `json:"error,omitempty"`
	Scan    *ScanStats  `json:"scan,omitempty"`
	Entry   *EntryStats `json:"entry,omitempty"`
	Sync    *SyncStats  `json:"sync,omitempty"`
}

// Run is one cycle execution. Only the most recent run is retained.
type Run struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Phases    []PhaseResult `json:"phases,omitempty"`
}
