package domain

import "time"

// UnknownProgram is an unregistered program seen in a probable swap.
type UnknownProgram struct {
	ProgramID    string
	GuessedVenue string // from prefix discovery, empty when nothing matched
	Slot         int64  // slot of the sighting
	Signature    string
}

// ScanStatus is the outcome of one scope.
type ScanStatus string

const (
	ScanCompleted ScanStatus = "completed"
	ScanSkipped   ScanStatus = "skipped"
	ScanFailed    ScanStatus = "failed"
)

// ScanProgress records what happened to one slot during a scan run.
type ScanProgress struct {
	RunID        string
	Slot         int64
	Status       ScanStatus
	Transactions int
	Swaps        int
	Findings     int
	Error        string
	ScannedAt    time.Time
}

// UnknownProgramStat aggregates the sightings of one unregistered program.
type UnknownProgramStat struct {
	ProgramID     string
	GuessedVenue  string
	Sightings     int
	FirstSlot     int64
	LastSlot      int64
	LastSignature string
}

// VenueStat is swap activity on one venue over a slot range.
type VenueStat struct {
	Venue   string
	Swaps   int
	Wallets int
}
