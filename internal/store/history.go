package store

import (
	"fmt"
	"os"
)

// Operation is the history-log operation kind.
type Operation string

const (
	OpReserve Operation = "RESERVE"
	OpCancel  Operation = "CANCEL"
)

// Outcome is the recorded result of one processed request.
type Outcome string

const (
	OutcomeOk      Outcome = "OK"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeUnknown Outcome = "UNKNOWN"
)

// HistoryEntry is one immutable history-log record.
type HistoryEntry struct {
	Ref     int
	Agency  string
	Op      Operation
	Seats   int
	Outcome Outcome
}

// HistoryLog appends one line per processed request to a durable log.
// The log is never rewritten and never read back at runtime.
type HistoryLog struct {
	path string
}

func NewHistoryLog(path string) *HistoryLog {
	return &HistoryLog{path: path}
}

// Append writes one history line: ref agency operation seats outcome.
func (h *HistoryLog) Append(e HistoryEntry) error {
	f, err := os.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("store: open history log: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d %s %s %d %s\n", e.Ref, e.Agency, e.Op, e.Seats, e.Outcome); err != nil {
		return fmt.Errorf("store: append history: %w", err)
	}
	return nil
}
