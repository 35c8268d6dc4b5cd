package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	FlightsFile = "flights.txt"
	BillingFile = "billing.txt"
	HistoryFile = "history.txt"
)

// Tables bundles the three persisted tables rooted at one data
// directory.
type Tables struct {
	Flights *FlightStore
	Billing *BillingLedger
	History *HistoryLog
}

// Open returns table handles rooted at dir. Call Bootstrap first to
// create the files.
func Open(dir string) Tables {
	return Tables{
		Flights: NewFlightStore(filepath.Join(dir, FlightsFile)),
		Billing: NewBillingLedger(filepath.Join(dir, BillingFile)),
		History: NewHistoryLog(filepath.Join(dir, HistoryFile)),
	}
}

// Bootstrap creates the data directory and seeds the flights table
// when it does not exist yet. An existing flights table is left
// untouched so restarts keep accumulated state.
func Bootstrap(dir string, seed []Flight) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}
	flightsPath := filepath.Join(dir, FlightsFile)
	if _, err := os.Stat(flightsPath); err == nil {
		return ensureFile(filepath.Join(dir, BillingFile))
	}
	var b strings.Builder
	for _, f := range seed {
		b.WriteString(FormatFlight(f))
		b.WriteByte('\n')
	}
	if err := replaceFile(flightsPath, []byte(b.String())); err != nil {
		return err
	}
	return ensureFile(filepath.Join(dir, BillingFile))
}
