// Package store owns the three persisted tables: flight inventory,
// per-agency billing balances, and the append-only history log.
//
// Ownership boundary:
// - flat-file encoding of each table
// - atomic whole-table rewrite (temp file + rename)
// - single-operation read/modify/rewrite cycles
//
// Mutual exclusion between callers is not handled here; see guard.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrUnknownFlight = errors.New("store: unknown flight reference")
	ErrCorruptTable  = errors.New("store: corrupt table record")
)

// InsufficientSeatsError reports a reservation that asked for more
// seats than the flight currently has available.
type InsufficientSeatsError struct {
	Ref       int
	Available int
}

func (e InsufficientSeatsError) Error() string {
	return fmt.Sprintf("store: flight %d has only %d seats available", e.Ref, e.Available)
}

// Flight is one row of the flights table.
type Flight struct {
	Ref         int
	Destination string
	Available   int
	Capacity    int
	Price       int
}

// FormatFlight renders one flights-table line: ref destination available capacity price.
func FormatFlight(f Flight) string {
	return fmt.Sprintf("%d %s %d %d %d", f.Ref, f.Destination, f.Available, f.Capacity, f.Price)
}

func parseFlight(line string) (Flight, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Flight{}, fmt.Errorf("%w: want 5 fields, got %d", ErrCorruptTable, len(fields))
	}
	ref, err := strconv.Atoi(fields[0])
	if err != nil {
		return Flight{}, fmt.Errorf("%w: ref %q", ErrCorruptTable, fields[0])
	}
	available, err := strconv.Atoi(fields[2])
	if err != nil {
		return Flight{}, fmt.Errorf("%w: available %q", ErrCorruptTable, fields[2])
	}
	capacity, err := strconv.Atoi(fields[3])
	if err != nil {
		return Flight{}, fmt.Errorf("%w: capacity %q", ErrCorruptTable, fields[3])
	}
	price, err := strconv.Atoi(fields[4])
	if err != nil {
		return Flight{}, fmt.Errorf("%w: price %q", ErrCorruptTable, fields[4])
	}
	return Flight{
		Ref:         ref,
		Destination: fields[1],
		Available:   available,
		Capacity:    capacity,
		Price:       price,
	}, nil
}

// FlightStore persists the flights table in one flat file. Every
// operation re-reads the file so no caller ever works from a stale
// in-memory copy.
type FlightStore struct {
	path string
}

func NewFlightStore(path string) *FlightStore {
	return &FlightStore{path: path}
}

func (s *FlightStore) Path() string {
	return s.path
}

// List returns all flights in storage order.
func (s *FlightStore) List() ([]Flight, error) {
	return s.load()
}

// Get returns the flight with the given reference.
func (s *FlightStore) Get(ref int) (Flight, error) {
	flights, err := s.load()
	if err != nil {
		return Flight{}, err
	}
	for _, f := range flights {
		if f.Ref == ref {
			return f, nil
		}
	}
	return Flight{}, fmt.Errorf("%w: %d", ErrUnknownFlight, ref)
}

// Reserve decrements available seats for ref and rewrites the table.
// On insufficient seats the table is left untouched.
func (s *FlightStore) Reserve(ref, seats int) (Flight, error) {
	flights, err := s.load()
	if err != nil {
		return Flight{}, err
	}
	for i, f := range flights {
		if f.Ref != ref {
			continue
		}
		if f.Available < seats {
			return Flight{}, InsufficientSeatsError{Ref: ref, Available: f.Available}
		}
		f.Available -= seats
		flights[i] = f
		if err := s.replace(flights); err != nil {
			return Flight{}, err
		}
		return f, nil
	}
	return Flight{}, fmt.Errorf("%w: %d", ErrUnknownFlight, ref)
}

// Cancel returns seats to a flight, clamped to capacity, and rewrites
// the table. Returns the updated row.
func (s *FlightStore) Cancel(ref, seats int) (Flight, error) {
	flights, err := s.load()
	if err != nil {
		return Flight{}, err
	}
	for i, f := range flights {
		if f.Ref != ref {
			continue
		}
		f.Available += seats
		if f.Available > f.Capacity {
			f.Available = f.Capacity
		}
		flights[i] = f
		if err := s.replace(flights); err != nil {
			return Flight{}, err
		}
		return f, nil
	}
	return Flight{}, fmt.Errorf("%w: %d", ErrUnknownFlight, ref)
}

func (s *FlightStore) load() ([]Flight, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("store: read flights table: %w", err)
	}
	var flights []Flight
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		f, err := parseFlight(line)
		if err != nil {
			return nil, fmt.Errorf("%w (%s)", err, s.path)
		}
		flights = append(flights, f)
	}
	return flights, nil
}

func (s *FlightStore) replace(flights []Flight) error {
	var b strings.Builder
	for _, f := range flights {
		b.WriteString(FormatFlight(f))
		b.WriteByte('\n')
	}
	return replaceFile(s.path, []byte(b.String()))
}

// replaceFile atomically swaps a table's contents: the new version is
// written to a sibling temp file, synced, and renamed over the
// original. Readers see either the old table or the new one in full.
func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("store: open temp table: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: write temp table: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: sync temp table: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: close temp table: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: replace table: %w", err)
	}
	return nil
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}
	return replaceFile(path, nil)
}
