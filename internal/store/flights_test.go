package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFlights(t *testing.T) *FlightStore {
	t.Helper()
	dir := t.TempDir()
	err := Bootstrap(dir, []Flight{
		{Ref: 12, Destination: "LIS", Available: 50, Capacity: 50, Price: 100},
		{Ref: 23, Destination: "CDG", Available: 3, Capacity: 120, Price: 85},
	})
	require.NoError(t, err)
	return NewFlightStore(filepath.Join(dir, FlightsFile))
}

func TestListReturnsStorageOrder(t *testing.T) {
	s := seedFlights(t)
	flights, err := s.List()
	require.NoError(t, err)
	require.Len(t, flights, 2)
	assert.Equal(t, 12, flights[0].Ref)
	assert.Equal(t, 23, flights[1].Ref)
	assert.Equal(t, "LIS", flights[0].Destination)
}

func TestReserveDecrementsAndPersists(t *testing.T) {
	s := seedFlights(t)
	f, err := s.Reserve(12, 10)
	require.NoError(t, err)
	assert.Equal(t, 40, f.Available)

	reread, err := s.Get(12)
	require.NoError(t, err)
	assert.Equal(t, 40, reread.Available)
}

func TestReserveInsufficientLeavesTableUntouched(t *testing.T) {
	s := seedFlights(t)
	_, err := s.Reserve(23, 4)
	var insufficient InsufficientSeatsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Available)

	reread, err := s.Get(23)
	require.NoError(t, err)
	assert.Equal(t, 3, reread.Available)
}

func TestReserveUnknownFlight(t *testing.T) {
	s := seedFlights(t)
	_, err := s.Reserve(99, 1)
	require.ErrorIs(t, err, ErrUnknownFlight)
}

func TestCancelClampsToCapacity(t *testing.T) {
	s := seedFlights(t)
	f, err := s.Cancel(12, 10)
	require.NoError(t, err)
	assert.Equal(t, 50, f.Available, "available must never exceed capacity")

	f, err = s.Cancel(23, 500)
	require.NoError(t, err)
	assert.Equal(t, 120, f.Available)
}

func TestCancelUnknownFlight(t *testing.T) {
	s := seedFlights(t)
	_, err := s.Cancel(404, 1)
	require.ErrorIs(t, err, ErrUnknownFlight)
}

func TestCorruptLineIsStorageError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FlightsFile)
	require.NoError(t, os.WriteFile(path, []byte("12 LIS notanumber 50 100\n"), 0o644))

	s := NewFlightStore(path)
	_, err := s.List()
	require.ErrorIs(t, err, ErrCorruptTable)
}

func TestRewriteLeavesNoTempFile(t *testing.T) {
	s := seedFlights(t)
	_, err := s.Reserve(12, 1)
	require.NoError(t, err)

	_, statErr := os.Stat(s.Path() + ".tmp")
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "temp table must be renamed away")
}

func TestBootstrapKeepsExistingTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Bootstrap(dir, []Flight{{Ref: 1, Destination: "LIS", Available: 5, Capacity: 5, Price: 10}}))

	s := NewFlightStore(filepath.Join(dir, FlightsFile))
	_, err := s.Reserve(1, 2)
	require.NoError(t, err)

	// Re-running bootstrap must not reset accumulated state.
	require.NoError(t, Bootstrap(dir, []Flight{{Ref: 1, Destination: "LIS", Available: 5, Capacity: 5, Price: 10}}))
	f, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Available)
}
