package booking

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/reservectl/internal/guard"
	"github.com/danmuck/reservectl/internal/store"
	"github.com/danmuck/reservectl/internal/testutil/testlog"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	err := store.Bootstrap(dir, []store.Flight{
		{Ref: 12, Destination: "LIS", Available: 50, Capacity: 50, Price: 100},
		{Ref: 23, Destination: "CDG", Available: 3, Capacity: 120, Price: 85},
	})
	require.NoError(t, err)
	return NewService(store.Open(dir), guard.New(), testlog.Start(t)), dir
}

func historyLines(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, store.HistoryFile))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestReserveThenCancelMatchesBillingExample(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Reserve(12, 10, "AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultConfirmed, res.Kind)
	assert.Equal(t, 10, res.Seats)
	assert.Equal(t, 40, res.Available)
	assert.Equal(t, 1000, res.Balance)

	res, err = svc.Cancel(12, 10, "AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultCancelled, res.Kind)
	assert.Equal(t, 50, res.Available)
	assert.Equal(t, 100, res.Penalty)
	assert.Equal(t, 100, res.Balance, "agency keeps only the penalty charge")

	res, err = svc.Invoice("AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultInvoice, res.Kind)
	assert.Equal(t, 100, res.Balance)
}

func TestReserveInsufficientChangesNothing(t *testing.T) {
	svc, dir := newTestService(t)

	res, err := svc.Reserve(23, 4, "AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultInsufficient, res.Kind)
	assert.Equal(t, 3, res.Available)

	flights, err := svc.List(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, flights[1].Available)

	inv, err := svc.Invoice("AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultNoInvoice, inv.Kind)

	lines := historyLines(t, dir)
	require.Len(t, lines, 1)
	assert.Equal(t, "23 AG1 RESERVE 4 FAILED", lines[0])
}

func TestReserveUnknownFlightRecordsHistory(t *testing.T) {
	svc, dir := newTestService(t)

	res, err := svc.Reserve(99, 1, "AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultUnknownFlight, res.Kind)

	inv, err := svc.Invoice("AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultNoInvoice, inv.Kind)

	lines := historyLines(t, dir)
	require.Len(t, lines, 1)
	assert.Equal(t, "99 AG1 RESERVE 1 UNKNOWN", lines[0])
}

func TestCancelUnknownFlightRecordsHistory(t *testing.T) {
	svc, dir := newTestService(t)

	res, err := svc.Cancel(99, 1, "AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultUnknownFlight, res.Kind)

	lines := historyLines(t, dir)
	require.Len(t, lines, 1)
	assert.Equal(t, "99 AG1 CANCEL 1 UNKNOWN", lines[0])
}

func TestPenaltyRoundsToNearestUnit(t *testing.T) {
	assert.Equal(t, 100, Penalty(10, 100))
	assert.Equal(t, 26, Penalty(3, 85))  // 25.5 rounds up
	assert.Equal(t, 1, Penalty(1, 7))    // 0.7 rounds up
	assert.Equal(t, 0, Penalty(1, 4))    // 0.4 rounds down
}

func TestConcurrentReservesNeverDoubleBook(t *testing.T) {
	svc, dir := newTestService(t)

	// 50 seats, 20 workers asking for 5 each: exactly 10 can win.
	const workers = 20
	var wg sync.WaitGroup
	results := make(chan ResultKind, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Reserve(12, 5, "AG1", nil)
			if err != nil {
				t.Error(err)
				return
			}
			results <- res.Kind
		}()
	}
	wg.Wait()
	close(results)

	confirmed := 0
	for kind := range results {
		if kind == ResultConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, 10, confirmed)

	flights, err := svc.List(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, flights[0].Available)
	assert.GreaterOrEqual(t, flights[0].Available, 0)

	inv, err := svc.Invoice("AG1", nil)
	require.NoError(t, err)
	assert.Equal(t, confirmed*5*100, inv.Balance)

	assert.Len(t, historyLines(t, dir), workers)
}

func TestStorageFailureStillRecordsHistory(t *testing.T) {
	svc, dir := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.FlightsFile), []byte("not a table\n"), 0o644))

	_, err := svc.Reserve(12, 5, "AG1", nil)
	require.Error(t, err)
	_, err = svc.Cancel(12, 2, "AG1", nil)
	require.Error(t, err)

	lines := historyLines(t, dir)
	require.Len(t, lines, 2)
	assert.Equal(t, "12 AG1 RESERVE 5 FAILED", lines[0])
	assert.Equal(t, "12 AG1 CANCEL 2 FAILED", lines[1])
}

func TestBillingFailureAfterReserveKeepsFlightMutation(t *testing.T) {
	svc, dir := newTestService(t)

	// Make the billing path unwritable by replacing it with a directory.
	billingPath := filepath.Join(dir, store.BillingFile)
	require.NoError(t, os.Remove(billingPath))
	require.NoError(t, os.MkdirAll(billingPath, 0o755))

	_, err := svc.Reserve(12, 5, "AG1", nil)
	require.Error(t, err)

	flights, err := svc.List(nil)
	require.NoError(t, err)
	assert.Equal(t, 45, flights[0].Available, "committed flight rewrite stands")

	lines := historyLines(t, dir)
	require.Len(t, lines, 1)
	assert.Equal(t, "12 AG1 RESERVE 5 FAILED", lines[0])
}

func TestHistoryFailureDoesNotRollBackReserve(t *testing.T) {
	svc, dir := newTestService(t)

	// Make the history path unwritable by replacing it with a directory.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, store.HistoryFile), 0o755))

	res, err := svc.Reserve(12, 5, "AG1", nil)
	require.NoError(t, err, "history is durable-effort, not transactional")
	assert.Equal(t, ResultConfirmed, res.Kind)

	flights, err := svc.List(nil)
	require.NoError(t, err)
	assert.Equal(t, 45, flights[0].Available)
}
