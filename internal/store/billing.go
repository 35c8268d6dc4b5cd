package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BillingLedger persists per-agency running balances, one
// "agency balance" line per agency, rewritten in full on every
// adjustment.
type BillingLedger struct {
	path string
}

func NewBillingLedger(path string) *BillingLedger {
	return &BillingLedger{path: path}
}

type invoiceRow struct {
	agency  string
	balance int
}

// Balance returns the agency's running balance, or ok=false when the
// agency has never been charged.
func (l *BillingLedger) Balance(agency string) (int, bool, error) {
	rows, err := l.load()
	if err != nil {
		return 0, false, err
	}
	for _, row := range rows {
		if row.agency == agency {
			return row.balance, true, nil
		}
	}
	return 0, false, nil
}

// Adjust applies delta to the agency's balance, inserting the row on
// first charge, and atomically rewrites the table. Returns the new
// balance.
func (l *BillingLedger) Adjust(agency string, delta int) (int, error) {
	rows, err := l.load()
	if err != nil {
		return 0, err
	}
	balance := delta
	found := false
	for i, row := range rows {
		if row.agency == agency {
			rows[i].balance += delta
			balance = rows[i].balance
			found = true
			break
		}
	}
	if !found {
		rows = append(rows, invoiceRow{agency: agency, balance: delta})
	}
	if err := l.replace(rows); err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *BillingLedger) load() ([]invoiceRow, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read billing table: %w", err)
	}
	var rows []invoiceRow
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: want 2 fields, got %d (%s)", ErrCorruptTable, len(fields), l.path)
		}
		balance, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: balance %q (%s)", ErrCorruptTable, fields[1], l.path)
		}
		rows = append(rows, invoiceRow{agency: fields[0], balance: balance})
	}
	return rows, nil
}

func (l *BillingLedger) replace(rows []invoiceRow) error {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %d\n", row.agency, row.balance)
	}
	return replaceFile(l.path, []byte(b.String()))
}
