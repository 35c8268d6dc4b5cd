// Package booking owns the reservation engine: the semantics of
// LIST / RESERVE / CANCEL / INVOICE against the persisted tables,
// under the per-table lock discipline.
//
// Ownership boundary:
// - flight mutation + matching invoice adjustment as one exclusive hold
// - history record per processed request, success or failure
// - cancellation penalty math
package booking

import (
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/danmuck/reservectl/internal/guard"
	"github.com/danmuck/reservectl/internal/store"
)

// Notify is the busy-notice hook: invoked with the contended resource
// name before the caller blocks on its lock. May be nil.
type Notify func(resource string)

// ResultKind discriminates Result payloads.
type ResultKind int

const (
	ResultConfirmed ResultKind = iota
	ResultInsufficient
	ResultUnknownFlight
	ResultCancelled
	ResultInvoice
	ResultNoInvoice
)

// Result is the outcome of one Reserve/Cancel/Invoice call.
type Result struct {
	Kind      ResultKind
	Ref       int
	Seats     int
	Available int
	Penalty   int
	Agency    string
	Balance   int
}

// Service executes commands against the persisted tables. All methods
// are safe for concurrent use; each takes the table locks it needs and
// releases them before returning.
type Service struct {
	tables store.Tables
	locks  *guard.Guard
	log    zerolog.Logger
}

func NewService(tables store.Tables, locks *guard.Guard, log zerolog.Logger) *Service {
	return &Service{tables: tables, locks: locks, log: log}
}

// List snapshots the flights table in storage order.
func (s *Service) List(notify Notify) ([]store.Flight, error) {
	release := s.acquire(guard.Flights, notify)
	defer release()
	return s.tables.Flights.List()
}

// Reserve books seats on a flight for an agency. The flight mutation,
// the invoice charge, and the history record all happen under the
// flights lock so no concurrent caller can observe one without the
// other.
func (s *Service) Reserve(ref, seats int, agency string, notify Notify) (Result, error) {
	release := s.acquire(guard.Flights, notify)
	defer release()

	flight, err := s.tables.Flights.Reserve(ref, seats)
	var insufficient store.InsufficientSeatsError
	switch {
	case errors.Is(err, store.ErrUnknownFlight):
		s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpReserve, Seats: seats, Outcome: store.OutcomeUnknown}, notify)
		return Result{Kind: ResultUnknownFlight, Ref: ref}, nil
	case errors.As(err, &insufficient):
		s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpReserve, Seats: seats, Outcome: store.OutcomeFailed}, notify)
		return Result{Kind: ResultInsufficient, Ref: ref, Available: insufficient.Available}, nil
	case err != nil:
		s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpReserve, Seats: seats, Outcome: store.OutcomeFailed}, notify)
		return Result{}, err
	}

	balance, err := s.adjustBilling(agency, seats*flight.Price, notify)
	if err != nil {
		s.log.Error().Err(err).Str("agency", agency).Int("ref", ref).Msg("billing adjustment failed after reserve")
		s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpReserve, Seats: seats, Outcome: store.OutcomeFailed}, notify)
		return Result{}, err
	}
	s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpReserve, Seats: seats, Outcome: store.OutcomeOk}, notify)
	return Result{Kind: ResultConfirmed, Ref: ref, Seats: seats, Available: flight.Available, Agency: agency, Balance: balance}, nil
}

// Cancel returns seats to a flight, clamped to capacity, refunds the
// reservation value minus a 10% penalty, and records history.
func (s *Service) Cancel(ref, seats int, agency string, notify Notify) (Result, error) {
	release := s.acquire(guard.Flights, notify)
	defer release()

	flight, err := s.tables.Flights.Cancel(ref, seats)
	switch {
	case errors.Is(err, store.ErrUnknownFlight):
		s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpCancel, Seats: seats, Outcome: store.OutcomeUnknown}, notify)
		return Result{Kind: ResultUnknownFlight, Ref: ref}, nil
	case err != nil:
		s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpCancel, Seats: seats, Outcome: store.OutcomeFailed}, notify)
		return Result{}, err
	}

	value := seats * flight.Price
	penalty := Penalty(seats, flight.Price)
	balance, err := s.adjustBilling(agency, penalty-value, notify)
	if err != nil {
		s.log.Error().Err(err).Str("agency", agency).Int("ref", ref).Msg("billing adjustment failed after cancel")
		s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpCancel, Seats: seats, Outcome: store.OutcomeFailed}, notify)
		return Result{}, err
	}
	s.appendHistory(store.HistoryEntry{Ref: ref, Agency: agency, Op: store.OpCancel, Seats: seats, Outcome: store.OutcomeOk}, notify)
	return Result{Kind: ResultCancelled, Ref: ref, Seats: seats, Available: flight.Available, Penalty: penalty, Agency: agency, Balance: balance}, nil
}

// Invoice reports the agency's running balance.
func (s *Service) Invoice(agency string, notify Notify) (Result, error) {
	release := s.acquire(guard.Billing, notify)
	defer release()

	balance, ok, err := s.tables.Billing.Balance(agency)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Kind: ResultNoInvoice, Agency: agency}, nil
	}
	return Result{Kind: ResultInvoice, Agency: agency, Balance: balance}, nil
}

// Penalty is the retained cancellation fee: 10% of the cancelled
// reservation's value, rounded to the nearest unit.
func Penalty(seats, price int) int {
	return int(math.Round(0.10 * float64(seats*price)))
}

func (s *Service) adjustBilling(agency string, delta int, notify Notify) (int, error) {
	release := s.acquire(guard.Billing, notify)
	defer release()
	return s.tables.Billing.Adjust(agency, delta)
}

// appendHistory records one processed request. Append failures are
// logged and swallowed: history is durable-effort, never a rollback
// trigger for the store mutation that preceded it.
func (s *Service) appendHistory(e store.HistoryEntry, notify Notify) {
	release := s.acquire(guard.History, notify)
	defer release()
	if err := s.tables.History.Append(e); err != nil {
		s.log.Error().Err(err).Int("ref", e.Ref).Str("agency", e.Agency).Msg("history append failed")
	}
}

func (s *Service) acquire(resource guard.Resource, notify Notify) func() {
	if notify == nil {
		return s.locks.Acquire(resource, nil)
	}
	return s.locks.Acquire(resource, func(r guard.Resource) { notify(string(r)) })
}
