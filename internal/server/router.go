// Package server owns the two transport bindings of the reservation
// engine: the connection-oriented stream listener and the
// connectionless datagram listener. Both decode requests into the
// shared command vocabulary and hand them to the booking engine.
package server

import (
	"errors"

	"github.com/danmuck/reservectl/internal/booking"
	"github.com/danmuck/reservectl/internal/protocol"
)

type commandResult struct {
	lines   []string
	op      string
	outcome string
}

func (r commandResult) failed() bool {
	return len(r.lines) > 0 && len(r.lines[0]) >= 3 && r.lines[0][:3] == "ERR"
}

// dispatch parses one command line, executes it, and renders the
// response body (without terminal markers). Validation failures never
// touch the store.
func dispatch(svc *booking.Service, line string, notify booking.Notify) commandResult {
	cmd, err := protocol.Parse(line)
	if err != nil {
		var invalid protocol.InvalidCommandError
		if errors.As(err, &invalid) {
			return commandResult{lines: []string{"ERR INVALID " + invalid.Reason}, op: "invalid", outcome: "invalid"}
		}
		return commandResult{lines: []string{"ERR UNKNOWN-COMMAND"}, op: "invalid", outcome: "unknown_command"}
	}

	op := string(cmd.Op)
	switch cmd.Op {
	case protocol.OpList:
		flights, err := svc.List(notify)
		if err != nil {
			return internalError(op)
		}
		return commandResult{lines: protocol.FormatFlights(flights), op: op, outcome: "ok"}

	case protocol.OpReserve:
		res, err := svc.Reserve(cmd.Ref, cmd.Seats, cmd.Agency, notify)
		if err != nil {
			return internalError(op)
		}
		return commandResult{lines: []string{protocol.FormatResult(res)}, op: op, outcome: outcomeLabel(res)}

	case protocol.OpCancel:
		res, err := svc.Cancel(cmd.Ref, cmd.Seats, cmd.Agency, notify)
		if err != nil {
			return internalError(op)
		}
		return commandResult{lines: []string{protocol.FormatResult(res)}, op: op, outcome: outcomeLabel(res)}

	case protocol.OpInvoice:
		res, err := svc.Invoice(cmd.Agency, notify)
		if err != nil {
			return internalError(op)
		}
		return commandResult{lines: []string{protocol.FormatResult(res)}, op: op, outcome: outcomeLabel(res)}
	}
	return commandResult{lines: []string{"ERR UNKNOWN-COMMAND"}, op: "invalid", outcome: "unknown_command"}
}

func internalError(op string) commandResult {
	return commandResult{lines: []string{"ERR INTERNAL"}, op: op, outcome: "error"}
}

func outcomeLabel(res booking.Result) string {
	switch res.Kind {
	case booking.ResultConfirmed, booking.ResultCancelled, booking.ResultInvoice:
		return "ok"
	case booking.ResultInsufficient:
		return "insufficient"
	case booking.ResultUnknownFlight:
		return "unknown_flight"
	case booking.ResultNoInvoice:
		return "no_invoice"
	}
	return "error"
}
