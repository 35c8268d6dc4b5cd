package protocol

import (
	"fmt"

	"github.com/danmuck/reservectl/internal/booking"
	"github.com/danmuck/reservectl/internal/store"
)

// EndMarker terminates every stream response.
const EndMarker = "END"

// WaitPrefix prefixes interim busy-notice lines on the stream
// transport.
const WaitPrefix = "WAIT "

// FormatResult renders one engine result as a response line.
func FormatResult(res booking.Result) string {
	switch res.Kind {
	case booking.ResultConfirmed:
		return fmt.Sprintf("CONFIRMED %d %d", res.Seats, res.Ref)
	case booking.ResultInsufficient:
		return fmt.Sprintf("INSUFFICIENT %d", res.Available)
	case booking.ResultUnknownFlight:
		return fmt.Sprintf("UNKNOWN %d", res.Ref)
	case booking.ResultCancelled:
		return fmt.Sprintf("CANCELLED %d %d %d", res.Seats, res.Ref, res.Penalty)
	case booking.ResultInvoice:
		return fmt.Sprintf("INVOICE %s %d", res.Agency, res.Balance)
	case booking.ResultNoInvoice:
		return fmt.Sprintf("NOINVOICE %s", res.Agency)
	}
	return "ERR INTERNAL"
}

// FormatFlights renders the LIST response body, one table line per
// flight.
func FormatFlights(flights []store.Flight) []string {
	lines := make([]string, 0, len(flights))
	for _, f := range flights {
		lines = append(lines, store.FormatFlight(f))
	}
	return lines
}
