// Package protocol owns the command vocabulary shared by both
// transports: parsing inbound command lines and formatting outcome
// lines. It knows nothing about sockets.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Op is a recognized command operation.
type Op string

const (
	OpList    Op = "LIST"
	OpReserve Op = "RESERVE"
	OpCancel  Op = "CANCEL"
	OpInvoice Op = "INVOICE"
)

var ErrUnknownOp = errors.New("protocol: unknown command")

// InvalidCommandError reports a malformed argument list. The command
// never reaches the store.
type InvalidCommandError struct {
	Op     string
	Reason string
}

func (e InvalidCommandError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("protocol: invalid command: %s", e.Reason)
	}
	return fmt.Sprintf("protocol: invalid %s command: %s", e.Op, e.Reason)
}

// Command is one decoded request.
type Command struct {
	Op     Op
	Ref    int
	Seats  int
	Agency string
}

// Parse decodes one command line. Arg-count and numeric validation
// happen here; anything that parses is safe to hand to the engine.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, InvalidCommandError{Reason: "empty command"}
	}
	switch Op(fields[0]) {
	case OpList:
		if len(fields) != 1 {
			return Command{}, InvalidCommandError{Op: fields[0], Reason: "takes no arguments"}
		}
		return Command{Op: OpList}, nil

	case OpReserve, OpCancel:
		if len(fields) != 4 {
			return Command{}, InvalidCommandError{Op: fields[0], Reason: "want <ref> <seats> <agency>"}
		}
		ref, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, InvalidCommandError{Op: fields[0], Reason: fmt.Sprintf("ref %q is not numeric", fields[1])}
		}
		seats, err := strconv.Atoi(fields[2])
		if err != nil {
			return Command{}, InvalidCommandError{Op: fields[0], Reason: fmt.Sprintf("seats %q is not numeric", fields[2])}
		}
		if seats <= 0 {
			return Command{}, InvalidCommandError{Op: fields[0], Reason: "seats must be positive"}
		}
		return Command{Op: Op(fields[0]), Ref: ref, Seats: seats, Agency: fields[3]}, nil

	case OpInvoice:
		if len(fields) != 2 {
			return Command{}, InvalidCommandError{Op: fields[0], Reason: "want <agency>"}
		}
		return Command{Op: OpInvoice, Agency: fields[1]}, nil
	}
	return Command{}, fmt.Errorf("%w: %s", ErrUnknownOp, fields[0])
}
