// Package datagram owns the connectionless wire format: a fixed
// binary header {sequence, operation tag, payload length} followed by
// a UTF-8 text payload, plus the sender-side retry discipline.
package datagram

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderLen is the fixed wire header size in bytes.
	HeaderLen = 13
	// TagLen is the NUL-padded operation tag width.
	TagLen = 5
	// MaxPayload bounds decode memory; well above any table the
	// engine serves.
	MaxPayload = 60 * 1024
)

// Operation tags.
const (
	TagList    = "LIST"
	TagReserve = "RSRV"
	TagCancel  = "ANUL"
	TagInvoice = "FACT"
	TagWait    = "WAIT"
	TagError   = "ERR"
)

var (
	ErrShortHeader     = errors.New("datagram: short header")
	ErrTruncated       = errors.New("datagram: payload shorter than header length")
	ErrPayloadTooLarge = errors.New("datagram: payload too large")
	ErrBadTag          = errors.New("datagram: invalid operation tag")
)

// Header is the fixed wire header.
type Header struct {
	Seq    uint32
	Tag    string
	Length uint32
}

// Packet is one complete datagram.
type Packet struct {
	Header  Header
	Payload []byte
}

func validTag(tag string) bool {
	switch tag {
	case TagList, TagReserve, TagCancel, TagInvoice, TagWait, TagError:
		return true
	}
	return false
}

// Encode serializes a packet. The header length field is always
// derived from the payload.
func Encode(p Packet) ([]byte, error) {
	if !validTag(p.Header.Tag) {
		return nil, fmt.Errorf("%w: %q", ErrBadTag, p.Header.Tag)
	}
	if len(p.Payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen+len(p.Payload))
	binary.BigEndian.PutUint32(buf[0:4], p.Header.Seq)
	copy(buf[4:4+TagLen], p.Header.Tag)
	binary.BigEndian.PutUint32(buf[4+TagLen:HeaderLen], uint32(len(p.Payload)))
	copy(buf[HeaderLen:], p.Payload)
	return buf, nil
}

// Decode parses one received datagram. Trailing bytes beyond the
// declared payload length are rejected as malformed.
func Decode(b []byte) (Packet, error) {
	if len(b) < HeaderLen {
		return Packet{}, ErrShortHeader
	}
	h := Header{
		Seq:    binary.BigEndian.Uint32(b[0:4]),
		Tag:    string(bytes.TrimRight(b[4:4+TagLen], "\x00")),
		Length: binary.BigEndian.Uint32(b[4+TagLen : HeaderLen]),
	}
	if !validTag(h.Tag) {
		return Packet{}, fmt.Errorf("%w: %q", ErrBadTag, h.Tag)
	}
	if h.Length > MaxPayload {
		return Packet{}, ErrPayloadTooLarge
	}
	if uint32(len(b)-HeaderLen) != h.Length {
		return Packet{}, ErrTruncated
	}
	payload := make([]byte, h.Length)
	copy(payload, b[HeaderLen:])
	return Packet{Header: h, Payload: payload}, nil
}
