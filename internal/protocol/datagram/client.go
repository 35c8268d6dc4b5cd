package datagram

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

var (
	ErrRetriesExhausted = errors.New("datagram: no reply within retry ceiling")
)

// Config defines sender-side reliability: how long to wait for a
// matching reply per attempt and how many attempts before giving up.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

func DefaultConfig() Config {
	return Config{
		Timeout:    2 * time.Second,
		MaxRetries: 4,
	}
}

// Client sends request datagrams and waits for sequence-matched
// replies, retransmitting on timeout. One request is in flight at a
// time per Client.
type Client struct {
	conn *net.UDPConn
	cfg  Config
	seq  uint32
}

func Dial(addr string, cfg Config) (*Client, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("datagram: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("datagram: dial %s: %w", addr, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Client{conn: conn, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one request and blocks for the final reply. Replies whose
// sequence number does not match are discarded. A WAIT packet with the
// matching sequence number is a liveness signal from a contended
// server: it resets the attempt deadline instead of counting as the
// final reply, so the sender does not retransmit into a held lock.
func (c *Client) Do(tag string, payload []byte) (Packet, error) {
	seq := atomic.AddUint32(&c.seq, 1)
	req, err := Encode(Packet{Header: Header{Seq: seq, Tag: tag}, Payload: payload})
	if err != nil {
		return Packet{}, err
	}

	buf := make([]byte, HeaderLen+MaxPayload)
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if _, err := c.conn.Write(req); err != nil {
			return Packet{}, fmt.Errorf("datagram: send attempt %d: %w", attempt, err)
		}

		deadline := time.Now().Add(c.cfg.Timeout)
		for {
			if err := c.conn.SetReadDeadline(deadline); err != nil {
				return Packet{}, err
			}
			n, err := c.conn.Read(buf)
			if err != nil {
				if isTimeout(err) {
					break
				}
				return Packet{}, fmt.Errorf("datagram: recv attempt %d: %w", attempt, err)
			}
			reply, err := Decode(buf[:n])
			if err != nil {
				continue
			}
			if reply.Header.Seq != seq {
				continue
			}
			if reply.Header.Tag == TagWait {
				deadline = time.Now().Add(c.cfg.Timeout)
				continue
			}
			return reply, nil
		}
	}
	return Packet{}, fmt.Errorf("%w: seq=%d attempts=%d", ErrRetriesExhausted, seq, c.cfg.MaxRetries)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
