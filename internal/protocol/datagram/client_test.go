package datagram

import (
	"errors"
	"net"
	"testing"
	"time"
)

// fakePeer binds a loopback UDP socket and answers with the script fn.
func fakePeer(t *testing.T, fn func(conn *net.UDPConn, req Packet, addr *net.UDPAddr)) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, HeaderLen+MaxPayload)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			req, err := Decode(buf[:n])
			if err != nil {
				continue
			}
			fn(conn, req, addr)
		}
	}()
	return conn.LocalAddr().String()
}

func reply(conn *net.UDPConn, addr *net.UDPAddr, seq uint32, tag string, payload string) {
	data, err := Encode(Packet{Header: Header{Seq: seq, Tag: tag}, Payload: []byte(payload)})
	if err != nil {
		return
	}
	conn.WriteToUDP(data, addr)
}

func TestDoReturnsMatchingReply(t *testing.T) {
	addr := fakePeer(t, func(conn *net.UDPConn, req Packet, peer *net.UDPAddr) {
		reply(conn, peer, req.Header.Seq, req.Header.Tag, "CONFIRMED 2 12")
	})
	c, err := Dial(addr, Config{Timeout: time.Second, MaxRetries: 2})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	got, err := c.Do(TagReserve, []byte("12 2 AG1"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(got.Payload) != "CONFIRMED 2 12" {
		t.Fatalf("unexpected payload: %q", got.Payload)
	}
}

func TestDoRetransmitsAfterDrop(t *testing.T) {
	seen := 0
	addr := fakePeer(t, func(conn *net.UDPConn, req Packet, peer *net.UDPAddr) {
		seen++
		if seen == 1 {
			return // drop the first request
		}
		reply(conn, peer, req.Header.Seq, req.Header.Tag, "ok")
	})
	c, err := Dial(addr, Config{Timeout: 150 * time.Millisecond, MaxRetries: 3})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Do(TagList, nil); err != nil {
		t.Fatalf("do after drop: %v", err)
	}
	if seen < 2 {
		t.Fatalf("expected a retransmission, server saw %d requests", seen)
	}
}

func TestDoIgnoresStaleSequenceNumbers(t *testing.T) {
	addr := fakePeer(t, func(conn *net.UDPConn, req Packet, peer *net.UDPAddr) {
		reply(conn, peer, req.Header.Seq+1000, req.Header.Tag, "stale")
		reply(conn, peer, req.Header.Seq, req.Header.Tag, "fresh")
	})
	c, err := Dial(addr, Config{Timeout: time.Second, MaxRetries: 2})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	got, err := c.Do(TagInvoice, []byte("AG1"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(got.Payload) != "fresh" {
		t.Fatalf("accepted a stale reply: %q", got.Payload)
	}
}

func TestDoWaitNoticeResetsAttemptDeadline(t *testing.T) {
	addr := fakePeer(t, func(conn *net.UDPConn, req Packet, peer *net.UDPAddr) {
		// Keep the sender alive past its per-attempt timeout with
		// busy notices, then answer at 300ms. With a 200ms timeout
		// and one attempt, only the deadline resets let this pass.
		reply(conn, peer, req.Header.Seq, TagWait, "flights")
		go func() {
			time.Sleep(150 * time.Millisecond)
			reply(conn, peer, req.Header.Seq, TagWait, "flights")
			time.Sleep(150 * time.Millisecond)
			reply(conn, peer, req.Header.Seq, req.Header.Tag, "done")
		}()
	})
	c, err := Dial(addr, Config{Timeout: 200 * time.Millisecond, MaxRetries: 1})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	got, err := c.Do(TagCancel, []byte("12 1 AG1"))
	if err != nil {
		t.Fatalf("do with wait notice: %v", err)
	}
	if string(got.Payload) != "done" {
		t.Fatalf("unexpected payload: %q", got.Payload)
	}
}

func TestDoGivesUpAfterRetryCeiling(t *testing.T) {
	addr := fakePeer(t, func(conn *net.UDPConn, req Packet, peer *net.UDPAddr) {
		// Silent peer: never reply.
	})
	c, err := Dial(addr, Config{Timeout: 50 * time.Millisecond, MaxRetries: 2})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	start := time.Now()
	_, err = c.Do(TagList, nil)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("gave up too early: %v", elapsed)
	}
}
