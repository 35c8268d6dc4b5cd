package server

import (
	"context"
	"hash/fnv"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/reservectl/internal/booking"
	"github.com/danmuck/reservectl/internal/observability"
	"github.com/danmuck/reservectl/internal/protocol/datagram"
)

// maxReplyClients bounds the duplicate-suppression cache. When the
// table fills up it is dropped wholesale; losing a cached reply only
// costs one re-execution for a client that went silent long ago.
const maxReplyClients = 4096

type cachedReply struct {
	seq  uint32
	data []byte
}

// DatagramServer serves the connectionless protocol: one receive loop
// feeding a small worker pool. Each well-formed request is answered
// exactly once per distinct sequence number; a retransmitted request
// gets the cached reply replayed verbatim, never a second store
// mutation.
type DatagramServer struct {
	svc     *booking.Service
	log     zerolog.Logger
	workers int

	mu      sync.Mutex
	replies map[string]cachedReply
}

func NewDatagramServer(svc *booking.Service, workers int, log zerolog.Logger) *DatagramServer {
	if workers <= 0 {
		workers = 4
	}
	return &DatagramServer{
		svc:     svc,
		log:     log,
		workers: workers,
		replies: make(map[string]cachedReply),
	}
}

func clientIndex(key string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(workers))
}

type datagramJob struct {
	pkt  datagram.Packet
	addr *net.UDPAddr
}

// Serve reads datagrams until ctx is cancelled or the socket fails.
func (s *DatagramServer) Serve(ctx context.Context, conn *net.UDPConn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	// One queue per worker, keyed by client address, so requests from
	// the same client are processed serially. A retransmission queued
	// behind its original therefore always finds the cached reply
	// instead of re-executing.
	queues := make([]chan datagramJob, s.workers)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		queue := make(chan datagramJob, 16)
		queues[i] = queue
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				s.handle(conn, job)
			}
		}()
	}

	buf := make([]byte, datagram.HeaderLen+datagram.MaxPayload)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			for _, queue := range queues {
				close(queue)
			}
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		pkt, err := datagram.Decode(buf[:n])
		if err != nil {
			observability.RecordDatagramMalformed()
			s.log.Warn().Err(err).Str("peer", addr.String()).Msg("malformed datagram dropped")
			continue
		}
		// Never block the receive loop on a stalled worker: a full
		// queue sheds the datagram and the peer's retry discipline
		// retransmits it.
		select {
		case queues[clientIndex(addr.String(), s.workers)] <- datagramJob{pkt: pkt, addr: addr}:
		default:
			observability.RecordDatagramQueueDrop()
			s.log.Warn().Str("peer", addr.String()).Msg("worker queue full, datagram shed")
		}
	}
}

func (s *DatagramServer) handle(conn *net.UDPConn, job datagramJob) {
	seq := job.pkt.Header.Seq
	key := job.addr.String()

	if data, ok := s.cachedFor(key, seq); ok {
		observability.RecordDatagramReplay()
		s.log.Debug().Str("peer", key).Uint32("seq", seq).Msg("duplicate request, replaying cached reply")
		conn.WriteToUDP(data, job.addr)
		return
	}

	op, ok := datagram.OpForTag(job.pkt.Header.Tag)
	if !ok {
		// WAIT/ERR tags are reply-only; a request carrying one is
		// malformed at the semantic level.
		observability.RecordDatagramMalformed()
		s.reply(conn, job.addr, seq, datagram.TagError, []byte("ERR INVALID reply-only tag"), false)
		return
	}
	line := strings.TrimSpace(op + " " + string(job.pkt.Payload))

	notify := func(resource string) {
		waitPkt, err := datagram.Encode(datagram.Packet{
			Header:  datagram.Header{Seq: seq, Tag: datagram.TagWait},
			Payload: []byte(resource),
		})
		if err == nil {
			conn.WriteToUDP(waitPkt, job.addr)
		}
	}

	start := time.Now()
	res := dispatch(s.svc, line, notify)
	observability.RecordCommand("datagram", res.op, res.outcome, time.Since(start))

	tag := job.pkt.Header.Tag
	if res.failed() {
		tag = datagram.TagError
	}
	s.reply(conn, job.addr, seq, tag, []byte(strings.Join(res.lines, "\n")), true)
}

func (s *DatagramServer) reply(conn *net.UDPConn, addr *net.UDPAddr, seq uint32, tag string, payload []byte, cache bool) {
	data, err := datagram.Encode(datagram.Packet{
		Header:  datagram.Header{Seq: seq, Tag: tag},
		Payload: payload,
	})
	if err != nil {
		s.log.Error().Err(err).Str("peer", addr.String()).Uint32("seq", seq).Msg("reply encode failed")
		return
	}
	if cache {
		s.remember(addr.String(), seq, data)
	}
	if _, err := conn.WriteToUDP(data, addr); err != nil {
		s.log.Warn().Err(err).Str("peer", addr.String()).Uint32("seq", seq).Msg("reply send failed")
	}
}

// cachedFor returns the stored reply when the peer retransmits the
// sequence number it was last answered with.
func (s *DatagramServer) cachedFor(key string, seq uint32) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.replies[key]
	if !ok || cached.seq != seq {
		return nil, false
	}
	return cached.data, true
}

// remember keeps the last reply per client. One entry suffices: the
// sender is strictly request/response serial, so only the most recent
// sequence number can be retransmitted.
func (s *DatagramServer) remember(key string, seq uint32, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) >= maxReplyClients {
		s.replies = make(map[string]cachedReply)
	}
	s.replies[key] = cachedReply{seq: seq, data: data}
}
