package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/danmuck/reservectl/internal/booking"
	"github.com/danmuck/reservectl/internal/observability"
	"github.com/danmuck/reservectl/internal/protocol"
)

// StreamServer serves the line-oriented protocol: one worker per
// accepted connection, one command per round trip, responses
// terminated by the END marker. Worker count is bounded by a weighted
// semaphore for backpressure.
type StreamServer struct {
	svc      *booking.Service
	log      zerolog.Logger
	maxConns int64
}

func NewStreamServer(svc *booking.Service, maxConns int, log zerolog.Logger) *StreamServer {
	if maxConns <= 0 {
		maxConns = 64
	}
	return &StreamServer{svc: svc, log: log, maxConns: int64(maxConns)}
}

// Serve accepts connections until ctx is cancelled or the listener
// fails. It blocks until all workers have drained.
func (s *StreamServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	sem := semaphore.NewWeighted(s.maxConns)
	var wg sync.WaitGroup
	for {
		conn, err := lis.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			conn.Close()
			wg.Wait()
			return nil
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *StreamServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	connID := uuid.NewString()[:8]
	log := s.log.With().Str("conn", connID).Str("peer", conn.RemoteAddr().String()).Logger()
	log.Info().Msg("client connected")

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Warn().Err(err).Msg("read failed")
			}
			log.Info().Msg("client disconnected")
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Busy notices go out immediately, before the blocking wait,
		// on the same connection the request arrived on.
		notify := func(resource string) {
			io.WriteString(conn, protocol.WaitPrefix+resource+"\n")
		}

		start := time.Now()
		res := dispatch(s.svc, line, notify)
		observability.RecordCommand("stream", res.op, res.outcome, time.Since(start))

		var b strings.Builder
		for _, l := range res.lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteString(protocol.EndMarker)
		b.WriteByte('\n')
		if _, err := io.WriteString(conn, b.String()); err != nil {
			log.Warn().Err(err).Msg("write failed")
			return
		}
	}
}
