// Package bridge relays WebSocket traffic between a downstream caller and
// the upstream API for the lifetime of one proxied session.
package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"backendai-proxy-go/internal/metrics"
	"backendai-proxy-go/internal/model"
)

// outboundQueueSize bounds the caller-to-upstream frame buffer. The queue
// absorbs skew between downstream reads and upstream writes so a slow
// upstream write never stalls downstream reads until the buffer fills.
const outboundQueueSize = 64

// closeGrace is the write deadline for close control frames.
const closeGrace = 5 * time.Second

// Bridge pairs one downstream and one upstream WebSocket connection.
// Three tasks run concurrently while the session is live:
//
//   - the upstream pump reads downstream frames and enqueues them;
//   - the queue-drain task dequeues frames and writes them upstream;
//   - the downstream pump reads upstream frames and writes them downstream.
//
// Frames queued for upstream keep FIFO order; frames relayed downstream are
// forwarded directly in receipt order. The two directions are independent
// streams with no cross-ordering guarantee.
type Bridge struct {
	down *websocket.Conn
	up   *websocket.Conn

	outbound chan model.Frame
	logger   *slog.Logger
	metrics  *metrics.Metrics

	downClosed sync.Once
	upClosed   sync.Once
}

// New creates a Bridge over an established downstream and upstream
// connection pair. The metrics parameter is optional; pass nil to disable
// frame counters.
func New(down, up *websocket.Conn, logger *slog.Logger, m *metrics.Metrics) *Bridge {
	return &Bridge{
		down:     down,
		up:       up,
		outbound: make(chan model.Frame, outboundQueueSize),
		logger:   logger.With("component", "ws_bridge"),
		metrics:  m,
	}
}

// Run relays traffic until either side disconnects or ctx is cancelled.
// It returns only after both pumps and the drain task have finished and
// both sockets are closed; no goroutine outlives the call.
func (b *Bridge) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A pump blocked in ReadMessage cannot observe ctx directly. Expiring
	// the read deadlines forces both reads to return so the finalizers run.
	go func() {
		<-ctx.Done()
		_ = b.down.SetReadDeadline(time.Now())
		_ = b.up.SetReadDeadline(time.Now())
	}()

	b.logger.Debug("websocket bridge started")

	downstreamDone := make(chan struct{})
	go func() {
		defer close(downstreamDone)
		b.downstreamPump(ctx, cancel)
	}()

	b.upstreamPump(ctx, cancel)
	<-downstreamDone

	b.logger.Debug("websocket bridge terminated")
}

// upstreamPump reads caller frames from the downstream socket and enqueues
// them for upstream delivery. It never writes to the upstream socket itself,
// which decouples downstream read timing from upstream write backpressure.
// On exit it closes the downstream socket if still open and cancels the
// session so the other tasks wind down.
func (b *Bridge) upstreamPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		b.closeDownstream()
	}()

	for {
		kind, data, err := b.down.ReadMessage()
		if err != nil {
			// A graceful close or a forcible disconnect both end the pump
			// silently; only protocol-level faults are worth logging.
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				b.logger.Warn("downstream connection error", "err", err)
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		select {
		case b.outbound <- model.Frame{Kind: model.FrameKind(kind), Data: data}:
			if b.metrics != nil {
				b.metrics.WSFramesRelayed.WithLabelValues("upstream").Inc()
			}
		case <-ctx.Done():
			return
		}
	}
}

// downstreamPump forwards upstream frames to the downstream socket verbatim,
// text as text and binary as binary. It owns the queue-drain task: on exit
// the drain is cancelled and awaited before the upstream socket is closed,
// so no dequeued frame is silently dropped mid-write.
func (b *Bridge) downstreamPump(ctx context.Context, cancel context.CancelFunc) {
	// The drain lifetime is tied to this pump, not to the session context:
	// it must keep delivering already-queued frames until this finalizer
	// explicitly stops it.
	drainCtx, stopDrain := context.WithCancel(context.Background())
	drainDone := make(chan struct{})
	go b.drainOutbound(drainCtx, drainDone)

	defer func() {
		cancel()
		stopDrain()
		<-drainDone
		b.closeUpstream()
	}()

	for {
		kind, data, err := b.up.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				b.logger.Warn("upstream connection error", "err", err)
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		if err := b.down.WriteMessage(kind, data); err != nil {
			b.logger.Debug("downstream write failed", "err", err)
			return
		}
		if b.metrics != nil {
			b.metrics.WSFramesRelayed.WithLabelValues("downstream").Inc()
		}
	}
}

// drainOutbound pulls buffered frames off the queue and performs the actual
// upstream writes, preserving enqueue order. Cancellation terminates it
// without requeuing; a failed write means the upstream socket is gone, so
// the drain stops rather than erroring on every remaining frame.
func (b *Bridge) drainOutbound(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-b.outbound:
			if err := b.up.WriteMessage(int(f.Kind), f.Data); err != nil {
				b.logger.Debug("upstream write failed", "err", err)
				return
			}
		}
	}
}

// closeDownstream closes the downstream socket once, attempting a normal
// close handshake first. WriteControl is safe concurrently with the
// downstream pump's data writes.
func (b *Bridge) closeDownstream() {
	b.downClosed.Do(func() {
		_ = b.down.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		_ = b.down.Close()
	})
}

// closeUpstream closes the upstream socket once. Callers must have stopped
// the drain task first so the close frame cannot interleave with data writes.
func (b *Bridge) closeUpstream() {
	b.upClosed.Do(func() {
		_ = b.up.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		_ = b.up.Close()
	})
}
