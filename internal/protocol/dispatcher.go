package protocol

import (
	"context"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/pkg/wire"
)

// Handler receives every decoded inbound event, in frame arrival order.
type Handler func(wire.Event)

// SendFunc hands an encoded frame to the connection manager.
type SendFunc func(ctx context.Context, frame []byte) error

type handlerEntry struct {
	id int
	fn Handler
}

// Dispatcher decodes inbound frames into typed events and fans them out to
// every subscriber, and encodes outbound commands. It performs no state
// mutation of its own; it is owned and driven by the single event loop, so
// no locking is needed.
type Dispatcher struct {
	handlers []handlerEntry
	nextID   int
	send     SendFunc
	logger   *zap.Logger
}

func NewDispatcher(send SendFunc, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{send: send, logger: logger}
}

// Subscribe registers a handler and returns its id. Handlers are invoked in
// registration order for each event.
func (d *Dispatcher) Subscribe(fn Handler) int {
	d.nextID++
	d.handlers = append(d.handlers, handlerEntry{id: d.nextID, fn: fn})
	return d.nextID
}

func (d *Dispatcher) Unsubscribe(id int) {
	for i, h := range d.handlers {
		if h.id == id {
			d.handlers = append(d.handlers[:i], d.handlers[i+1:]...)
			return
		}
	}
}

// Dispatch decodes one frame and delivers it to all subscribers. Unknown or
// malformed frames are dropped with a diagnostic; the pipeline never fails.
func (d *Dispatcher) Dispatch(frame []byte) {
	ev, err := wire.DecodeEvent(frame)
	if err != nil {
		d.logger.Warn("frame_dropped",
			zap.Error(err),
			zap.Int("bytes", len(frame)),
		)
		return
	}
	for _, h := range d.handlers {
		h.fn(ev)
	}
}

// Send encodes a command and hands the frame to the connection manager.
func (d *Dispatcher) Send(ctx context.Context, c wire.Command) error {
	frame, err := wire.EncodeCommand(c)
	if err != nil {
		return err
	}
	return d.send(ctx, frame)
}
