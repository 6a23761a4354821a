package transport

import "context"

// Phase is the lifecycle state of the persistent connection. Transitions run
// strictly forward except for the Open→Reconnecting→Open cycle.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseConnecting
	PhaseOpen
	PhaseReconnecting
	// PhaseLost is terminal: every allowed retry failed and no further
	// automatic attempt will be made. Requires a fresh manual connect.
	PhaseLost
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseLost:
		return "lost"
	default:
		return "unknown"
	}
}

// StateChange is one discrete connection lifecycle event. Attempt is the
// reconnect attempt that produced the state; it is 0 for the initial connect,
// so Attempt > 0 on PhaseOpen identifies a successful reopen.
type StateChange struct {
	Phase       Phase
	Attempt     int
	MaxAttempts int
	Code        int
	Reason      string
	Err         error
	Deliberate  bool
}

// Link is the single persistent connection as seen by the client core.
// Frames and state changes are delivered as discrete values, so the core is
// testable without a live socket.
type Link interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, frame []byte) error
	Close(ctx context.Context) error
	Frames() <-chan []byte
	States() <-chan StateChange
}
