package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ErrNotOpen is returned by Send when the connection is not in PhaseOpen.
// Callers treat it as non-fatal; the frame is dropped and logged.
var ErrNotOpen = errors.New("transport: connection not open")

// socket is the minimal surface of one established connection. The real
// implementation wraps nhooyr's websocket; tests inject scripted sockets.
type socket interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

type dialFunc func(ctx context.Context, url string) (socket, error)

// Conn owns the single persistent connection to the game server: it dials,
// reads frames into the Frames channel, and on an unexpected close runs a
// bounded retry loop with a fixed delay between attempts.
type Conn struct {
	url          string
	maxAttempts  int
	retryDelay   time.Duration
	dialTimeout  time.Duration
	writeTimeout time.Duration

	dial   dialFunc
	logger *zap.Logger
	id     string

	mu           sync.Mutex
	sock         socket
	phase        Phase
	started      bool
	reconnecting bool

	frames chan []byte
	states chan StateChange

	stopCh     chan struct{}
	stopOnce   sync.Once
	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

type Option func(*Conn)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

// WithRetryPolicy bounds the reconnection loop: at most maxAttempts retries,
// waiting delay before each.
func WithRetryPolicy(maxAttempts int, delay time.Duration) Option {
	return func(c *Conn) {
		c.maxAttempts = maxAttempts
		c.retryDelay = delay
	}
}

func withDialer(dial dialFunc) Option {
	return func(c *Conn) { c.dial = dial }
}

func New(url string, opts ...Option) *Conn {
	c := &Conn{
		url:          url,
		maxAttempts:  5,
		retryDelay:   3 * time.Second,
		dialTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		logger:       zap.NewNop(),
		id:           uuid.NewString()[:8],
		phase:        PhaseClosed,
		frames:       make(chan []byte, 64),
		states:       make(chan StateChange, 16),
		stopCh:       make(chan struct{}),
	}
	c.dial = c.dialWebSocket
	for _, opt := range opts {
		opt(c)
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	return c
}

func (c *Conn) Frames() <-chan []byte      { return c.frames }
func (c *Conn) States() <-chan StateChange { return c.states }

// Connect starts the connection attempt and returns immediately; the outcome
// arrives on the States channel. A dial failure takes the same bounded retry
// path as an unexpected close.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("transport: connect called twice")
	}
	c.started = true
	c.phase = PhaseConnecting
	c.mu.Unlock()

	c.emit(StateChange{Phase: PhaseConnecting, MaxAttempts: c.maxAttempts})
	go func() {
		dctx, cancel := context.WithTimeout(c.rootCtx, c.dialTimeout)
		sock, err := c.dial(dctx, c.url)
		cancel()
		if err != nil {
			c.logger.Warn("ws_dial_error", zap.String("conn", c.id), zap.Error(err))
			c.scheduleReconnect(err)
			return
		}
		c.opened(sock, 0)
	}()
	return nil
}

// Send writes one frame. When the connection is not open the frame is dropped
// with a diagnostic; callers decide whether to queue or discard.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	sock, phase := c.sock, c.phase
	c.mu.Unlock()
	if phase != PhaseOpen || sock == nil {
		c.logger.Warn("send_dropped",
			zap.String("conn", c.id),
			zap.String("phase", phase.String()),
			zap.Int("bytes", len(frame)),
		)
		return ErrNotOpen
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return sock.Write(ctx, frame)
}

// Close tears the connection down deliberately and suppresses any pending or
// future automatic reconnection. A closed Conn cannot be reused; logout opens
// a fresh one.
func (c *Conn) Close(ctx context.Context) error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.rootCancel()
	})

	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.phase = PhaseClosed
	c.mu.Unlock()
	if sock != nil {
		_ = sock.Close(int(websocket.StatusNormalClosure), "close")
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	c.emit(StateChange{Phase: PhaseClosed, Deliberate: true})
	return nil
}

func (c *Conn) opened(sock socket, attempt int) {
	c.mu.Lock()
	c.sock = sock
	c.phase = PhaseOpen
	c.reconnecting = false
	c.mu.Unlock()

	c.logger.Info("ws_open", zap.String("conn", c.id), zap.Int("attempt", attempt))
	c.emit(StateChange{Phase: PhaseOpen, Attempt: attempt, MaxAttempts: c.maxAttempts})
	c.wg.Add(1)
	go c.listen(sock)
}

func (c *Conn) listen(sock socket) {
	defer c.wg.Done()
	for {
		data, err := sock.Read(c.rootCtx)
		if err != nil {
			if c.isStopping() {
				return
			}
			c.mu.Lock()
			if c.sock == sock {
				c.sock = nil
			}
			c.mu.Unlock()
			_ = sock.Close(int(websocket.StatusGoingAway), "reconnect")
			c.logger.Warn("ws_read_error",
				zap.String("conn", c.id),
				zap.Int("code", closeCode(err)),
				zap.Error(err),
			)
			c.scheduleReconnect(err)
			return
		}
		select {
		case c.frames <- data:
		case <-c.stopCh:
			return
		}
	}
}

// scheduleReconnect runs the bounded retry loop. The reconnecting guard keeps
// it to exactly one scheduled loop per close event, however many error paths
// observe the failure.
func (c *Conn) scheduleReconnect(cause error) {
	c.mu.Lock()
	if c.reconnecting || c.isStopping() {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.phase = PhaseReconnecting
	c.mu.Unlock()

	go func() {
		for attempt := 1; attempt <= c.maxAttempts; attempt++ {
			c.emit(StateChange{
				Phase:       PhaseReconnecting,
				Attempt:     attempt,
				MaxAttempts: c.maxAttempts,
				Code:        closeCode(cause),
				Err:         cause,
			})
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.retryDelay):
			}

			dctx, cancel := context.WithTimeout(c.rootCtx, c.dialTimeout)
			sock, err := c.dial(dctx, c.url)
			cancel()
			if err != nil {
				c.logger.Warn("ws_redial_error",
					zap.String("conn", c.id),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				cause = err
				continue
			}
			c.opened(sock, attempt)
			return
		}

		c.mu.Lock()
		c.phase = PhaseLost
		c.reconnecting = false
		c.mu.Unlock()
		c.logger.Error("ws_retries_exhausted", zap.String("conn", c.id), zap.Int("attempts", c.maxAttempts))
		c.emit(StateChange{
			Phase:       PhaseLost,
			Attempt:     c.maxAttempts,
			MaxAttempts: c.maxAttempts,
			Err:         cause,
		})
	}()
}

func (c *Conn) emit(st StateChange) {
	select {
	case c.states <- st:
	default:
		c.logger.Warn("state_dropped", zap.String("conn", c.id), zap.String("phase", st.Phase.String()))
	}
}

func (c *Conn) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Conn) dialWebSocket(ctx context.Context, url string) (socket, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return &wsSocket{conn: conn}, nil
}

func closeCode(err error) int {
	if err == nil {
		return 0
	}
	return int(websocket.CloseStatus(err))
}

type wsSocket struct {
	conn *websocket.Conn
}

func (s *wsSocket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *wsSocket) Write(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSocket) Close(code int, reason string) error {
	return s.conn.Close(websocket.StatusCode(code), reason)
}
