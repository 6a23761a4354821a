package client

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/internal/config"
	"github.com/kapu/chesslive/internal/msgcat"
	"github.com/kapu/chesslive/internal/session"
	"github.com/kapu/chesslive/internal/transport"
)

type fakeLink struct {
	frames chan []byte
	states chan transport.StateChange
	sent   chan []byte
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		frames: make(chan []byte, 16),
		states: make(chan transport.StateChange, 16),
		sent:   make(chan []byte, 16),
	}
}

func (l *fakeLink) Connect(ctx context.Context) error { return nil }

func (l *fakeLink) Send(ctx context.Context, frame []byte) error {
	l.sent <- frame
	return nil
}

func (l *fakeLink) Close(ctx context.Context) error { return nil }

func (l *fakeLink) Frames() <-chan []byte { return l.frames }

func (l *fakeLink) States() <-chan transport.StateChange { return l.states }

func (l *fakeLink) open(attempt int) {
	l.states <- transport.StateChange{Phase: transport.PhaseOpen, Attempt: attempt}
}

type harness struct {
	client *Client
	link   *fakeLink
	links  atomic.Int32
	cancel context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	cfg := &config.AppConfig{
		ServerURL:            "ws://test",
		ReconnectMaxAttempts: 5,
		ReconnectDelay:       time.Millisecond,
		SettleDelay:          5 * time.Millisecond,
		NoticeTTL:            time.Minute,
	}
	link := newFakeLink()
	h := &harness{link: link}
	h.client = New(cfg, cat, func() transport.Link {
		h.links.Add(1)
		return link
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.client.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func (h *harness) waitSent(t *testing.T) map[string]any {
	t.Helper()
	select {
	case frame := <-h.link.sent:
		var m map[string]any
		if err := json.Unmarshal(frame, &m); err != nil {
			t.Fatalf("sent frame not JSON: %v", err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no frame sent")
		return nil
	}
}

func (h *harness) waitView(t *testing.T, cond func(View) bool) View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-h.client.Updates():
			if cond(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for view")
			return View{}
		}
	}
}

const startedStateJSON = `{"board":"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1","turn":"white","white_time":300,"black_time":300,"move_history":[],"status":"ongoing","is_check":false,"is_checkmate":false,"is_stalemate":false,"white_player":"alice","black_player":"bob"}`

func TestGuestMatchAndMoveFlow(t *testing.T) {
	h := newHarness(t)

	h.client.Guest("alice")
	h.link.open(0)

	reg := h.waitSent(t)
	if reg["type"] != "register" || reg["username"] != "alice" {
		t.Fatalf("first frame = %v, want guest register", reg)
	}
	if _, has := reg["password"]; has {
		t.Fatalf("guest register must omit password: %v", reg)
	}

	h.link.frames <- []byte(`{"type":"auth_response","success":true,"player_id":"p1"}`)
	h.waitView(t, func(v View) bool { return v.Mode == session.ModeLobby })

	h.client.FindMatch()
	if m := h.waitSent(t); m["type"] != "find_match" {
		t.Fatalf("frame = %v, want find_match", m)
	}

	h.link.frames <- []byte(`{"type":"game_start","game_id":"g1","color":"white","opponent":"bob","state":` + startedStateJSON + `}`)
	v := h.waitView(t, func(v View) bool { return v.Mode == session.ModeInGame })
	if v.GameID != "g1" || !v.LocalTurn {
		t.Fatalf("game view: id=%q localTurn=%v", v.GameID, v.LocalTurn)
	}

	h.client.Move("e2e4")
	if m := h.waitSent(t); m["type"] != "make_move" || m["move"] != "e2e4" {
		t.Fatalf("frame = %v, want make_move e2e4", m)
	}
	h.waitView(t, func(v View) bool { return !v.LocalTurn })
}

func TestReconnectReplaysIdentity(t *testing.T) {
	h := newHarness(t)

	h.client.Guest("alice")
	h.link.open(0)
	h.waitSent(t) // initial register
	h.link.frames <- []byte(`{"type":"auth_response","success":true,"player_id":"p1"}`)
	h.waitView(t, func(v View) bool { return v.Mode == session.ModeLobby })

	h.link.states <- transport.StateChange{Phase: transport.PhaseReconnecting, Attempt: 1, MaxAttempts: 5}
	h.waitView(t, func(v View) bool { return v.Notice != "" })

	h.link.open(1)
	replayed := h.waitSent(t)
	if replayed["type"] != "register" || replayed["username"] != "alice" {
		t.Fatalf("replay frame = %v", replayed)
	}
	if _, has := replayed["password"]; has {
		t.Fatalf("identity replay must never carry a password: %v", replayed)
	}
}

func TestExhaustedConnectionIsSurfaced(t *testing.T) {
	h := newHarness(t)

	h.client.Guest("alice")
	h.link.open(0)
	h.waitSent(t)

	h.link.states <- transport.StateChange{Phase: transport.PhaseLost, Attempt: 5, MaxAttempts: 5}
	v := h.waitView(t, func(v View) bool { return v.Connection == transport.PhaseLost })
	if v.Notice == "" {
		t.Fatal("exhaustion must surface a notice")
	}
}

func TestCommandsGatedBeforeAuth(t *testing.T) {
	h := newHarness(t)

	h.client.FindMatch()
	v := h.waitView(t, func(v View) bool { return v.Notice != "" })
	if v.Mode != session.ModeUnauthenticated {
		t.Fatalf("mode = %s", v.Mode)
	}
	select {
	case frame := <-h.link.sent:
		t.Fatalf("unexpected frame sent: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSpectateFlow(t *testing.T) {
	h := newHarness(t)

	h.client.Guest("carol")
	h.link.open(0)
	h.waitSent(t)
	h.link.frames <- []byte(`{"type":"auth_response","success":true,"player_id":"p2"}`)
	h.waitView(t, func(v View) bool { return v.Mode == session.ModeLobby })

	h.client.Spectate("g1")
	if m := h.waitSent(t); m["type"] != "spectate" || m["game_id"] != "g1" {
		t.Fatalf("frame = %v", m)
	}

	h.link.frames <- []byte(`{"type":"spectate_game","game_id":"g1","state":` + startedStateJSON + `,"chat_history":[{"sender":"alice","message":"hi","timestamp":1}]}`)
	v := h.waitView(t, func(v View) bool { return v.Mode == session.ModeSpectating })
	if v.LocalTurn {
		t.Fatal("spectators never hold the turn")
	}
	if len(v.Chat) != 1 || v.Chat[0].Text != "hi" {
		t.Fatalf("chat = %v", v.Chat)
	}

	h.client.Move("e2e4")
	v = h.waitView(t, func(v View) bool { return v.Notice != "" && v.Mode == session.ModeSpectating })
	if v.Notice == "" {
		t.Fatal("spectator move must be refused with a notice")
	}
}

func TestRefusedIdentityReplayKeepsSession(t *testing.T) {
	h := newHarness(t)

	h.client.Guest("alice")
	h.link.open(0)
	h.waitSent(t)
	h.link.frames <- []byte(`{"type":"auth_response","success":true,"player_id":"p1"}`)
	h.waitView(t, func(v View) bool { return v.Mode == session.ModeLobby })

	h.link.frames <- []byte(`{"type":"game_start","game_id":"g1","color":"white","opponent":"bob","state":` + startedStateJSON + `}`)
	h.waitView(t, func(v View) bool { return v.Mode == session.ModeInGame })

	h.link.states <- transport.StateChange{Phase: transport.PhaseReconnecting, Attempt: 1, MaxAttempts: 5}
	h.link.open(1)
	if m := h.waitSent(t); m["type"] != "register" {
		t.Fatalf("replay frame = %v", m)
	}

	// The server can refuse the replayed username, e.g. while the stale
	// connection is still registered. That is a notice, not a teardown.
	h.link.frames <- []byte(`{"type":"auth_response","success":false,"message":"Username already taken"}`)
	v := h.waitView(t, func(v View) bool { return v.Notice != "" })
	if v.Mode != session.ModeInGame {
		t.Fatalf("mode after refused replay = %s, want %s", v.Mode, session.ModeInGame)
	}
	if v.Username != "alice" || v.GameID != "g1" {
		t.Fatalf("session state lost: user=%q game=%q", v.Username, v.GameID)
	}
}

func TestPendingLoginSentWhenOpenedOnRetry(t *testing.T) {
	h := newHarness(t)

	h.client.Login("alice", "secret")
	// The initial dial failed; the transport only reaches open on a retry.
	h.link.states <- transport.StateChange{Phase: transport.PhaseReconnecting, Attempt: 1, MaxAttempts: 5}
	h.link.open(1)

	m := h.waitSent(t)
	if m["type"] != "login" || m["username"] != "alice" || m["password"] != "secret" {
		t.Fatalf("first frame = %v, want the queued login", m)
	}
	select {
	case frame := <-h.link.sent:
		t.Fatalf("unexpected extra frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRepeatedUserGamesKeepsEarlierViews(t *testing.T) {
	h := newHarness(t)

	h.client.Guest("alice")
	h.link.open(0)
	h.waitSent(t)
	h.link.frames <- []byte(`{"type":"auth_response","success":true,"player_id":"p1"}`)
	h.waitView(t, func(v View) bool { return v.Mode == session.ModeLobby })

	h.client.OpenHistory()
	h.waitSent(t)
	h.link.frames <- []byte(`{"type":"user_games","games":[{"game_id":"g1","white_player":"alice","black_player":"bob","status":"draw","moves":[]}]}`)
	first := h.waitView(t, func(v View) bool { return len(v.History) == 1 })

	h.link.frames <- []byte(`{"type":"user_games","games":[{"game_id":"g2","white_player":"alice","black_player":"carol","status":"white_wins","moves":[]}]}`)
	h.waitView(t, func(v View) bool { return len(v.History) == 1 && v.History[0].GameID == "g2" })

	if first.History[0].GameID != "g1" {
		t.Fatalf("earlier view mutated: %q", first.History[0].GameID)
	}
}

func TestLogoutOpensFreshConnection(t *testing.T) {
	h := newHarness(t)

	h.client.Guest("alice")
	h.link.open(0)
	h.waitSent(t)
	h.link.frames <- []byte(`{"type":"auth_response","success":true,"player_id":"p1"}`)
	h.waitView(t, func(v View) bool { return v.Mode == session.ModeLobby })

	h.client.Logout()
	v := h.waitView(t, func(v View) bool { return v.Mode == session.ModeUnauthenticated })
	if v.Connection != transport.PhaseConnecting {
		t.Fatalf("connection after logout = %s, want a fresh connect", v.Connection)
	}
	if n := h.links.Load(); n != 2 {
		t.Fatalf("links built = %d, want 2", n)
	}
}
