// Package gamestate reconciles authoritative server snapshots with locally
// displayed state: turn ownership, clock prediction between updates, status
// text, and the append-only chat log shared by participants and spectators.
package gamestate

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/internal/msgcat"
	"github.com/kapu/chesslive/internal/rules"
	"github.com/kapu/chesslive/pkg/wire"
)

var (
	ErrNoGame      = errors.New("no active game")
	ErrSpectator   = errors.New("spectators cannot submit moves")
	ErrNotYourTurn = errors.New("not your turn")
)

type Engine struct {
	rules   *rules.Adapter
	cat     *msgcat.Catalog
	logger  *zap.Logger
	session *GameSession
}

func New(r *rules.Adapter, cat *msgcat.Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{rules: r, cat: cat, logger: logger}
}

func (e *Engine) Active() bool { return e.session != nil }

func (e *Engine) Session() *GameSession { return e.session }

// Start opens a participant session from a game_start event.
func (e *Engine) Start(ev *wire.GameStart) {
	e.session = &GameSession{
		GameID:   ev.GameID,
		Role:     PlayerRole(ev.Color),
		Opponent: ev.Opponent,
	}
	e.apply(snapshotFrom(ev.State))
	e.logger.Info("game_start",
		zap.String("game_id", ev.GameID),
		zap.String("color", string(ev.Color)),
		zap.String("opponent", ev.Opponent),
	)
}

// Spectate opens a read-only session seeded with the server's chat history.
func (e *Engine) Spectate(ev *wire.SpectateGame) {
	sess := &GameSession{GameID: ev.GameID, Role: SpectatorRole()}
	for _, m := range ev.ChatHistory {
		sess.chat = append(sess.chat, chatFromWire(m))
	}
	e.session = sess
	e.apply(snapshotFrom(ev.State))
	e.logger.Info("spectate_start",
		zap.String("game_id", ev.GameID),
		zap.Int("chat_history", len(ev.ChatHistory)),
	)
}

// Update replaces the snapshot wholesale. Updates arriving with no active
// session (stale frames after leaving a game) are dropped.
func (e *Engine) Update(ev *wire.GameUpdate) {
	if e.session == nil {
		e.logger.Debug("game_update_dropped_no_session")
		return
	}
	e.apply(snapshotFrom(ev.State))
}

// Chat appends one message; every received message is appended exactly once,
// in arrival order, with no deduplication.
func (e *Engine) Chat(ev *wire.ChatEvent) {
	if e.session == nil {
		return
	}
	e.session.chat = append(e.session.chat, chatFromWire(ev.Message))
}

// Leave discards the session and with it all chat and clock state.
func (e *Engine) Leave() {
	if e.session != nil {
		e.logger.Info("game_leave", zap.String("game_id", e.session.GameID))
	}
	e.session = nil
}

// apply installs an authoritative snapshot: displayed clocks snap back to the
// server values, discarding any local prediction, and turn ownership is
// recomputed rather than carried over.
func (e *Engine) apply(snap Snapshot) {
	s := e.session
	s.snapshot = snap
	s.whiteClock = snap.WhiteClock
	s.blackClock = snap.BlackClock
	s.localTurn = !s.Role.Spectator && !snap.Terminal() && snap.Turn == s.Role.Color
}

// Tick advances the local clock prediction by one second. Prediction runs for
// the participant role only while the game is ongoing; spectators display the
// last authoritative values verbatim.
func (e *Engine) Tick() {
	s := e.session
	if s == nil || s.Role.Spectator || s.snapshot.Terminal() {
		return
	}
	switch s.snapshot.Turn {
	case wire.White:
		if s.whiteClock = s.whiteClock - 1; s.whiteClock < 0 {
			s.whiteClock = 0
		}
	case wire.Black:
		if s.blackClock = s.blackClock - 1; s.blackClock < 0 {
			s.blackClock = 0
		}
	}
}

func (e *Engine) IsLocalTurn() bool {
	return e.session != nil && e.session.localTurn
}

// Clocks returns the displayed clock values in seconds.
func (e *Engine) Clocks() (white, black float64) {
	if e.session == nil {
		return 0, 0
	}
	return e.session.whiteClock, e.session.blackClock
}

// ChatLog returns the ordered chat history.
func (e *Engine) ChatLog() []ChatMessage {
	if e.session == nil {
		return nil
	}
	return append([]ChatMessage(nil), e.session.chat...)
}

// MoveList renders the snapshot's move history in display notation.
func (e *Engine) MoveList() []string {
	if e.session == nil {
		return nil
	}
	return e.rules.Notation(e.session.snapshot.MoveHistory)
}

// SubmitMove validates a move locally and, when accepted, returns the command
// to transmit. Turn ownership is revoked the moment the command is handed
// back, before any server echo, to prevent double submission; the next
// authoritative snapshot restores or corrects it.
func (e *Engine) SubmitMove(moveUCI string) (wire.MakeMove, error) {
	s := e.session
	if s == nil {
		return wire.MakeMove{}, ErrNoGame
	}
	if s.Role.Spectator {
		return wire.MakeMove{}, ErrSpectator
	}
	if !s.localTurn {
		return wire.MakeMove{}, ErrNotYourTurn
	}
	applied, err := e.rules.Validate(s.snapshot.MoveHistory, moveUCI)
	if err != nil {
		return wire.MakeMove{}, err
	}
	s.localTurn = false
	e.logger.Info("move_submit",
		zap.String("game_id", s.GameID),
		zap.String("uci", applied.UCI),
		zap.String("san", applied.SAN),
	)
	return wire.MakeMove{Move: applied.UCI}, nil
}

// StatusText derives the display status. Evaluation order: terminal status
// first, then checkmate, stalemate, check; empty when nothing applies.
// The win reason is resolved before any text is returned.
func (e *Engine) StatusText() string {
	if e.session == nil {
		return ""
	}
	snap := e.session.snapshot
	if snap.Terminal() {
		switch {
		case snap.Status == StatusDraw:
			return e.cat.Text("status.draw", nil)
		case strings.HasPrefix(snap.Status, prefixWhiteWins):
			return e.cat.Text("status.white_wins", map[string]any{
				"Reason": winReason(snap.Status, prefixWhiteWins),
			})
		case strings.HasPrefix(snap.Status, prefixBlackWins):
			return e.cat.Text("status.black_wins", map[string]any{
				"Reason": winReason(snap.Status, prefixBlackWins),
			})
		default:
			return snap.Status
		}
	}
	if snap.Checkmate {
		return e.cat.Text("status.checkmate", nil)
	}
	if snap.Stalemate {
		return e.cat.Text("status.stalemate", nil)
	}
	if snap.Check {
		return e.cat.Text("status.check", nil)
	}
	return ""
}

func winReason(status, prefix string) string {
	r := strings.TrimPrefix(strings.TrimPrefix(status, prefix), "_")
	if r == "" {
		r = defaultWinReason
	}
	return r
}
