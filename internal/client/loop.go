package client

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/internal/gamestate"
	"github.com/kapu/chesslive/internal/replay"
	"github.com/kapu/chesslive/internal/session"
	"github.com/kapu/chesslive/internal/transport"
	"github.com/kapu/chesslive/pkg/wire"
)

// Run drives the event loop until ctx is cancelled. It owns every piece of
// client state; nothing else reads or writes it.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	c.pushView()
	for {
		var frames <-chan []byte
		var states <-chan transport.StateChange
		if c.link != nil {
			frames = c.link.Frames()
			states = c.link.States()
		}

		select {
		case <-ctx.Done():
			c.closeLink(ctx)
			return ctx.Err()

		case frame, ok := <-frames:
			if !ok {
				continue
			}
			c.dispatcher.Dispatch(frame)
			c.pushView()

		case st, ok := <-states:
			if !ok {
				continue
			}
			c.handleState(ctx, st)
			c.pushView()

		case <-c.settle:
			c.settle = nil
			c.replayIdentity(ctx)
			c.pushView()

		case now := <-ticker.C:
			c.engine.Tick()
			c.expireNotice(now)
			c.pushView()

		case in := <-c.intents:
			c.handleIntent(ctx, in)
			c.pushView()
		}
	}
}

func (c *Client) closeLink(ctx context.Context) {
	if c.link == nil {
		return
	}
	if err := c.link.Close(ctx); err != nil {
		c.logger.Debug("link_close", zap.Error(err))
	}
	c.link = nil
	c.phase = transport.PhaseClosed
}

func (c *Client) handleState(ctx context.Context, st transport.StateChange) {
	c.phase = st.Phase
	switch st.Phase {
	case transport.PhaseOpen:
		if st.Attempt == 0 {
			c.clearNotice()
		} else {
			c.setNotice(c.cat.Text("notice.reconnected", nil), false)
		}
		// A queued sign-in takes precedence over the identity replay: the
		// transport may only reach open on a retry, and the user's real
		// credentials must not be swapped for a bare username.
		if c.pendingAuth != nil {
			cmd := c.pendingAuth
			c.pendingAuth = nil
			c.sendCommand(ctx, cmd)
			return
		}
		// Reopened mid-session. The server sees a brand new connection, so
		// identity is replayed after a short settle delay.
		if st.Attempt > 0 && c.machine.Username() != "" {
			c.settle = time.After(c.cfg.SettleDelay)
		}

	case transport.PhaseReconnecting:
		c.setNotice(c.cat.Text("notice.reconnecting", map[string]any{
			"Attempt": st.Attempt,
			"Max":     st.MaxAttempts,
		}), true)

	case transport.PhaseLost:
		c.setNotice(c.cat.Text("notice.connection_lost", nil), true)

	case transport.PhaseClosed:
		if st.Deliberate {
			c.clearNotice()
		}
	}
}

// replayIdentity re-identifies after a reconnect: username only, never the
// password.
func (c *Client) replayIdentity(ctx context.Context) {
	username := c.machine.Username()
	if username == "" || c.phase != transport.PhaseOpen {
		return
	}
	c.machine.BeginAuth(username)
	c.sendCommand(ctx, wire.Register{Username: username})
}

func (c *Client) handleIntent(ctx context.Context, in intent) {
	switch in := in.(type) {
	case authIntent:
		c.machine.BeginAuth(in.username)
		if c.link == nil || c.phase == transport.PhaseLost || c.phase == transport.PhaseClosed {
			c.pendingAuth = in.cmd
			c.connect(ctx)
			return
		}
		c.sendCommand(ctx, in.cmd)

	case findMatchIntent:
		if !c.gate(wire.KindFindMatch) {
			return
		}
		c.sendCommand(ctx, wire.FindMatch{})

	case listGamesIntent:
		c.sendCommand(ctx, wire.ListGames{})

	case spectateIntent:
		if !c.gate(wire.KindSpectate) {
			return
		}
		c.sendCommand(ctx, wire.Spectate{GameID: in.gameID})

	case moveIntent:
		cmd, err := c.engine.SubmitMove(in.uci)
		if err != nil {
			c.rejectMove(err)
			return
		}
		c.sendCommand(ctx, cmd)

	case chatIntent:
		if !c.engine.Active() {
			return
		}
		c.sendCommand(ctx, wire.ChatSend{Message: in.text})

	case leaveIntent:
		c.engine.Leave()
		c.machine.LeaveGame()

	case historyIntent:
		if err := c.machine.EnterHistory(); err != nil {
			c.setNotice(err.Error(), false)
			return
		}
		c.sendCommand(ctx, wire.GetUserGames{})

	case reviewSelectIntent:
		if c.machine.Mode() != session.ModeHistoryReview {
			return
		}
		if in.index < 0 || in.index >= len(c.history) {
			return
		}
		c.review = replay.NewSession(c.rules, c.history[in.index], c.logger)

	case reviewStepIntent:
		if c.review == nil {
			return
		}
		switch in.op {
		case reviewForward:
			c.review.StepForward()
		case reviewBack:
			c.review.StepBack()
		case reviewReset:
			c.review.Reset()
		case reviewEnd:
			c.review.End()
		}

	case profileIntent:
		if err := c.machine.EnterProfile(); err != nil {
			c.setNotice(err.Error(), false)
			return
		}
		c.sendCommand(ctx, wire.GetUserStats{})

	case closeViewIntent:
		c.machine.ExitView()
		c.review = nil

	case logoutIntent:
		c.engine.Leave()
		c.machine.Logout()
		c.review = nil
		c.pendingAuth = nil
		// Logout tears the connection down and opens a fresh one, ready for
		// the next sign-in.
		c.connect(ctx)
	}
}

func (c *Client) connect(ctx context.Context) {
	c.closeLink(ctx)
	c.link = c.newLink()
	c.phase = transport.PhaseConnecting
	if err := c.link.Connect(ctx); err != nil {
		c.setNotice(c.cat.Text("notice.server_error", map[string]any{"Message": err.Error()}), false)
	}
}

func (c *Client) gate(kind wire.Kind) bool {
	if err := c.machine.CanIssue(kind); err != nil {
		c.setNotice(err.Error(), false)
		return false
	}
	return true
}

func (c *Client) sendCommand(ctx context.Context, cmd wire.Command) {
	if err := c.dispatcher.Send(ctx, cmd); err != nil {
		c.logger.Warn("send_failed",
			zap.String("kind", string(cmd.CommandKind())),
			zap.Error(err),
		)
		if errors.Is(err, transport.ErrNotOpen) {
			c.setNotice(c.cat.Text("notice.connection_lost", nil), true)
		}
	}
}

func (c *Client) rejectMove(err error) {
	switch {
	case errors.Is(err, gamestate.ErrNotYourTurn),
		errors.Is(err, gamestate.ErrSpectator),
		errors.Is(err, gamestate.ErrNoGame):
		c.setNotice(err.Error(), false)
	default:
		c.setNotice(c.cat.Text("notice.server_error", map[string]any{"Message": err.Error()}), false)
	}
}

// onSessionEvent runs before the game handlers so mode transitions are
// settled by the time game state is applied.
func (c *Client) onSessionEvent(ev wire.Event) {
	switch ev := ev.(type) {
	case *wire.AuthResponse:
		if !ev.Success {
			// A refused identity replay after a reconnect is a notice only;
			// the session, game and identity stay as they are. Only a
			// user-initiated sign-in failure resets to unauthenticated.
			if !c.machine.Authenticated() {
				c.machine.AuthFailed()
			}
			c.setNotice(c.cat.Text("notice.auth_failed", map[string]any{"Message": ev.Message}), false)
			return
		}
		c.machine.AuthSucceeded(ev)
		if ev.UserProfile != nil {
			c.profile = ev.UserProfile
		}
	case *wire.GameStart:
		if err := c.machine.GameStarted(); err != nil {
			return
		}
	case *wire.SpectateGame:
		if err := c.machine.SpectateStarted(); err != nil {
			return
		}
	}
}

func (c *Client) onGameEvent(ev wire.Event) {
	switch ev := ev.(type) {
	case *wire.GameStart:
		if c.machine.Mode() != session.ModeInGame {
			return
		}
		c.engine.Start(ev)
		c.clearNotice()
	case *wire.SpectateGame:
		if c.machine.Mode() != session.ModeSpectating {
			return
		}
		c.engine.Spectate(ev)
		c.setNotice(c.cat.Text("notice.spectating", map[string]any{
			"White": ev.State.WhitePlayer,
			"Black": ev.State.BlackPlayer,
		}), false)
	case *wire.GameUpdate:
		c.engine.Update(ev)
	case *wire.ChatEvent:
		c.engine.Chat(ev)
	}
}

func (c *Client) onLobbyEvent(ev wire.Event) {
	switch ev := ev.(type) {
	case *wire.GamesList:
		c.games = ev.Games
	case *wire.LobbyStatus:
		c.setNotice(c.cat.Text("notice.waiting_for_match", map[string]any{
			"Position": ev.QueuePosition,
		}), true)
	case *wire.UserGames:
		// Fresh slice: earlier View values still alias the old one and the
		// renderer may be reading it.
		records := make([]replay.Record, 0, len(ev.Games))
		for _, g := range ev.Games {
			records = append(records, replay.RecordFrom(g))
		}
		c.history = records
	case *wire.UserStats:
		stats := ev.Stats
		c.stats = &stats
	case *wire.ServerError:
		c.setNotice(c.cat.Text("notice.server_error", map[string]any{"Message": ev.Message}), false)
	}
}

func (c *Client) setNotice(text string, sticky bool) {
	n := Notice{Text: text, Sticky: sticky}
	if !sticky {
		n.until = time.Now().Add(c.cfg.NoticeTTL)
	}
	c.notice = n
}

func (c *Client) clearNotice() { c.notice = Notice{} }

func (c *Client) expireNotice(now time.Time) {
	if !c.notice.Sticky && c.notice.Text != "" && now.After(c.notice.until) {
		c.clearNotice()
	}
}

func (c *Client) pushView() {
	v := View{
		Mode:       c.machine.Mode(),
		Connection: c.phase,
		Notice:     c.notice.Text,
		Username:   c.machine.Username(),
		Games:      c.games,
		History:    c.history,
		Stats:      c.stats,
		Profile:    c.profile,
	}
	if sess := c.engine.Session(); sess != nil {
		snap := sess.Snapshot()
		v.GameID = sess.GameID
		v.Board = snap.Board
		v.WhiteClock, v.BlackClock = c.engine.Clocks()
		v.LocalTurn = c.engine.IsLocalTurn()
		v.Status = c.engine.StatusText()
		v.Moves = c.engine.MoveList()
		v.Chat = c.engine.ChatLog()
	}
	if c.review != nil {
		pos := c.review.Seek(c.review.Cursor())
		v.ReplayFEN = pos.FEN
		v.ReplayCursor = pos.Cursor
		v.ReplayLen = c.review.Len()
	}

	select {
	case c.updates <- v:
	default:
		select {
		case <-c.updates:
		default:
		}
		select {
		case c.updates <- v:
		default:
		}
	}
}
