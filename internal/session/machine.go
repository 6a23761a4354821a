// Package session tracks what the user is currently doing with the server:
// whether they are identified, idle in the lobby, playing, spectating, or
// looking at a history or profile view. Commands that need authentication
// are gated here before they ever reach the wire.
package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/pkg/wire"
)

type Mode string

const (
	ModeUnauthenticated Mode = "UNAUTHENTICATED"
	ModeAuthenticating  Mode = "AUTHENTICATING"
	ModeLobby           Mode = "LOBBY"
	ModeInGame          Mode = "IN_GAME"
	ModeSpectating      Mode = "SPECTATING"
	ModeHistoryReview   Mode = "HISTORY_REVIEW"
	ModeProfileView     Mode = "PROFILE_VIEW"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrBusy             = errors.New("finish the current game first")
)

// Machine is the mode automaton. It is owned by the client event loop and is
// not safe for concurrent use.
type Machine struct {
	mode     Mode
	username string
	playerID string
	logger   *zap.Logger
}

func NewMachine(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{mode: ModeUnauthenticated, logger: logger}
}

func (m *Machine) Mode() Mode       { return m.mode }
func (m *Machine) Username() string { return m.username }
func (m *Machine) PlayerID() string { return m.playerID }

func (m *Machine) Authenticated() bool {
	return m.mode != ModeUnauthenticated && m.mode != ModeAuthenticating
}

func (m *Machine) set(mode Mode) {
	if mode == m.mode {
		return
	}
	m.logger.Debug("mode_change",
		zap.String("from", string(m.mode)),
		zap.String("to", string(mode)),
	)
	m.mode = mode
}

// BeginAuth records an outbound register or login. The username is kept so
// it can be replayed if the connection drops before the response arrives.
func (m *Machine) BeginAuth(username string) {
	m.username = username
	if !m.Authenticated() {
		m.set(ModeAuthenticating)
	}
}

// AuthSucceeded lands in the lobby on a first sign-in. When the response is
// the replay after a reconnect the current mode is kept, so a game in
// progress is not dropped into the lobby.
func (m *Machine) AuthSucceeded(ev *wire.AuthResponse) {
	m.playerID = ev.PlayerID
	if ev.UserProfile != nil && ev.UserProfile.Username != "" {
		m.username = ev.UserProfile.Username
	}
	if !m.Authenticated() {
		m.set(ModeLobby)
	}
}

func (m *Machine) AuthFailed() {
	m.username = ""
	m.playerID = ""
	m.set(ModeUnauthenticated)
}

// GameStarted enters IN_GAME. A game_start while spectating is a server
// contract violation: the server never matches a spectating player.
func (m *Machine) GameStarted() error {
	if m.mode == ModeSpectating {
		m.logger.DPanic("game_start_while_spectating")
		return fmt.Errorf("game started in mode %s", m.mode)
	}
	m.set(ModeInGame)
	return nil
}

// SpectateStarted enters SPECTATING; refused while playing.
func (m *Machine) SpectateStarted() error {
	if m.mode == ModeInGame {
		m.logger.DPanic("spectate_while_in_game")
		return fmt.Errorf("spectate confirmed in mode %s", m.mode)
	}
	m.set(ModeSpectating)
	return nil
}

// LeaveGame returns to the lobby from a game, a spectate, or a view.
func (m *Machine) LeaveGame() {
	if m.Authenticated() {
		m.set(ModeLobby)
	}
}

func (m *Machine) EnterHistory() error {
	if err := m.viewable(); err != nil {
		return err
	}
	m.set(ModeHistoryReview)
	return nil
}

func (m *Machine) EnterProfile() error {
	if err := m.viewable(); err != nil {
		return err
	}
	m.set(ModeProfileView)
	return nil
}

// ExitView closes a history or profile view; a no-op anywhere else.
func (m *Machine) ExitView() {
	if m.mode == ModeHistoryReview || m.mode == ModeProfileView {
		m.set(ModeLobby)
	}
}

func (m *Machine) Logout() {
	m.username = ""
	m.playerID = ""
	m.set(ModeUnauthenticated)
}

func (m *Machine) viewable() error {
	if !m.Authenticated() {
		return ErrNotAuthenticated
	}
	if m.mode == ModeInGame {
		return ErrBusy
	}
	return nil
}

// CanIssue gates commands that the server only honors for identified
// players. Unknown kinds pass; the server is the final authority.
func (m *Machine) CanIssue(kind wire.Kind) error {
	switch kind {
	case wire.KindFindMatch, wire.KindSpectate, wire.KindGetUserGames, wire.KindGetUserStats:
		if !m.Authenticated() {
			return ErrNotAuthenticated
		}
	}
	if kind == wire.KindFindMatch && (m.mode == ModeInGame || m.mode == ModeSpectating) {
		return ErrBusy
	}
	return nil
}
