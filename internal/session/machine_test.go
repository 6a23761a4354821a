package session

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/pkg/wire"
)

func authedMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(zap.NewNop())
	m.BeginAuth("alice")
	m.AuthSucceeded(&wire.AuthResponse{Success: true, PlayerID: "p1"})
	return m
}

func TestAuthFlow(t *testing.T) {
	m := NewMachine(nil)
	if m.Mode() != ModeUnauthenticated {
		t.Fatalf("initial mode = %s", m.Mode())
	}
	m.BeginAuth("alice")
	if m.Mode() != ModeAuthenticating {
		t.Fatalf("after BeginAuth mode = %s", m.Mode())
	}
	m.AuthSucceeded(&wire.AuthResponse{Success: true, PlayerID: "p1"})
	if m.Mode() != ModeLobby || m.PlayerID() != "p1" || m.Username() != "alice" {
		t.Fatalf("after success: mode=%s player=%s user=%s", m.Mode(), m.PlayerID(), m.Username())
	}
}

func TestAuthFailedResetsIdentity(t *testing.T) {
	m := NewMachine(nil)
	m.BeginAuth("alice")
	m.AuthFailed()
	if m.Mode() != ModeUnauthenticated || m.Username() != "" {
		t.Fatalf("after failure: mode=%s user=%q", m.Mode(), m.Username())
	}
}

func TestReconnectReplayKeepsMode(t *testing.T) {
	m := authedMachine(t)
	if err := m.GameStarted(); err != nil {
		t.Fatalf("GameStarted: %v", err)
	}

	// The auth_response from the post-reconnect replay must not yank the
	// player back to the lobby mid-game.
	m.BeginAuth("alice")
	m.AuthSucceeded(&wire.AuthResponse{Success: true, PlayerID: "p1"})
	if m.Mode() != ModeInGame {
		t.Fatalf("mode after replay = %s, want %s", m.Mode(), ModeInGame)
	}
}

func TestGameSpectateExclusion(t *testing.T) {
	m := authedMachine(t)
	if err := m.SpectateStarted(); err != nil {
		t.Fatalf("SpectateStarted: %v", err)
	}
	if err := m.GameStarted(); err == nil {
		t.Fatal("game_start while spectating must be refused")
	}
	if m.Mode() != ModeSpectating {
		t.Fatalf("mode = %s, refused transition must not apply", m.Mode())
	}

	m.LeaveGame()
	if err := m.GameStarted(); err != nil {
		t.Fatalf("GameStarted: %v", err)
	}
	if err := m.SpectateStarted(); err == nil {
		t.Fatal("spectate confirmation while playing must be refused")
	}
}

func TestViewsRequireLobby(t *testing.T) {
	m := NewMachine(nil)
	if err := m.EnterHistory(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("unauthenticated EnterHistory: %v", err)
	}

	m = authedMachine(t)
	if err := m.EnterHistory(); err != nil {
		t.Fatalf("EnterHistory: %v", err)
	}
	if m.Mode() != ModeHistoryReview {
		t.Fatalf("mode = %s", m.Mode())
	}
	m.ExitView()
	if m.Mode() != ModeLobby {
		t.Fatalf("after ExitView mode = %s", m.Mode())
	}

	if err := m.GameStarted(); err != nil {
		t.Fatalf("GameStarted: %v", err)
	}
	if err := m.EnterProfile(); !errors.Is(err, ErrBusy) {
		t.Fatalf("EnterProfile mid-game: %v", err)
	}
}

func TestCanIssueGates(t *testing.T) {
	m := NewMachine(nil)
	for _, k := range []wire.Kind{wire.KindFindMatch, wire.KindSpectate, wire.KindGetUserGames, wire.KindGetUserStats} {
		if err := m.CanIssue(k); !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("CanIssue(%s) unauthenticated: %v", k, err)
		}
	}
	if err := m.CanIssue(wire.KindListGames); err != nil {
		t.Errorf("list_games should not require auth: %v", err)
	}

	m = authedMachine(t)
	if err := m.CanIssue(wire.KindFindMatch); err != nil {
		t.Errorf("CanIssue(find_match) in lobby: %v", err)
	}
	if err := m.GameStarted(); err != nil {
		t.Fatalf("GameStarted: %v", err)
	}
	if err := m.CanIssue(wire.KindFindMatch); !errors.Is(err, ErrBusy) {
		t.Errorf("CanIssue(find_match) mid-game: %v", err)
	}
}

func TestLogout(t *testing.T) {
	m := authedMachine(t)
	m.Logout()
	if m.Mode() != ModeUnauthenticated || m.Username() != "" || m.PlayerID() != "" {
		t.Fatalf("after logout: mode=%s user=%q player=%q", m.Mode(), m.Username(), m.PlayerID())
	}
}
