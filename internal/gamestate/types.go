package gamestate

import (
	"strings"

	"github.com/kapu/chesslive/pkg/wire"
)

// Status tokens as the server emits them. Win statuses may carry a reason
// suffix (white_wins_time, black_wins_disconnect); a bare win means checkmate.
const (
	StatusOngoing = "ongoing"
	StatusDraw    = "draw"

	prefixWhiteWins  = "white_wins"
	prefixBlackWins  = "black_wins"
	defaultWinReason = "checkmate"
)

// Role is the local relationship to the active game.
type Role struct {
	Spectator bool
	Color     wire.Color
}

func PlayerRole(c wire.Color) Role { return Role{Color: c} }
func SpectatorRole() Role          { return Role{Spectator: true} }

// OriginKind classifies who sent a chat message.
type OriginKind int

const (
	OriginParticipant OriginKind = iota
	OriginSpectator
)

// ChatMessage is immutable once appended; chat ordering is append order.
type ChatMessage struct {
	Sender    string
	Text      string
	Timestamp float64
	Origin    OriginKind
}

const spectatorSenderPrefix = "Spectator:"

func chatFromWire(p wire.ChatPayload) ChatMessage {
	origin := OriginParticipant
	if strings.HasPrefix(p.Sender, spectatorSenderPrefix) {
		origin = OriginSpectator
	}
	return ChatMessage{
		Sender:    p.Sender,
		Text:      p.Message,
		Timestamp: p.Timestamp,
		Origin:    origin,
	}
}

// Snapshot is the authoritative game state, replaced wholesale on every
// update. Only the displayed clocks on GameSession are ever predicted
// locally; the snapshot itself is never partially mutated.
type Snapshot struct {
	Board       string
	Turn        wire.Color
	WhiteClock  float64
	BlackClock  float64
	Status      string
	Check       bool
	Checkmate   bool
	Stalemate   bool
	MoveHistory []string
	WhitePlayer string
	BlackPlayer string
}

func snapshotFrom(st wire.GameState) Snapshot {
	return Snapshot{
		Board:       st.Board,
		Turn:        st.Turn,
		WhiteClock:  st.WhiteTime,
		BlackClock:  st.BlackTime,
		Status:      st.Status,
		Check:       st.IsCheck,
		Checkmate:   st.IsCheckmate,
		Stalemate:   st.IsStalemate,
		MoveHistory: append([]string(nil), st.MoveHistory...),
		WhitePlayer: st.WhitePlayer,
		BlackPlayer: st.BlackPlayer,
	}
}

// Terminal reports whether the game has ended.
func (s Snapshot) Terminal() bool {
	return s.Status != "" && s.Status != StatusOngoing
}

// GameSession is the one live game. whiteClock/blackClock are the displayed
// values: authoritative at each snapshot, then decremented locally between
// snapshots for the participant role.
type GameSession struct {
	GameID   string
	Role     Role
	Opponent string

	snapshot   Snapshot
	whiteClock float64
	blackClock float64
	localTurn  bool
	chat       []ChatMessage
}

func (s *GameSession) Snapshot() Snapshot { return s.snapshot }
