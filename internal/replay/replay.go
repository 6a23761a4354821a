// Package replay steps through the stored moves of a finished game. Each
// cursor position is re-derived from the start position, so stepping is
// always consistent with the rules engine and never depends on incremental
// undo support.
package replay

import (
	"go.uber.org/zap"

	"github.com/kapu/chesslive/internal/rules"
	"github.com/kapu/chesslive/pkg/wire"
)

// Record is one reviewable game, fixed at construction.
type Record struct {
	GameID      string
	WhitePlayer string
	BlackPlayer string
	Status      string
	Winner      string
	WinReason   string
	Moves       []string
	Timestamps  []float64
}

func RecordFrom(g wire.HistoryGame) Record {
	r := Record{
		GameID:      g.GameID,
		WhitePlayer: g.WhitePlayer,
		BlackPlayer: g.BlackPlayer,
		Status:      g.Status,
		Winner:      g.Winner,
		WinReason:   g.WinReason,
	}
	for _, m := range g.Moves {
		r.Moves = append(r.Moves, m.Move)
		r.Timestamps = append(r.Timestamps, m.Timestamp)
	}
	return r
}

// Position is the derived board at one cursor value.
type Position struct {
	FEN    string
	Cursor int
	Turn   wire.Color
	// Truncated is set when a stored move failed to apply; the position is
	// the last reachable one and the cursor cannot advance past it.
	Truncated bool
}

// Session is a cursor over one Record. Not safe for concurrent use.
type Session struct {
	rules  *rules.Adapter
	logger *zap.Logger
	rec    Record
	cursor int
	// playable is the number of leading moves that apply cleanly, detected
	// once at construction.
	playable  int
	truncated bool
}

func NewSession(r *rules.Adapter, rec Record, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{rules: r, logger: logger, rec: rec, playable: len(rec.Moves)}
	if _, failed, err := r.Reconstruct(rec.Moves); err != nil {
		s.playable = failed
		s.truncated = true
		logger.Warn("history_truncated",
			zap.String("game_id", rec.GameID),
			zap.Int("move_index", failed),
			zap.Error(err),
		)
	}
	return s
}

func (s *Session) Record() Record { return s.rec }
func (s *Session) Cursor() int    { return s.cursor }

// Len is the number of moves the cursor can traverse. Shorter than the
// stored move list when the record is corrupt.
func (s *Session) Len() int { return s.playable }

func (s *Session) StepForward() Position {
	if s.cursor < s.playable {
		s.cursor++
	}
	return s.position()
}

func (s *Session) StepBack() Position {
	if s.cursor > 0 {
		s.cursor--
	}
	return s.position()
}

func (s *Session) Reset() Position {
	s.cursor = 0
	return s.position()
}

func (s *Session) End() Position {
	s.cursor = s.playable
	return s.position()
}

// Seek clamps to [0, Len].
func (s *Session) Seek(n int) Position {
	switch {
	case n < 0:
		s.cursor = 0
	case n > s.playable:
		s.cursor = s.playable
	default:
		s.cursor = n
	}
	return s.position()
}

// MoveList renders the traversable moves for display.
func (s *Session) MoveList() []string {
	return s.rules.Notation(s.rec.Moves[:s.playable])
}

func (s *Session) position() Position {
	game, _, _ := s.rules.Reconstruct(s.rec.Moves[:s.cursor])
	return Position{
		FEN:       game.FEN(),
		Cursor:    s.cursor,
		Turn:      s.rules.Turn(s.rec.Moves[:s.cursor]),
		Truncated: s.truncated && s.cursor == s.playable,
	}
}
