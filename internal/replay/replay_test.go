package replay

import (
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/internal/rules"
	"github.com/kapu/chesslive/pkg/wire"
)

func historyGame(moves ...string) wire.HistoryGame {
	g := wire.HistoryGame{
		GameID:      "g1",
		WhitePlayer: "alice",
		BlackPlayer: "bob",
		Status:      "white_wins",
	}
	for i, m := range moves {
		g.Moves = append(g.Moves, wire.HistoryMove{Move: m, Timestamp: float64(i)})
	}
	return g
}

func newTestSession(t *testing.T, moves ...string) *Session {
	t.Helper()
	return NewSession(rules.New(), RecordFrom(historyGame(moves...)), zap.NewNop())
}

func TestStepForwardAndBack(t *testing.T) {
	s := newTestSession(t, "e2e4", "e7e5", "g1f3")

	start := s.Reset()
	if start.Cursor != 0 || start.Turn != wire.White {
		t.Fatalf("start: cursor=%d turn=%s", start.Cursor, start.Turn)
	}

	p1 := s.StepForward()
	if p1.Cursor != 1 || p1.Turn != wire.Black {
		t.Fatalf("after 1 step: cursor=%d turn=%s", p1.Cursor, p1.Turn)
	}
	if p1.FEN == start.FEN {
		t.Fatal("position must change after a step")
	}

	back := s.StepBack()
	if back.Cursor != 0 || back.FEN != start.FEN {
		t.Fatalf("step back: cursor=%d, FEN mismatch", back.Cursor)
	}
	// Underflow clamps.
	if p := s.StepBack(); p.Cursor != 0 {
		t.Fatalf("cursor underflow: %d", p.Cursor)
	}
}

func TestCursorDerivationIsPathIndependent(t *testing.T) {
	s := newTestSession(t, "e2e4", "e7e5", "g1f3", "b8c6", "f1b5")

	var forward Position
	for i := 0; i < 3; i++ {
		forward = s.StepForward()
	}

	s.End()
	s.StepBack()
	s.StepBack()
	jumped := s.Seek(3)

	if forward.FEN != jumped.FEN || forward.Turn != jumped.Turn {
		t.Fatalf("cursor 3 positions differ:\n forward: %s\n jumped:  %s", forward.FEN, jumped.FEN)
	}
}

func TestEndAndOverflowClamp(t *testing.T) {
	s := newTestSession(t, "e2e4", "e7e5")
	end := s.End()
	if end.Cursor != 2 {
		t.Fatalf("End cursor = %d", end.Cursor)
	}
	if p := s.StepForward(); p.Cursor != 2 {
		t.Fatalf("cursor overflow: %d", p.Cursor)
	}
	if p := s.Seek(99); p.Cursor != 2 {
		t.Fatalf("Seek clamp: %d", p.Cursor)
	}
}

func TestCorruptRecordHaltsAtBadMove(t *testing.T) {
	s := newTestSession(t, "e2e4", "e7e5", "a1a8", "g1f3")

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want traversal halted at the bad move", s.Len())
	}
	end := s.End()
	if end.Cursor != 2 || !end.Truncated {
		t.Fatalf("end: cursor=%d truncated=%v", end.Cursor, end.Truncated)
	}
	// Positions before the break are reachable and not flagged.
	if p := s.Seek(1); p.Truncated {
		t.Fatal("positions before the break must not be flagged")
	}
}

func TestMoveListUsesDisplayNotation(t *testing.T) {
	s := newTestSession(t, "e2e4", "e7e5", "g1f3")
	got := s.MoveList()
	want := []string{"e4", "e5", "Nf3"}
	if len(got) != len(want) {
		t.Fatalf("MoveList = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MoveList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRecordFromCopiesTimestamps(t *testing.T) {
	rec := RecordFrom(historyGame("e2e4", "e7e5"))
	if len(rec.Moves) != 2 || len(rec.Timestamps) != 2 {
		t.Fatalf("record: %d moves, %d timestamps", len(rec.Moves), len(rec.Timestamps))
	}
	if rec.Timestamps[1] != 1 {
		t.Fatalf("timestamp[1] = %v", rec.Timestamps[1])
	}
}
