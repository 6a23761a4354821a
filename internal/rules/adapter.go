// Package rules wraps the chess rules engine behind the small surface the
// client core needs: rebuilding positions from stored coordinate moves,
// validating a move before it is transmitted, and producing display notation.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/kapu/chesslive/pkg/wire"
)

// ErrIllegalMove marks a move the engine rejects for the current position.
var ErrIllegalMove = errors.New("illegal move")

// Applied describes a move the engine accepted.
type Applied struct {
	UCI string
	SAN string
	FEN string
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// Reconstruct replays coordinate moves from the initial position. On a bad
// move it returns the game advanced through the last good move, the failing
// index, and an error; callers surface the partial position rather than
// aborting.
func (a *Adapter) Reconstruct(moves []string) (*nchess.Game, int, error) {
	game := nchess.NewGame()
	for i, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return game, i, fmt.Errorf("replay move %d %q: %w", i, mv, err)
		}
	}
	return game, len(moves), nil
}

// Validate applies moveUCI on top of history and reports the applied move, or
// ErrIllegalMove when the engine rejects it. Only accepted moves may be
// transmitted to the server.
func (a *Adapter) Validate(history []string, moveUCI string) (*Applied, error) {
	game, _, err := a.Reconstruct(history)
	if err != nil {
		return nil, err
	}
	uci := strings.ToLower(strings.TrimSpace(moveUCI))
	if uci == "" {
		return nil, ErrIllegalMove
	}
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrIllegalMove, moveUCI)
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	game.Move(mv, nil)
	return &Applied{UCI: uci, SAN: san, FEN: game.FEN()}, nil
}

// Turn reports the side to move after history; on a broken replay it is the
// side to move at the break point.
func (a *Adapter) Turn(history []string) wire.Color {
	game, _, _ := a.Reconstruct(history)
	if game.Position().Turn() == nchess.White {
		return wire.White
	}
	return wire.Black
}

// Notation converts a coordinate move list into algebraic notation for
// display. A move that fails to replay is shown as its raw coordinate code;
// so is everything after it, since the position can no longer be advanced.
func (a *Adapter) Notation(history []string) []string {
	out := make([]string, 0, len(history))
	game := nchess.NewGame()
	broken := false
	for _, mv := range history {
		if broken {
			out = append(out, mv)
			continue
		}
		pos := game.Position()
		decoded, err := nchess.UCINotation{}.Decode(pos, strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			broken = true
			out = append(out, mv)
			continue
		}
		out = append(out, nchess.AlgebraicNotation{}.Encode(pos, decoded))
		game.Move(decoded, nil)
	}
	return out
}

// StartFEN is the serialized initial position.
func (a *Adapter) StartFEN() string {
	return nchess.NewGame().FEN()
}
