package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind marks a frame whose type discriminator is not part of the
// closed inbound set. Callers drop such frames with a diagnostic.
var ErrUnknownKind = errors.New("unknown frame kind")

// DecodeEvent turns one raw frame into its typed event.
func DecodeEvent(frame []byte) (Event, error) {
	var env struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode frame envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case KindAuthResponse:
		ev = &AuthResponse{}
	case KindGameStart:
		ev = &GameStart{}
	case KindGameUpdate:
		ev = &GameUpdate{}
	case KindSpectateGame:
		ev = &SpectateGame{}
	case KindGamesList:
		ev = &GamesList{}
	case KindLobbyStatus:
		ev = &LobbyStatus{}
	case KindUserGames:
		ev = &UserGames{}
	case KindUserStats:
		ev = &UserStats{}
	case KindChat:
		ev = &ChatEvent{}
	case KindError:
		ev = &ServerError{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	if err := json.Unmarshal(frame, ev); err != nil {
		return nil, fmt.Errorf("decode %s frame: %w", env.Type, err)
	}
	return ev, nil
}

// EncodeCommand serializes a command into a self-describing frame with the
// type discriminator merged in.
func EncodeCommand(c Command) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", c.CommandKind(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s command: %w", c.CommandKind(), err)
	}
	kind, err := json.Marshal(c.CommandKind())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	return json.Marshal(fields)
}
