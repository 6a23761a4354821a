package wire

// Kind is the `type` discriminator carried by every frame.
type Kind string

// Inbound frame kinds.
const (
	KindAuthResponse Kind = "auth_response"
	KindGameStart    Kind = "game_start"
	KindGameUpdate   Kind = "game_update"
	KindSpectateGame Kind = "spectate_game"
	KindGamesList    Kind = "games_list"
	KindLobbyStatus  Kind = "lobby_status"
	KindUserGames    Kind = "user_games"
	KindUserStats    Kind = "user_stats"
	KindChat         Kind = "chat"
	KindError        Kind = "error"
)

// Outbound frame kinds. KindChat is shared: the inbound payload is a full
// chat record, the outbound payload is just the text.
const (
	KindRegister     Kind = "register"
	KindLogin        Kind = "login"
	KindFindMatch    Kind = "find_match"
	KindSpectate     Kind = "spectate"
	KindMakeMove     Kind = "make_move"
	KindGetUserGames Kind = "get_user_games"
	KindGetUserStats Kind = "get_user_stats"
	KindListGames    Kind = "list_games"
)

// Color identifies a chess side on the wire.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}
