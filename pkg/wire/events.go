package wire

// Event is one decoded inbound frame. The set of implementations is closed;
// dispatch code switches exhaustively on the concrete type.
type Event interface {
	EventKind() Kind
}

// AuthResponse answers register and login commands, including the automatic
// re-identification replay after a reconnect.
type AuthResponse struct {
	Success     bool         `json:"success"`
	PlayerID    string       `json:"player_id"`
	UserProfile *UserProfile `json:"user_profile,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// GameStart notifies a queued player that a match was made.
type GameStart struct {
	GameID   string    `json:"game_id"`
	Color    Color     `json:"color"`
	Opponent string    `json:"opponent"`
	State    GameState `json:"state"`
}

// GameUpdate carries a wholesale replacement of the authoritative game state.
type GameUpdate struct {
	State GameState `json:"state"`
}

// SpectateGame confirms a spectate request with the current state and the
// accumulated chat history of the game.
type SpectateGame struct {
	GameID      string        `json:"game_id"`
	State       GameState     `json:"state"`
	ChatHistory []ChatPayload `json:"chat_history"`
}

// GamesList answers list_games with the ongoing games open for spectating.
type GamesList struct {
	Games []GameListing `json:"games"`
}

// LobbyStatus reports matchmaking queue position after find_match.
type LobbyStatus struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position"`
}

// UserGames answers get_user_games with the caller's finished games.
type UserGames struct {
	Games []HistoryGame `json:"games"`
}

// UserStats answers get_user_stats.
type UserStats struct {
	Stats UserStatsPayload `json:"stats"`
}

// ChatEvent is one broadcast chat message for the active game.
type ChatEvent struct {
	Message ChatPayload `json:"message"`
}

// ServerError is a server-reported application error, e.g. an illegal move
// rejected server-side.
type ServerError struct {
	Message string `json:"message"`
}

func (*AuthResponse) EventKind() Kind { return KindAuthResponse }
func (*GameStart) EventKind() Kind    { return KindGameStart }
func (*GameUpdate) EventKind() Kind   { return KindGameUpdate }
func (*SpectateGame) EventKind() Kind { return KindSpectateGame }
func (*GamesList) EventKind() Kind    { return KindGamesList }
func (*LobbyStatus) EventKind() Kind  { return KindLobbyStatus }
func (*UserGames) EventKind() Kind    { return KindUserGames }
func (*UserStats) EventKind() Kind    { return KindUserStats }
func (*ChatEvent) EventKind() Kind    { return KindChat }
func (*ServerError) EventKind() Kind  { return KindError }
