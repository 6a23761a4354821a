package wire

// GameState is the authoritative `state` payload embedded in game_start,
// game_update and spectate_game frames. Clocks are fractional seconds;
// timestamps throughout the protocol are float epoch seconds.
type GameState struct {
	Board       string   `json:"board"`
	Turn        Color    `json:"turn"`
	WhiteTime   float64  `json:"white_time"`
	BlackTime   float64  `json:"black_time"`
	MoveHistory []string `json:"move_history"`
	Status      string   `json:"status"`
	IsCheck     bool     `json:"is_check"`
	IsCheckmate bool     `json:"is_checkmate"`
	IsStalemate bool     `json:"is_stalemate"`
	WhitePlayer string   `json:"white_player"`
	BlackPlayer string   `json:"black_player"`
}

// ChatPayload is one chat record as the server broadcasts it.
type ChatPayload struct {
	Sender    string  `json:"sender"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// UserProfile arrives inside auth_response on a full login.
type UserProfile struct {
	Username    string  `json:"username"`
	CreatedAt   float64 `json:"created_at"`
	LastLogin   float64 `json:"last_login"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
}

// GameListing is one row of games_list: an ongoing game open for spectating.
type GameListing struct {
	GameID         string `json:"game_id"`
	WhitePlayer    string `json:"white_player"`
	BlackPlayer    string `json:"black_player"`
	MoveCount      int    `json:"move_count"`
	SpectatorCount int    `json:"spectator_count"`
}

// HistoryMove is one stored move of a finished game.
type HistoryMove struct {
	Move      string  `json:"move"`
	Timestamp float64 `json:"timestamp"`
}

// HistoryGame is one row of user_games, supplied wholesale by the server's
// store. Winner and WinReason are empty for draws and unfinished games.
type HistoryGame struct {
	GameID      string        `json:"game_id"`
	WhitePlayer string        `json:"white_player"`
	BlackPlayer string        `json:"black_player"`
	Status      string        `json:"status"`
	Moves       []HistoryMove `json:"moves"`
	StartTime   float64       `json:"start_time"`
	EndTime     float64       `json:"end_time"`
	Winner      string        `json:"winner"`
	WinReason   string        `json:"win_reason"`
}

// UserStatsPayload is the stats object of a user_stats frame.
type UserStatsPayload struct {
	Username    string  `json:"username"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	JoinDate    float64 `json:"join_date"`
}
