package wire

// Command is one outbound request. The set of implementations is closed.
type Command interface {
	CommandKind() Kind
}

// Register creates an account when Password is set. Without a password it is
// the simple guest path, also used for re-identification after a reconnect
// (username replay only, no credential is stored or resent).
type Register struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// Login authenticates against a stored account.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// FindMatch enters the matchmaking queue.
type FindMatch struct{}

// Spectate subscribes to an ongoing game as a read-only observer.
type Spectate struct {
	GameID string `json:"game_id"`
}

// MakeMove submits a locally validated move in coordinate (UCI) form.
type MakeMove struct {
	Move string `json:"move"`
}

// ChatSend posts a chat message to the active game.
type ChatSend struct {
	Message string `json:"message"`
}

// GetUserGames requests the caller's finished games.
type GetUserGames struct{}

// GetUserStats requests the caller's aggregate statistics.
type GetUserStats struct{}

// ListGames requests the ongoing games open for spectating.
type ListGames struct{}

func (Register) CommandKind() Kind     { return KindRegister }
func (Login) CommandKind() Kind        { return KindLogin }
func (FindMatch) CommandKind() Kind    { return KindFindMatch }
func (Spectate) CommandKind() Kind     { return KindSpectate }
func (MakeMove) CommandKind() Kind     { return KindMakeMove }
func (ChatSend) CommandKind() Kind     { return KindChat }
func (GetUserGames) CommandKind() Kind { return KindGetUserGames }
func (GetUserStats) CommandKind() Kind { return KindGetUserStats }
func (ListGames) CommandKind() Kind    { return KindListGames }
