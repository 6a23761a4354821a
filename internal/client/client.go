// Package client ties the transport link, the protocol dispatcher, the
// session machine and the game engine together under a single event loop.
// All mutable state is owned by that loop; the public methods only enqueue
// intents and never touch state directly.
package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/chesslive/internal/config"
	"github.com/kapu/chesslive/internal/gamestate"
	"github.com/kapu/chesslive/internal/msgcat"
	"github.com/kapu/chesslive/internal/protocol"
	"github.com/kapu/chesslive/internal/replay"
	"github.com/kapu/chesslive/internal/rules"
	"github.com/kapu/chesslive/internal/session"
	"github.com/kapu/chesslive/internal/transport"
	"github.com/kapu/chesslive/pkg/wire"
)

// LinkFactory builds a fresh connection. A new link is created for every
// manual connect, since an exhausted link is terminal.
type LinkFactory func() transport.Link

// Notice is one line of user-facing feedback. Sticky notices stay until
// replaced; the rest expire after the configured TTL.
type Notice struct {
	Text   string
	Sticky bool
	until  time.Time
}

// View is the full render state, pushed after every handled input.
// Latest-wins: an unread view is replaced, never queued.
type View struct {
	Mode       session.Mode
	Connection transport.Phase
	Notice     string
	Username   string

	GameID     string
	Board      string
	WhiteClock float64
	BlackClock float64
	LocalTurn  bool
	Status     string
	Moves      []string
	Chat       []gamestate.ChatMessage

	Games   []wire.GameListing
	History []replay.Record
	Stats   *wire.UserStatsPayload
	Profile *wire.UserProfile

	ReplayFEN    string
	ReplayCursor int
	ReplayLen    int
}

type Client struct {
	cfg     *config.AppConfig
	logger  *zap.Logger
	cat     *msgcat.Catalog
	rules   *rules.Adapter
	machine *session.Machine
	engine  *gamestate.Engine

	newLink    LinkFactory
	link       transport.Link
	dispatcher *protocol.Dispatcher
	phase      transport.Phase

	intents chan intent
	updates chan View

	notice      Notice
	pendingAuth wire.Command
	settle      <-chan time.Time

	games   []wire.GameListing
	history []replay.Record
	stats   *wire.UserStatsPayload
	profile *wire.UserProfile
	review  *replay.Session
}

func New(cfg *config.AppConfig, cat *msgcat.Catalog, newLink LinkFactory, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:     cfg,
		logger:  logger,
		cat:     cat,
		rules:   rules.New(),
		machine: session.NewMachine(logger),
		newLink: newLink,
		intents: make(chan intent, 16),
		updates: make(chan View, 1),
	}
	c.engine = gamestate.New(c.rules, cat, logger)
	c.dispatcher = protocol.NewDispatcher(c.sendFrame, logger)
	c.dispatcher.Subscribe(c.onSessionEvent)
	c.dispatcher.Subscribe(c.onGameEvent)
	c.dispatcher.Subscribe(c.onLobbyEvent)
	return c
}

// Updates delivers the latest View. Stale views are dropped, so a slow
// reader always sees current state.
func (c *Client) Updates() <-chan View { return c.updates }

func (c *Client) sendFrame(ctx context.Context, frame []byte) error {
	if c.link == nil {
		return transport.ErrNotOpen
	}
	return c.link.Send(ctx, frame)
}

type intent interface{ intentName() string }

type authIntent struct {
	cmd      wire.Command
	username string
}
type findMatchIntent struct{}
type listGamesIntent struct{}
type spectateIntent struct{ gameID string }
type moveIntent struct{ uci string }
type chatIntent struct{ text string }
type leaveIntent struct{}
type historyIntent struct{}
type reviewSelectIntent struct{ index int }
type reviewStepIntent struct{ op reviewOp }
type profileIntent struct{}
type closeViewIntent struct{}
type logoutIntent struct{}

type reviewOp int

const (
	reviewForward reviewOp = iota
	reviewBack
	reviewReset
	reviewEnd
)

func (authIntent) intentName() string         { return "auth" }
func (findMatchIntent) intentName() string    { return "find_match" }
func (listGamesIntent) intentName() string    { return "list_games" }
func (spectateIntent) intentName() string     { return "spectate" }
func (moveIntent) intentName() string         { return "move" }
func (chatIntent) intentName() string         { return "chat" }
func (leaveIntent) intentName() string        { return "leave" }
func (historyIntent) intentName() string      { return "history" }
func (reviewSelectIntent) intentName() string { return "review_select" }
func (reviewStepIntent) intentName() string   { return "review_step" }
func (profileIntent) intentName() string      { return "profile" }
func (closeViewIntent) intentName() string    { return "close_view" }
func (logoutIntent) intentName() string       { return "logout" }

func (c *Client) enqueue(in intent) {
	select {
	case c.intents <- in:
	default:
		c.logger.Warn("intent_dropped", zap.String("intent", in.intentName()))
	}
}

// Guest identifies with a username only, creating no account.
func (c *Client) Guest(username string) {
	c.enqueue(authIntent{cmd: wire.Register{Username: username}, username: username})
}

// RegisterAccount creates a credentialed account and signs in.
func (c *Client) RegisterAccount(username, password string) {
	c.enqueue(authIntent{cmd: wire.Register{Username: username, Password: password}, username: username})
}

func (c *Client) Login(username, password string) {
	c.enqueue(authIntent{cmd: wire.Login{Username: username, Password: password}, username: username})
}

func (c *Client) FindMatch() { c.enqueue(findMatchIntent{}) }

func (c *Client) ListGames() { c.enqueue(listGamesIntent{}) }

func (c *Client) Spectate(gameID string) { c.enqueue(spectateIntent{gameID: gameID}) }

func (c *Client) Move(uci string) { c.enqueue(moveIntent{uci: uci}) }

func (c *Client) Chat(text string) { c.enqueue(chatIntent{text: text}) }

func (c *Client) LeaveGame() { c.enqueue(leaveIntent{}) }

func (c *Client) OpenHistory() { c.enqueue(historyIntent{}) }

func (c *Client) ReviewGame(index int) { c.enqueue(reviewSelectIntent{index: index}) }

func (c *Client) ReviewForward() { c.enqueue(reviewStepIntent{op: reviewForward}) }

func (c *Client) ReviewBack() { c.enqueue(reviewStepIntent{op: reviewBack}) }

func (c *Client) ReviewReset() { c.enqueue(reviewStepIntent{op: reviewReset}) }

func (c *Client) ReviewEnd() { c.enqueue(reviewStepIntent{op: reviewEnd}) }

func (c *Client) OpenProfile() { c.enqueue(profileIntent{}) }

func (c *Client) CloseView() { c.enqueue(closeViewIntent{}) }

func (c *Client) Logout() { c.enqueue(logoutIntent{}) }
