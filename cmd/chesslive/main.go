// Command chesslive is an interactive terminal client for the chesslive
// server: play, spectate, and review finished games over one persistent
// WebSocket connection.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kapu/chesslive/internal/client"
	appcfg "github.com/kapu/chesslive/internal/config"
	"github.com/kapu/chesslive/internal/msgcat"
	"github.com/kapu/chesslive/internal/obslog"
	"github.com/kapu/chesslive/internal/transport"
)

func main() {
	cmd := &cli.Command{
		Name:  "chesslive",
		Usage: "play and spectate live chess over websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "server websocket url (overrides config)",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if v := cmd.String("server"); v != "" {
		os.Setenv("CHESS_SERVER_URL", v)
	}
	cfg, err := appcfg.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger := obslog.L()
	defer logger.Sync()

	cat, err := msgcat.New(cfg.MsgCatalogDir)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	newLink := func() transport.Link {
		return transport.New(cfg.ServerURL,
			transport.WithLogger(logger),
			transport.WithRetryPolicy(cfg.ReconnectMaxAttempts, cfg.ReconnectDelay),
		)
	}
	c := client.New(cfg, cat, newLink, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go render(ctx, c)
	go func() {
		if err := c.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("client stopped", zap.Error(err))
		}
	}()

	return repl(ctx, c, stop)
}

// render prints each view as a compact block. Stale views are already
// dropped client-side, so this never falls behind.
func render(ctx context.Context, c *client.Client) {
	var last client.View
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-c.Updates():
			printView(v, last)
			last = v
		}
	}
}

func printView(v, last client.View) {
	if v.Notice != "" && v.Notice != last.Notice {
		fmt.Printf("! %s\n", v.Notice)
	}
	if v.Mode != last.Mode {
		fmt.Printf("[%s]\n", strings.ToLower(string(v.Mode)))
	}
	if v.GameID != "" && (v.Board != last.Board || v.Status != last.Status) {
		fmt.Printf("%s\n", v.Board)
		fmt.Printf("white %.0fs | black %.0fs", v.WhiteClock, v.BlackClock)
		if v.Status != "" {
			fmt.Printf(" | %s", v.Status)
		}
		if v.LocalTurn {
			fmt.Print(" | your move")
		}
		fmt.Println()
		if n := len(v.Moves); n > 0 {
			fmt.Printf("moves: %s\n", strings.Join(v.Moves, " "))
		}
	}
	if len(v.Chat) > len(last.Chat) {
		for _, m := range v.Chat[len(last.Chat):] {
			fmt.Printf("<%s> %s\n", m.Sender, m.Text)
		}
	}
	if len(v.Games) > 0 && len(last.Games) == 0 {
		for i, g := range v.Games {
			fmt.Printf("%d. %s vs %s (%d moves, %d watching) [%s]\n",
				i+1, g.WhitePlayer, g.BlackPlayer, g.MoveCount, g.SpectatorCount, g.GameID)
		}
	}
	if len(v.History) > 0 && len(last.History) == 0 {
		for i, r := range v.History {
			fmt.Printf("%d. %s vs %s (%s)\n", i+1, r.WhitePlayer, r.BlackPlayer, r.Status)
		}
	}
	if v.ReplayFEN != "" && v.ReplayFEN != last.ReplayFEN {
		fmt.Printf("review %d/%d: %s\n", v.ReplayCursor, v.ReplayLen, v.ReplayFEN)
	}
	if v.Stats != nil && last.Stats == nil {
		s := v.Stats
		fmt.Printf("%s: %d played, %d-%d-%d\n", s.Username, s.GamesPlayed, s.Wins, s.Losses, s.Draws)
	}
}

func repl(ctx context.Context, c *client.Client, stop func()) error {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: guest <name> | login <name> <pass> | register <name> <pass> | match | games | spectate <id> | move <uci> | say <text> | leave | history | review <n> | next | prev | first | end | profile | back | logout | quit")
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch cmd, args := fields[0], fields[1:]; cmd {
		case "guest":
			if len(args) == 1 {
				c.Guest(args[0])
			}
		case "login":
			if len(args) == 2 {
				c.Login(args[0], args[1])
			}
		case "register":
			if len(args) == 2 {
				c.RegisterAccount(args[0], args[1])
			}
		case "match":
			c.FindMatch()
		case "games":
			c.ListGames()
		case "spectate":
			if len(args) == 1 {
				c.Spectate(args[0])
			}
		case "move":
			if len(args) == 1 {
				c.Move(args[0])
			}
		case "say":
			if len(args) > 0 {
				c.Chat(strings.Join(args, " "))
			}
		case "leave":
			c.LeaveGame()
		case "history":
			c.OpenHistory()
		case "review":
			if len(args) == 1 {
				if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
					c.ReviewGame(n - 1)
				}
			}
		case "next":
			c.ReviewForward()
		case "prev":
			c.ReviewBack()
		case "first":
			c.ReviewReset()
		case "end":
			c.ReviewEnd()
		case "profile":
			c.OpenProfile()
		case "back":
			c.CloseView()
		case "logout":
			c.Logout()
		case "quit", "exit":
			stop()
			return nil
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
	return sc.Err()
}
