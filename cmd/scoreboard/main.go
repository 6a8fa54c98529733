// Command scoreboard follows one match over the live channel and prints
// score and event lines, reconnecting on its own when the channel drops.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/teamtrack/volley-live-backend/internal/auth"
	"github.com/teamtrack/volley-live-backend/internal/client"
	"github.com/teamtrack/volley-live-backend/internal/config"
	"github.com/teamtrack/volley-live-backend/pkg/types"
)

func main() {
	var (
		server  = flag.String("server", "http://localhost:8080", "server base URL")
		matchID = flag.String("match", "", "match id to follow")
		token   = flag.String("token", "", "bearer token")
	)
	flag.Parse()
	if *matchID == "" || *token == "" {
		fmt.Fprintln(os.Stderr, "usage: scoreboard -match <id> -token <token> [-server <url>]")
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := client.NewSupervisor(client.Config{
		ServerURL:         *server + "/ws",
		MatchID:           *matchID,
		Token:             auth.Token{Value: *token},
		MaxAttempts:       cfg.ReconnectMaxAttempts,
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ConfirmTimeout:    cfg.ConfirmTimeout,
	},
		client.WebsocketDialer{HandshakeTimeout: cfg.HandshakeTimeout},
		client.NewAPIClient(*server, 10*time.Second),
		logger,
	)

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	for {
		select {
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				logger.Fatal("supervisor stopped", zap.Error(err))
			}
			return
		case u := <-sup.Updates():
			printUpdate(sup, u)
		}
	}
}

func printUpdate(sup *client.Supervisor, u client.Update) {
	switch {
	case u.State != "":
		fmt.Printf("-- %s\n", u.State)
	case u.Err != nil:
		fmt.Printf("!! %v\n", u.Err)
	case u.Event != nil:
		home, away := sup.DisplayedScore()
		switch u.Event.Type {
		case types.EvtActionRegistered:
			a := u.Event.Action
			fmt.Printf("%2d-%-2d  %s %s by %s\n", home, away, a.Type, a.Result, a.AthleteID)
		case types.EvtActionUndone:
			fmt.Printf("%2d-%-2d  action %s undone\n", home, away, u.Event.ActionID)
		case types.EvtSetCreated:
			fmt.Printf("== set %d started\n", u.Event.SetNumber)
		case types.EvtSetFinalized:
			fmt.Printf("== set finished %d-%d\n", u.Event.HomeScore, u.Event.AwayScore)
		case types.EvtMatchStarted:
			fmt.Println("== match started")
		case types.EvtMatchFinalized:
			fmt.Println("== match finished")
		}
	}
}
