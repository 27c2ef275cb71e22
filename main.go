package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/wfunc/betduel/action"
	"github.com/wfunc/betduel/api"
	"github.com/wfunc/betduel/config"
	"github.com/wfunc/betduel/logger"
	"github.com/wfunc/betduel/monitor"
	"github.com/wfunc/betduel/session"
	"github.com/wfunc/betduel/state"
	"github.com/wfunc/betduel/store"
)

// consoleObserver renders session callbacks as terminal output.
type consoleObserver struct{}

func (consoleObserver) StateChanged(snap state.Snapshot) {
	role := "challenged"
	if snap.IsChallenger() {
		role = "challenger"
	}
	fmt.Printf("[%s] phase=%s", role, snap.Phase)
	if snap.Room.ChallengeDescription != "" {
		fmt.Printf(" challenge=%q", snap.Room.ChallengeDescription)
	}
	if snap.Room.ChallengeAmount > 0 {
		fmt.Printf(" stake=%v", snap.Room.ChallengeAmount)
	}
	if snap.Room.BetStatus != "" {
		fmt.Printf(" result=%s (challenger %v, challenged %v)",
			snap.Room.BetStatus, snap.Room.ChallengerBetAmount, snap.Room.ChallengedBetAmount)
	}
	fmt.Println()
}

func (consoleObserver) ConnectivityChanged(status session.Status) {
	fmt.Printf("connection: %s\n", status)
}

func (consoleObserver) Notice(message string) {
	fmt.Printf("notice: %s\n", message)
}

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	roomID := flag.String("room", "", "join an existing room instead of creating one")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	logger.Init(*debug)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Instance id distinguishes concurrent clients in logs; the room
	// identity the server hands out is tracked separately per room.
	instanceID := uuid.New().String()
	logger.Log.Infof("starting client instance %s", instanceID)

	var mon *monitor.Monitor
	if cfg.Metrics.Enabled {
		mon = monitor.New("betduel")
		mon.StartServer(cfg.Metrics.Address)
	}

	st, err := store.NewFileStore(cfg.Client.DataDir)
	if err != nil {
		logger.Log.Fatalf("Failed to open session store: %v", err)
	}

	ctx := context.Background()

	room := *roomID
	if room == "" {
		room, err = api.NewClient(cfg.Client.APIURL).CreateRoom(ctx)
		if err != nil {
			fmt.Println("could not create a room, please try again")
			logger.Log.Fatalf("Room creation failed: %v", err)
		}
		fmt.Printf("created room %s, share this id with your opponent\n", room)
	}

	sess := session.New(room, session.Config{
		SocketURL:   cfg.Client.SocketURL,
		JoinTimeout: cfg.Client.JoinTimeout,
		PushTimeout: cfg.Client.PushTimeout,
	}, nil, st, consoleObserver{}, mon)

	if err := sess.Connect(ctx); err != nil {
		fmt.Println("could not join the room, please try again")
		logger.Log.Fatalf("Join failed: %v", err)
	}
	defer sess.Teardown()

	dispatcher := action.NewDispatcher(sess)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		sess.Teardown()
		logger.Sync()
		os.Exit(0)
	}()

	fmt.Println("commands: challenge <text> | accept <amount> | bet <amount> | decline | forfeit | reset | state | quit")

	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "challenge":
			runAction(dispatcher.SendChallenge(ctx, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "challenge"))))
		case "accept":
			amount, ok := parseAmount(fields)
			if ok {
				runAction(dispatcher.AcceptChallenge(ctx, amount))
			}
		case "bet":
			amount, ok := parseAmount(fields)
			if ok {
				runAction(dispatcher.PlaceBet(ctx, amount))
			}
		case "decline":
			runAction(dispatcher.DeclineChallenge(ctx))
		case "forfeit":
			runAction(dispatcher.ForfeitBet(ctx))
		case "reset":
			runAction(dispatcher.ResetGame(ctx))
		case "state":
			consoleObserver{}.StateChanged(sess.Snapshot())
		case "quit":
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func parseAmount(fields []string) (float64, bool) {
	if len(fields) < 2 {
		fmt.Println("missing amount")
		return 0, false
	}
	amount, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		fmt.Printf("bad amount %q\n", fields[1])
		return 0, false
	}
	return amount, true
}

func runAction(err error) {
	if err == nil {
		return
	}
	var precondition *action.PreconditionError
	var sendErr *session.SendError
	switch {
	case errors.As(err, &precondition):
		fmt.Println(precondition.Reason)
	case errors.As(err, &sendErr):
		fmt.Printf("action failed (%s), please try again\n", sendErr.Reason)
	default:
		fmt.Printf("action failed: %v\n", err)
	}
}
