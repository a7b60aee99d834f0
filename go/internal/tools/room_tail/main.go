package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
	"github.com/mcdev12/moogle/go/internal/quiz/relay"
)

func main() {
	code := flag.String("code", "", "only follow the room with this join code")
	all := flag.Bool("all", false, "replay retained events before following new ones")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	cfg := relay.DefaultJetStreamConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.URL = url
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := relay.TailOptions{RoomCode: *code, FromStart: *all}
	if err := relay.Tail(ctx, cfg, opts, printEvent); err != nil {
		fmt.Fprintf(os.Stderr, "tail: %v\n", err)
		os.Exit(1)
	}
}

func printEvent(ev *events.RoomEvent, payload any) {
	at := ev.Timestamp.Local().Format(time.TimeOnly)
	switch p := payload.(type) {
	case *events.RosterUpdatePayload:
		fmt.Printf("%s %s roster: %d player(s)\n", at, ev.RoomCode, len(p.Players))
	case *events.ChestResolvedPayload:
		fmt.Printf("%s %s chest: %s opened %s\n", at, ev.RoomCode, p.ActorID, p.Outcome.Kind)
	case *events.TimeRemainingPayload:
		fmt.Printf("%s %s %ds left\n", at, ev.RoomCode, p.Seconds)
	case *events.RoomFinishedPayload:
		fmt.Printf("%s %s finished%s\n", at, ev.RoomCode, leader(p.Players))
	case *events.RoomEndedPayload:
		fmt.Printf("%s %s ended (%s)%s\n", at, ev.RoomCode, p.Reason, leader(p.Players))
	case *events.SoulsSwappedPayload:
		fmt.Printf("%s %s souls swapped: %s <-> %s\n", at, ev.RoomCode, p.PlayerA, p.PlayerB)
	default:
		fmt.Printf("%s %s %s\n", at, ev.RoomCode, ev.Type)
	}
}

func leader(players []models.Player) string {
	if len(players) == 0 {
		return ""
	}
	return fmt.Sprintf(", leader %s with %d", players[0].Name, players[0].Balance)
}
