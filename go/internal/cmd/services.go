package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/moogle/go/internal/dbconfig"
	"github.com/mcdev12/moogle/go/internal/quiz/archive"
	"github.com/mcdev12/moogle/go/internal/quiz/gateway"
	"github.com/mcdev12/moogle/go/internal/quiz/questions"
	"github.com/mcdev12/moogle/go/internal/quiz/registry"
	"github.com/mcdev12/moogle/go/internal/quiz/relay"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

type Services struct {
	Connections *gateway.ConnectionManager
	Rooms       *registry.Registry
	WebSocket   *gateway.WebSocketHandler
	Create      *gateway.CreateHandler
	State       *gateway.StateHandler

	// optional
	mirror    *relay.Mirror
	publisher *relay.JetStreamPublisher
	recorder  *archive.Recorder
	store     *archive.PostgresStore

	wg sync.WaitGroup
}

func setupServices(ctx context.Context, cfg Config, game GameConfig) (*Services, error) {
	// Wire up dependency injection chain
	// Transport → optional relay → registry (+ archive observer) → handlers
	clock := clockwork.NewRealClock()
	s := &Services{}

	connCfg := gateway.DefaultConnectionConfig()
	connCfg.MessagesPerSec = cfg.MessagesPerSec
	connCfg.MessageBurst = cfg.MessageBurst
	s.Connections = gateway.NewConnectionManager(connCfg)

	var out room.Broadcaster = s.Connections
	if cfg.NATSURL != "" {
		jsCfg := relay.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		publisher, err := relay.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		s.publisher = publisher
		s.mirror = relay.NewMirror(s.Connections, publisher, clock, relay.DefaultMirrorConfig())
		out = s.mirror
	}

	var observer room.FinishObserver
	if cfg.ArchiveEnabled {
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			s.closeClients()
			return nil, err
		}
		store, err := archive.Open(ctx, dbCfg.DSN())
		if err != nil {
			s.closeClients()
			return nil, fmt.Errorf("failed to open results archive: %w", err)
		}
		log.Info().
			Str("host", dbCfg.Host).
			Int("port", dbCfg.Port).
			Str("database", dbCfg.Database).
			Msg("connected to database")
		s.store = store
		s.recorder = archive.NewRecorder(store, archive.DefaultRecorderConfig())
		observer = s.recorder
	}

	s.Rooms = registry.New(game.Room, game.Registry, clock, out, observer)
	s.Connections.SetHandler(gateway.NewDispatcher(s.Rooms, out, clock))

	s.WebSocket = gateway.NewWebSocketHandler(s.Connections)
	s.Create = gateway.NewCreateHandler(s.Rooms, questions.NewLoader(cfg.SheetTimeout))
	s.State = gateway.NewStateHandler(s.Rooms, cfg.PublicURL)

	return s, nil
}

// Start runs the background workers until ctx is cancelled.
func (s *Services) Start(ctx context.Context) {
	s.goRun(func() { s.Connections.Start(ctx) })
	s.goRun(func() { s.Rooms.RunReaper(ctx) })
	if s.mirror != nil {
		s.goRun(func() { s.mirror.Run(ctx) })
	}
	if s.recorder != nil {
		s.goRun(func() { s.recorder.Run(ctx) })
	}
}

func (s *Services) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Shutdown ends every room with reason, waits for the workers started by
// Start to flush and stop, then closes external clients. cancel must stop
// the context passed to Start.
func (s *Services) Shutdown(reason string, cancel context.CancelFunc) {
	s.Rooms.Close(reason)
	cancel()
	s.wg.Wait()
	s.closeClients()
}

func (s *Services) closeClients() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Error().Err(err).Msg("close results archive")
		}
	}
}
