package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nortechlabs/recall/internal/bus"
	"github.com/nortechlabs/recall/internal/channel"
	"github.com/nortechlabs/recall/internal/config"
	"github.com/nortechlabs/recall/internal/cron"
	"github.com/nortechlabs/recall/internal/memory"
	"github.com/nortechlabs/recall/internal/rules"
	"github.com/nortechlabs/recall/internal/server"
	"github.com/nortechlabs/recall/internal/store"
)

// Gateway wires the retention engine to its transports: the HTTP API, the
// chat channels feeding the message bus, and the periodic GC sweep.
type Gateway struct {
	cfg     *config.Config
	engine  *memory.Engine
	bus     *bus.MessageBus
	manager *channel.ChannelManager
	server  *server.Server
	cron    *cron.Service
	closer  io.Closer

	// SignalChan overrides the OS signal source in tests.
	SignalChan chan os.Signal
}

func New(cfg *config.Config) (*Gateway, error) {
	table, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	persister, closer, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	engine, err := memory.NewEngine(table, persister, memory.Options{
		MaxTokens:    cfg.Engine.MaxTokens,
		MaxEvents:    cfg.Engine.MaxEvents,
		ContextLimit: cfg.Engine.ContextLimit,
	})
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("init engine: %w", err)
	}

	b := bus.NewMessageBus(config.DefaultBufSize)

	manager, err := channel.NewChannelManager(cfg.Channels, b)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("init channels: %w", err)
	}

	g := &Gateway{
		cfg:     cfg,
		engine:  engine,
		bus:     b,
		manager: manager,
		server:  server.New(cfg.Server, engine),
		closer:  closer,
	}

	if cfg.GC.SweepEnabled {
		g.cron = cron.NewService(cfg.GC.SweepSchedule, engine)
	}

	return g, nil
}

func openStore(cfg config.StoreConfig) (memory.Persister, io.Closer, error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s, nil
	case "", "file":
		return store.NewJSONStore(cfg.Path), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Run starts every component and blocks until SIGINT/SIGTERM or a context
// cancel, then shuts everything down in reverse order.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.server.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	if err := g.manager.StartAll(ctx); err != nil {
		g.server.Stop()
		return fmt.Errorf("start channels: %w", err)
	}

	if g.cron != nil {
		if err := g.cron.Start(); err != nil {
			g.manager.StopAll()
			g.server.Stop()
			return fmt.Errorf("start gc sweep: %w", err)
		}
	}

	go g.dispatchLoop(ctx)

	sigCh := g.SignalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	log.Printf("[gateway] running, channels: %v", g.manager.EnabledChannels())

	select {
	case sig := <-sigCh:
		log.Printf("[gateway] received %v, shutting down", sig)
	case <-ctx.Done():
		log.Printf("[gateway] context cancelled, shutting down")
	}

	return g.shutdown()
}

// dispatchLoop records each inbound chat message as an interaction and
// replies with the engine's suggestion.
func (g *Gateway) dispatchLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			res := g.engine.RecordInteraction(msg.SenderID, msg.Channel, msg.Text)
			if res.Quarantined {
				log.Printf("[gateway] quarantined interaction %s from %s (risk %d)",
					res.EventID, msg.SessionKey(), res.RiskScore)
			}
			if res.Suggestion == "" {
				continue
			}
			g.bus.PublishOutbound(bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Text:    res.Suggestion,
			})
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) shutdown() error {
	if g.cron != nil {
		g.cron.Stop()
	}
	g.manager.StopAll()
	if err := g.server.Stop(); err != nil {
		log.Printf("[gateway] http shutdown error: %v", err)
	}
	if g.closer != nil {
		if err := g.closer.Close(); err != nil {
			log.Printf("[gateway] store close error: %v", err)
		}
	}
	log.Printf("[gateway] stopped")
	return nil
}
