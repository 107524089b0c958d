package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benallfree/vibescale-sub000/internal/detector"
	"github.com/benallfree/vibescale-sub000/internal/player"
	"github.com/benallfree/vibescale-sub000/internal/registry"
	"github.com/benallfree/vibescale-sub000/internal/repository"
)

var (
	tracer = otel.Tracer("room")
	meter  = otel.Meter("room")

	connectCounter, _   = meter.Int64Counter("room.connects")
	broadcastCounter, _ = meter.Int64Counter("room.broadcasts")
)

const persistTimeout = 2 * time.Second

// Config carries the per-room tunables.
type Config struct {
	SpawnRadius float64
	Detector    detector.Config
}

// DefaultConfig returns the standard room configuration.
func DefaultConfig() Config {
	return Config{
		SpawnRadius: player.DefaultSpawnRadius,
		Detector:    detector.DefaultConfig(),
	}
}

type attachRequest struct {
	client *player.Client
	state  player.State
}

type inboundFrame struct {
	client *player.Client
	data   []byte
}

// Room is the single owner of one room's registry, detector and broadcast
// logic. One goroutine consumes all attach, inbound and detach events, so
// registry mutation and detector evaluation are serialized without further
// locking. Rooms share no mutable state with each other.
type Room struct {
	Name string

	cfg      Config
	registry *registry.Registry
	detector *detector.Detector
	players  repository.PlayerRepository
	journal  repository.EventJournal

	attach  chan attachRequest
	inbound chan inboundFrame
	detach  chan *player.Client

	done     chan struct{}
	stopOnce sync.Once

	onEmpty func(*Room)
}

// New creates a room. The repositories may be no-op implementations; the
// room is fully functional in-memory.
func New(name string, cfg Config, players repository.PlayerRepository, journal repository.EventJournal) *Room {
	if players == nil {
		players = repository.NoopPlayerRepository{}
	}
	if journal == nil {
		journal = repository.NoopEventJournal{}
	}
	return &Room{
		Name:     name,
		cfg:      cfg,
		registry: registry.New(),
		detector: detector.New(cfg.Detector),
		players:  players,
		journal:  journal,
		attach:   make(chan attachRequest),
		inbound:  make(chan inboundFrame, 16),
		detach:   make(chan *player.Client),
		done:     make(chan struct{}),
	}
}

// Start launches the room goroutine. onEmpty is called from inside the room
// goroutine when the last connection leaves; the hub uses it to reap idle
// rooms.
func (r *Room) Start(onEmpty func(*Room)) {
	r.onEmpty = onEmpty
	go r.run()
}

// Stop terminates the room goroutine. Registered connections are closed so
// their read pumps unwind.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		for _, e := range r.registry.All() {
			e.Client.Close()
		}
	})
}

// Accept takes ownership of an upgraded websocket: it assigns a fresh
// identity and spawn state, hands the connection to the room goroutine for
// registration and starts the read pump. The returned client carries the
// room/player association for the connection's lifetime.
func (r *Room) Accept(conn player.Connection) *player.Client {
	spawn := player.NewSpawnState(r.cfg.SpawnRadius)
	client := player.NewClient(conn, r.Name, spawn.ID)

	select {
	case r.attach <- attachRequest{client: client, state: spawn}:
		go r.readPump(client)
	case <-r.done:
		client.Close()
	}
	return client
}

// ConnCount returns the number of currently registered connections.
func (r *Room) ConnCount() int {
	return r.registry.Len()
}

func (r *Room) run() {
	for {
		select {
		case req := <-r.attach:
			r.handleAttach(req)
		case frame := <-r.inbound:
			r.handleFrame(frame)
		case client := <-r.detach:
			r.handleDetach(client)
		case <-r.done:
			slog.Info("room goroutine stopping", "room.name", r.Name)
			return
		}
	}
}

func (r *Room) handleAttach(req attachRequest) {
	ctx, span := tracer.Start(context.Background(), "room.handleAttach")
	span.SetAttributes(
		attribute.String("room.name", r.Name),
		attribute.String("player.id", req.client.PlayerID),
	)
	defer span.End()

	r.registry.Register(req.client, req.state)
	// Seed the detector so the spawn state counts as the first broadcast.
	r.detector.IsSignificant(req.state)
	connectCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("room.name", r.Name)))

	// The new connection gets its own state first, tagged as local.
	r.sendPlayer(req.client, req.state)

	// Replay every other player to the newcomer, then announce the
	// newcomer to everyone else. Replay order across players is not
	// guaranteed.
	for _, e := range r.registry.All() {
		if e.Client == req.client {
			continue
		}
		r.sendPlayer(req.client, e.State)
	}
	r.broadcastPlayer(req.state, req.client)

	r.persistAsync(func(ctx context.Context) {
		if err := r.players.SavePlayer(ctx, req.state); err != nil {
			slog.WarnContext(ctx, "failed to persist spawn state", "player.id", req.state.ID, "error", err)
		}
		if err := r.journal.Append(ctx, r.Name, req.state.ID, repository.EventJoin); err != nil {
			slog.WarnContext(ctx, "failed to journal join", "player.id", req.state.ID, "error", err)
		}
	})

	slog.InfoContext(ctx, "player joined", "room.name", r.Name, "player.id", req.client.PlayerID, "room.size", r.registry.Len())
}

func (r *Room) handleDetach(client *player.Client) {
	ctx, span := tracer.Start(context.Background(), "room.handleDetach")
	span.SetAttributes(
		attribute.String("room.name", r.Name),
		attribute.String("player.id", client.PlayerID),
	)
	defer span.End()

	client.Close()

	last, ok := r.registry.Remove(client)
	if !ok {
		// Close raced another close event; the leave already went out.
		return
	}
	r.detector.Forget(last.ID)

	r.broadcastLeave(last.ID)

	r.persistAsync(func(ctx context.Context) {
		if err := r.players.DeletePlayer(ctx, last.ID); err != nil {
			slog.WarnContext(ctx, "failed to delete persisted state", "player.id", last.ID, "error", err)
		}
		if err := r.journal.Append(ctx, r.Name, last.ID, repository.EventLeave); err != nil {
			slog.WarnContext(ctx, "failed to journal leave", "player.id", last.ID, "error", err)
		}
	})

	slog.InfoContext(ctx, "player left", "room.name", r.Name, "player.id", last.ID, "room.size", r.registry.Len())

	if r.registry.Len() == 0 && r.onEmpty != nil {
		r.onEmpty(r)
	}
}

// persistAsync runs a best-effort store write off the broadcast path. The
// room never waits on persistence.
func (r *Room) persistAsync(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		fn(ctx)
	}()
}
