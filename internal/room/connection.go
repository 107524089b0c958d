package room

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benallfree/vibescale-sub000/internal/player"
	"github.com/benallfree/vibescale-sub000/pkg/proto"
)

// readPump pumps frames from one websocket connection into the room
// goroutine. It runs once per connection and guarantees exactly one detach
// delivery when the connection dies for any reason.
func (r *Room) readPump(client *player.Client) {
	defer func() {
		select {
		case r.detach <- client:
		case <-r.done:
			client.Close()
		}
	}()

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			slog.Debug("player connection closed", "room.name", r.Name, "player.id", client.PlayerID, "error", err)
			return
		}
		select {
		case r.inbound <- inboundFrame{client: client, data: data}:
		case <-r.done:
			return
		}
	}
}

// sendPlayer delivers one player record to one recipient. The isLocal flag
// is computed for that recipient inside the codec.
func (r *Room) sendPlayer(recipient *player.Client, st player.State) {
	data, err := proto.EncodePlayer(st, recipient.PlayerID)
	if err != nil {
		slog.Error("error marshalling player message", "room.name", r.Name, "error", err)
		return
	}
	if err := recipient.Send(data); err != nil {
		// Recipient closed under us; the frame is dropped, never retried.
		slog.Debug("dropping send to closed connection", "room.name", r.Name, "player.id", recipient.PlayerID)
	}
}

// broadcastPlayer fans a player record out to every registered connection
// except the one it came from. Each recipient gets its own copy with its own
// isLocal projection.
func (r *Room) broadcastPlayer(st player.State, exclude *player.Client) {
	broadcastCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("room.name", r.Name)))
	for _, e := range r.registry.All() {
		if e.Client == exclude {
			continue
		}
		r.sendPlayer(e.Client, st)
	}
}

// broadcastLeave notifies every remaining connection that a player left.
func (r *Room) broadcastLeave(playerID string) {
	data, err := proto.EncodeLeave(playerID)
	if err != nil {
		slog.Error("error marshalling leave message", "room.name", r.Name, "error", err)
		return
	}
	broadcastCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("room.name", r.Name)))
	for _, e := range r.registry.All() {
		if err := e.Client.Send(data); err != nil {
			slog.Debug("dropping leave send to closed connection", "room.name", r.Name, "player.id", e.Client.PlayerID)
		}
	}
}

// sendError reports a protocol problem to the one connection that caused
// it. The connection stays open.
func (r *Room) sendError(client *player.Client, message string) {
	data, err := proto.EncodeError(message)
	if err != nil {
		slog.Error("error marshalling error message", "room.name", r.Name, "error", err)
		return
	}
	if err := client.Send(data); err != nil {
		slog.Debug("dropping error send to closed connection", "room.name", r.Name, "player.id", client.PlayerID)
	}
}
