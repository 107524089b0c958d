package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/benallfree/vibescale-sub000/internal/player"
	"github.com/benallfree/vibescale-sub000/internal/validator"
	"github.com/benallfree/vibescale-sub000/pkg/proto"
)

// handleFrame processes one inbound client frame. Nothing may escape this
// entry point: any unexpected fault degrades to an error reply to the one
// responsible connection while the rest of the room keeps being served.
func (r *Room) handleFrame(frame inboundFrame) {
	ctx, span := tracer.Start(context.Background(), "room.handleFrame", trace.WithAttributes(
		attribute.String("room.name", r.Name),
		attribute.String("player.id", frame.client.PlayerID),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "panic handling message", "room.name", r.Name, "player.id", frame.client.PlayerID, "panic", rec)
			span.SetStatus(codes.Error, "panic handling message")
			r.sendError(frame.client, "internal error")
		}
	}()

	current, ok := r.registry.Get(frame.client)
	if !ok {
		// The connection raced a close; drop silently.
		slog.DebugContext(ctx, "ignoring message from unregistered connection", "room.name", r.Name, "player.id", frame.client.PlayerID)
		return
	}

	var env proto.Envelope
	if err := json.Unmarshal(frame.data, &env); err != nil {
		slog.WarnContext(ctx, "malformed message from player", "player.id", frame.client.PlayerID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Malformed message")
		r.sendError(frame.client, "malformed message")
		return
	}
	if err := validator.GetValidator().Struct(env); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", frame.client.PlayerID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.sendError(frame.client, "missing message type")
		return
	}
	span.SetAttributes(attribute.String("message.type", env.Type))

	msg, err := proto.DecodeClient(frame.data)
	if err != nil {
		var unknown *proto.UnknownTypeError
		if errors.As(err, &unknown) {
			slog.WarnContext(ctx, "unknown message type from player", "player.id", frame.client.PlayerID, "message.type", unknown.TypeTag)
			span.SetStatus(codes.Error, "Unknown message type")
			r.sendError(frame.client, unknown.Error())
			return
		}
		slog.WarnContext(ctx, "undecodable message from player", "player.id", frame.client.PlayerID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Undecodable message")
		r.sendError(frame.client, "malformed message")
		return
	}

	r.handleStateUpdate(ctx, frame.client, current, msg.StateUpdate)
}

// handleStateUpdate merges a partial update onto the current record, always
// keeps the merged result in the registry (so sub-threshold drift is not
// lost), and broadcasts only when the detector judges the change
// significant.
func (r *Room) handleStateUpdate(ctx context.Context, client *player.Client, current player.State, update player.StateUpdate) {
	ctx, span := tracer.Start(ctx, "room.handleStateUpdate", trace.WithAttributes(
		attribute.String("room.name", r.Name),
		attribute.String("player.id", client.PlayerID),
	))
	defer span.End()

	candidate := player.Merge(current, update)
	r.registry.Update(client, candidate)

	if !r.detector.IsSignificant(candidate) {
		span.SetAttributes(attribute.Bool("update.significant", false))
		return
	}
	span.SetAttributes(attribute.Bool("update.significant", true))

	r.broadcastPlayer(candidate, client)

	r.persistAsync(func(ctx context.Context) {
		if err := r.players.SavePlayer(ctx, candidate); err != nil {
			slog.WarnContext(ctx, "failed to persist player state", "player.id", candidate.ID, "error", err)
		}
	})
}
