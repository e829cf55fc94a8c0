package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/vedran77/nexttask/internal/domain"
)

// Dispatcher fans persisted messages out to live peers. It is
// fire-and-forget: delivery outcomes are logged and discarded, since the
// message is already durable when dispatch runs.
type Dispatcher struct {
	registry *Registry
	log      *slog.Logger
}

func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: logger}
}

// Personal pushes msg to its receiver.
func (d *Dispatcher) Personal(ctx context.Context, msg *domain.ChatMessage, sender *domain.User) Delivery {
	data, err := json.Marshal(newPersonalMessageOut(msg, sender))
	if err != nil {
		d.log.Error("ws marshal personal message", "message_id", msg.ID, "error", err)
		return NoRecipient
	}

	// Recipients must not be evicted because the sender went away mid-push.
	delivery := d.registry.SendToSubject(context.WithoutCancel(ctx), msg.ReceiverID, data)
	d.log.Debug("ws personal dispatch",
		"message_id", msg.ID, "receiver_id", msg.ReceiverID, "delivery", delivery.String())
	return delivery
}

// Workspace pushes msg to every other peer in the workspace.
func (d *Dispatcher) Workspace(ctx context.Context, msg *domain.WorkspaceChatMessage, sender *domain.User) BroadcastResult {
	data, err := json.Marshal(newWorkspaceMessageOut(msg, sender))
	if err != nil {
		d.log.Error("ws marshal workspace message", "message_id", msg.ID, "error", err)
		return BroadcastResult{}
	}

	res := d.registry.BroadcastToWorkspace(context.WithoutCancel(ctx), msg.WorkspaceID, data, msg.SenderID)
	d.log.Debug("ws workspace dispatch",
		"message_id", msg.ID, "workspace_id", msg.WorkspaceID,
		"delivered", res.Delivered, "evicted", res.Evicted)
	return res
}
