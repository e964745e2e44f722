package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// MsgUnhandled is sent when no flow claims an event.
const MsgUnhandled = "その操作は現在のステップでは使えません。"

// FlowEngine processes inbound events for one conversation flow, returning
// whether the event was consumed.
type FlowEngine interface {
	ProcessEvent(ctx context.Context, ev models.Event) (bool, error)
}

// Router dispatches each inbound event to the first flow that claims it.
// Precedence is fixed: memo, then review, then life5. An active memo claims
// every event for its user until it finishes, so the other flows only see
// events when no memo is in progress.
type Router struct {
	engines   []FlowEngine
	messenger Messenger
}

// NewRouter wires the three flow engines in dispatch order.
func NewRouter(memo *MemoFlow, review *ReviewFlow, life5 *Life5Flow, messenger Messenger) *Router {
	return &Router{
		engines:   []FlowEngine{memo, review, life5},
		messenger: messenger,
	}
}

// Route offers the event to each flow in precedence order. If none claims
// it, the user gets a generic steering reply.
func (r *Router) Route(ctx context.Context, ev models.Event) error {
	ev.Text = strings.TrimSpace(ev.Text)

	for _, engine := range r.engines {
		handled, err := engine.ProcessEvent(ctx, ev)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	slog.Debug("Router no flow claimed event", "userID", ev.UserID, "kind", ev.Kind)
	return r.messenger.Reply(ctx, ev.ReplyToken, MsgUnhandled, nil)
}
