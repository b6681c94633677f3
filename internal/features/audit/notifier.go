// Package audit posts operator-facing activity lines to a configured
// log channel.
package audit

import (
	"context"
	"fmt"

	"forum-xp-backend/internal/common/logger"
	"forum-xp-backend/internal/platform/chat"
)

// Notifier is a best-effort fan-out: delivery failures are logged and
// swallowed, they never affect the operation being audited.
type Notifier struct {
	adapter   chat.Adapter
	channelID string
}

// New returns a Notifier. An empty channelID disables it.
func New(adapter chat.Adapter, channelID string) *Notifier {
	return &Notifier{adapter: adapter, channelID: channelID}
}

func (n *Notifier) Send(ctx context.Context, text string) {
	if n == nil || n.channelID == "" {
		return
	}
	if err := n.adapter.SendMessage(ctx, n.channelID, text); err != nil {
		logger.Error().Err(err).Str("channel_id", n.channelID).Msg("Failed to post audit message")
	}
}

func (n *Notifier) Sendf(ctx context.Context, format string, args ...interface{}) {
	n.Send(ctx, fmt.Sprintf(format, args...))
}
