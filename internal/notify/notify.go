// Package notify delivers operator-facing notices to the admin chat. A noop
// implementation keeps callers unconditional when no transport is wired.
package notify

import (
	"context"
	"log/slog"

	"qzsync/internal/logging"
	"qzsync/internal/telegram"
)

// Notifier publishes short human-readable notices.
type Notifier interface {
	Notice(ctx context.Context, text string) error
}

// New returns an admin-chat notifier, or a noop one when transport is nil.
func New(transport telegram.Transport, admin int64, logger *slog.Logger) Notifier {
	if transport == nil {
		return noop{}
	}
	return &chatNotifier{
		transport: transport,
		admin:     admin,
		logger:    logging.NewComponentLogger(logger, "notify"),
	}
}

type chatNotifier struct {
	transport telegram.Transport
	admin     int64
	logger    *slog.Logger
}

func (n *chatNotifier) Notice(ctx context.Context, text string) error {
	_, err := n.transport.SendMessage(ctx, n.admin, text, telegram.SendOptions{})
	if err != nil {
		n.logger.Warn("notice delivery failed", logging.Error(err))
	}
	return err
}

type noop struct{}

func (noop) Notice(context.Context, string) error { return nil }
