package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// Ensure LogNotifier implements model.Deliverer.
var _ model.Deliverer = (*LogNotifier)(nil)

// LogNotifier writes outgoing messages to the given logger instead of a chat.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a deliverer that logs each message via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Deliver logs the message. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Deliver(_ context.Context, msg model.Message) error {
	n.logger.Info("message", "id", msg.RecordID, "text", msg.Text)
	return nil
}
