package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes emails to the log instead of sending them.
// Used for local runs where no sender is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a new LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendErrorEmail logs the error email.
func (n *LogNotifier) SendErrorEmail(ctx context.Context, subject string, body string) error {
	n.logger.WarnContext(ctx, "error email", "subject", subject, "body", body)
	return nil
}

// SendDigestEmail logs the validation digest.
func (n *LogNotifier) SendDigestEmail(ctx context.Context, csv string, count int) error {
	n.logger.WarnContext(ctx, "validation digest", "count", count, "csv", csv)
	return nil
}

// SendTemplated logs the templated email.
func (n *LogNotifier) SendTemplated(ctx context.Context, to []string, template string, data map[string]string) error {
	n.logger.InfoContext(ctx, "templated email", "template", template, "recipients", to, "data", data)
	return nil
}
