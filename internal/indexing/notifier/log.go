package notifier

import (
	"context"
	"log/slog"

	"github.com/vietddude/firstbuy/internal/core/domain"
)

// LogNotifier writes first buys to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier logging through l, or slog.Default when nil.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Notify(ctx context.Context, buy domain.FirstBuy) error {
	n.log.InfoContext(ctx, "first buy",
		"subject", buy.Call.Subject,
		"tx", buy.Transaction.Hash,
		"block", buy.Transaction.BlockNumber,
	)
	return nil
}
