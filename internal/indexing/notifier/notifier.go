package notifier

import (
	"context"

	"github.com/vietddude/firstbuy/internal/core/domain"
)

// Notifier delivers a first buy downstream.
type Notifier interface {
	// Name identifies the notifier in logs and metrics
	Name() string

	// Notify sends a single first buy
	Notify(ctx context.Context, buy domain.FirstBuy) error
}
