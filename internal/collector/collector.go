// Package collector polls Redis nodes and proxies and turns their replies
// into canonical status records.
//
// Each collection is split in two phases. The fetch phase connects and
// issues every query; it is the unit retried on connection faults. The build
// phase parses and validates the replies outside the retry loop, so a
// malformed reply fails the cycle at once instead of being retried.
package collector

import (
	"context"
	"time"

	"github.com/soltixdb/rediswatch/internal/conn"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
)

// CapacityChecker is consulted after each successful node collection
type CapacityChecker interface {
	Check(ctx context.Context, addr string, status *models.NodeStatus) (bool, error)
}

// retryNotifier logs every failed attempt that will be retried
func retryNotifier(ctx context.Context, logger *logging.Logger) conn.NotifyFunc {
	return func(attempt int, err error, next time.Duration) {
		logger.WithContext(ctx).Warn("Collection attempt failed, retrying",
			"attempt", attempt,
			"error", err,
			"retry_in", next.String())
	}
}
