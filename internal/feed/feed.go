// Package feed provides market data feeds producing price ticks.
package feed

import "okx-trader/internal/models"

// Feed produces an in-order sequence of ticks. Live feeds are effectively
// infinite; replay feeds close the channel when exhausted. A feed is not
// restartable: Stream may be called at most once.
type Feed interface {
	// Stream starts the feed and returns the tick channel. The channel is
	// closed when the feed is exhausted or closed.
	Stream() (<-chan models.Tick, error)

	// Close releases resources and unblocks any in-progress stream read.
	// It is idempotent and safe to call after errors.
	Close() error
}
