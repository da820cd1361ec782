package feed

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"okx-trader/internal/models"
	"okx-trader/internal/okx"
	"okx-trader/pkg/utils"
)

// Compile-time interface check.
var _ Feed = (*RESTTickerFeed)(nil)

// tickerAPI is the slice of the OKX client the polling feed needs.
type tickerAPI interface {
	GetTicker(ctx context.Context, instID string) (*okx.TickerData, error)
}

// RESTTickerFeed polls the OKX ticker endpoint at a fixed interval. Suited
// to paper trading and demos; use the WebSocket feed for live streaming.
type RESTTickerFeed struct {
	api      tickerAPI
	instIDs  []string
	interval time.Duration
	logger   zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewRESTTickerFeed creates a polling feed over the given instruments.
func NewRESTTickerFeed(api tickerAPI, instIDs []string, interval time.Duration, logger zerolog.Logger) *RESTTickerFeed {
	if interval == 0 {
		interval = time.Second
	}
	return &RESTTickerFeed{
		api:      api,
		instIDs:  instIDs,
		interval: interval,
		logger:   logger.With().Str("component", "rest_feed").Logger(),
		done:     make(chan struct{}),
	}
}

// Stream polls each instrument in turn every interval. Fetch failures are
// logged and skipped; the feed keeps running until closed.
func (f *RESTTickerFeed) Stream() (<-chan models.Tick, error) {
	ticks := make(chan models.Tick)
	go func() {
		defer close(ticks)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-f.done
			cancel()
		}()

		for {
			for _, instID := range f.instIDs {
				tick, err := f.fetch(ctx, instID)
				if err != nil {
					f.logger.Warn().Err(err).Str("inst_id", instID).Msg("Ticker fetch failed")
					continue
				}
				select {
				case ticks <- *tick:
				case <-f.done:
					return
				}
			}
			select {
			case <-time.After(f.interval):
			case <-f.done:
				return
			}
		}
	}()
	return ticks, nil
}

func (f *RESTTickerFeed) fetch(ctx context.Context, instID string) (*models.Tick, error) {
	retryCfg := utils.RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
	data, err := utils.RetryWithResult(ctx, retryCfg, func() (*okx.TickerData, error) {
		return f.api.GetTicker(ctx, instID)
	})
	if err != nil {
		return nil, err
	}
	return tickFromData(data), nil
}

func tickFromData(d *okx.TickerData) *models.Tick {
	last, _ := strconv.ParseFloat(d.Last, 64)
	bid, _ := strconv.ParseFloat(d.BidPx, 64)
	ask, _ := strconv.ParseFloat(d.AskPx, 64)
	ts, _ := strconv.ParseInt(d.TS, 10, 64)
	return &models.Tick{
		InstID: d.InstID,
		TS:     ts,
		Last:   last,
		Bid:    bid,
		Ask:    ask,
	}
}

// Close stops polling and closes the tick channel.
func (f *RESTTickerFeed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}
