package feed

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"okx-trader/internal/models"
	"okx-trader/pkg/utils"
)

// Compile-time interface check.
var _ Feed = (*WSTickerFeed)(nil)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsMaxReconnectWait = 30 * time.Second
)

// WSTickerFeed streams tickers from the OKX public WebSocket. Network I/O
// runs on an internal worker that only enqueues ticks; the bounded queue is
// the sole concurrency boundary with the consumer and preserves arrival
// order. Reconnection and heartbeat handling stay inside the feed.
type WSTickerFeed struct {
	url       string
	simHeader string
	instIDs   []string
	logger    zerolog.Logger

	ticks     chan models.Tick
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
}

// WSTickerFeedConfig holds configuration for the streaming feed.
type WSTickerFeedConfig struct {
	URL             string
	SimulatedHeader string // value of x-simulated-trading
	InstIDs         []string
	QueueSize       int
}

// NewWSTickerFeed creates a streaming feed over the given instruments.
func NewWSTickerFeed(cfg WSTickerFeedConfig, logger zerolog.Logger) *WSTickerFeed {
	queueSize := cfg.QueueSize
	if queueSize == 0 {
		queueSize = 256
	}
	return &WSTickerFeed{
		url:       cfg.URL,
		simHeader: cfg.SimulatedHeader,
		instIDs:   cfg.InstIDs,
		logger:    logger.With().Str("component", "ws_feed").Logger(),
		ticks:     make(chan models.Tick, queueSize),
		done:      make(chan struct{}),
	}
}

// wsMessage covers the subset of OKX WebSocket frames the feed handles.
type wsMessage struct {
	Event string `json:"event"`
	Op    string `json:"op"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
		BidPx  string `json:"bidPx"`
		AskPx  string `json:"askPx"`
		TS     string `json:"ts"`
	} `json:"data"`
}

// Stream connects and returns the tick channel. The worker reconnects with
// backoff on connection loss until the feed is closed.
func (f *WSTickerFeed) Stream() (<-chan models.Tick, error) {
	go f.run()
	return f.ticks, nil
}

func (f *WSTickerFeed) run() {
	defer close(f.ticks)

	for attempt := 0; ; attempt++ {
		select {
		case <-f.done:
			return
		default:
		}

		connected, err := f.connectAndRead()
		if connected {
			attempt = 0
		}
		if err != nil {
			f.logger.Warn().Err(err).Int("attempt", attempt).Msg("Connection lost, reconnecting")
		}

		backoff := utils.CalculateBackoff(attempt, time.Second, wsMaxReconnectWait, 2.0)
		select {
		case <-f.done:
			return
		case <-time.After(backoff):
		}
	}
}

// connectAndRead dials, subscribes, and reads frames until the connection
// drops or the feed is closed. The bool reports whether the subscription
// was established, which resets the reconnect backoff.
func (f *WSTickerFeed) connectAndRead() (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	header := http.Header{}
	if f.simHeader != "" {
		header.Set("x-simulated-trading", f.simHeader)
	}

	conn, _, err := dialer.Dial(f.url, header)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	defer conn.Close()

	if err := f.subscribe(conn); err != nil {
		return false, err
	}
	f.logger.Info().Strs("inst_ids", f.instIDs).Msg("Subscribed to tickers")

	stopPing := make(chan struct{})
	defer close(stopPing)
	go f.heartbeat(conn, stopPing)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
				return true, nil
			default:
				return true, err
			}
		}
		f.handleMessage(raw)
	}
}

func (f *WSTickerFeed) subscribe(conn *websocket.Conn) error {
	type subArg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}
	args := make([]subArg, 0, len(f.instIDs))
	for _, instID := range f.instIDs {
		args = append(args, subArg{Channel: "tickers", InstID: instID})
	}
	return conn.WriteJSON(map[string]any{"op": "subscribe", "args": args})
}

func (f *WSTickerFeed) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-f.done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func (f *WSTickerFeed) handleMessage(raw []byte) {
	if string(raw) == "pong" {
		return
	}

	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Error().Err(err).Msg("Invalid WebSocket message")
		return
	}

	switch {
	case msg.Event == "subscribe":
		f.logger.Debug().Str("inst_id", msg.Arg.InstID).Msg("Subscription confirmed")
		return
	case msg.Event == "error":
		f.logger.Warn().Str("msg", msg.Msg).Msg("WebSocket error event")
		return
	case msg.Op == "pong":
		return
	case msg.Arg.Channel != "tickers":
		return
	}

	for _, d := range msg.Data {
		last, _ := strconv.ParseFloat(d.Last, 64)
		bid, _ := strconv.ParseFloat(d.BidPx, 64)
		ask, _ := strconv.ParseFloat(d.AskPx, 64)
		ts, _ := strconv.ParseInt(d.TS, 10, 64)

		tick := models.Tick{InstID: d.InstID, TS: ts, Last: last, Bid: bid, Ask: ask}
		select {
		case f.ticks <- tick:
		case <-f.done:
			return
		}
	}
}

// Close stops the worker and closes the connection, unblocking any
// in-progress read. Safe to call repeatedly and after errors.
func (f *WSTickerFeed) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
		f.mu.Lock()
		if f.conn != nil {
			f.conn.Close()
		}
		f.mu.Unlock()
	})
	return nil
}
