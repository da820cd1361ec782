package strategy

import (
	"time"

	"github.com/rs/zerolog"

	"okx-trader/internal/models"
)

// Compile-time interface check.
var _ Strategy = (*SMACross)(nil)

// SMAConfig holds configuration for the SMA crossover strategy.
type SMAConfig struct {
	ShortWindow   int
	LongWindow    int
	QuotePerTrade float64 // quote currency spent per signal
	// MinCrossDiffPct filters noise crossings: the short and long averages
	// must diverge by at least this percentage before a signal fires.
	MinCrossDiffPct float64
	// Cooldown suppresses signals for an instrument after one fires.
	Cooldown time.Duration
}

// DefaultSMAConfig returns the default SMA crossover configuration.
func DefaultSMAConfig() SMAConfig {
	return SMAConfig{
		ShortWindow:   5,
		LongWindow:    20,
		QuotePerTrade: 50,
	}
}

// SMACross trades simple moving average crossovers: a golden cross buys, a
// death cross sells, both sized in quote currency.
type SMACross struct {
	cfg        SMAConfig
	logger     zerolog.Logger
	short      map[string]*window
	long       map[string]*window
	above      map[string]bool
	lastSignal map[string]time.Time
	now        func() time.Time
}

// NewSMACross creates the strategy for a set of instruments. Ticks for
// other instruments are ignored.
func NewSMACross(instIDs []string, cfg SMAConfig, logger zerolog.Logger) *SMACross {
	s := &SMACross{
		cfg:        cfg,
		logger:     logger.With().Str("strategy", "sma_cross").Logger(),
		short:      make(map[string]*window),
		long:       make(map[string]*window),
		above:      make(map[string]bool),
		lastSignal: make(map[string]time.Time),
		now:        time.Now,
	}
	for _, instID := range instIDs {
		s.short[instID] = newWindow(cfg.ShortWindow)
		s.long[instID] = newWindow(cfg.LongWindow)
	}
	return s
}

// Name returns "sma_cross".
func (s *SMACross) Name() string {
	return "sma_cross"
}

// OnStart logs startup.
func (s *SMACross) OnStart() {
	s.logger.Info().
		Int("short_window", s.cfg.ShortWindow).
		Int("long_window", s.cfg.LongWindow).
		Float64("quote_per_trade", s.cfg.QuotePerTrade).
		Msg("Strategy started")
}

// OnTick updates the moving averages and emits a market order on a cross.
func (s *SMACross) OnTick(tick models.Tick) []models.Order {
	short, ok := s.short[tick.InstID]
	if !ok {
		return nil
	}
	long := s.long[tick.InstID]

	short.push(tick.Last)
	long.push(tick.Last)
	if !short.full() || !long.full() {
		return nil
	}

	sAvg, lAvg := short.avg(), long.avg()
	wasAbove := s.above[tick.InstID]
	nowAbove := sAvg > lAvg
	s.above[tick.InstID] = nowAbove

	if wasAbove == nowAbove {
		return nil
	}
	if s.cfg.MinCrossDiffPct > 0 && lAvg > 0 {
		diffPct := (sAvg - lAvg) / lAvg * 100
		if diffPct < 0 {
			diffPct = -diffPct
		}
		if diffPct < s.cfg.MinCrossDiffPct {
			return nil
		}
	}
	if s.cfg.Cooldown > 0 {
		if last, ok := s.lastSignal[tick.InstID]; ok && s.now().Sub(last) < s.cfg.Cooldown {
			return nil
		}
	}
	s.lastSignal[tick.InstID] = s.now()

	side := models.SideSell
	event := "death cross"
	if nowAbove {
		side = models.SideBuy
		event = "golden cross"
	}
	s.logger.Info().
		Str("inst_id", tick.InstID).
		Float64("price", tick.Last).
		Float64("sma_short", sAvg).
		Float64("sma_long", lAvg).
		Str("signal", event).
		Msg("Crossover detected")

	return []models.Order{{
		InstID:        tick.InstID,
		Side:          side,
		Type:          models.OrderTypeMarket,
		QuoteQuantity: s.cfg.QuotePerTrade,
	}}
}

// OnEnd returns no liquidating orders; positions are left as they stand.
func (s *SMACross) OnEnd() []models.Order {
	s.logger.Info().Msg("Strategy ended")
	return nil
}

// window is a fixed-size rolling window with a running sum.
type window struct {
	size   int
	values []float64
	next   int
	count  int
	sum    float64
}

func newWindow(size int) *window {
	return &window{size: size, values: make([]float64, size)}
}

func (w *window) push(v float64) {
	if w.count == w.size {
		w.sum -= w.values[w.next]
	} else {
		w.count++
	}
	w.values[w.next] = v
	w.sum += v
	w.next = (w.next + 1) % w.size
}

func (w *window) full() bool {
	return w.count == w.size
}

func (w *window) avg() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}
