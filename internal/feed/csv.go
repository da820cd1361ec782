package feed

import (
	"fmt"
	"os"
	"sync"

	"github.com/gocarina/gocsv"

	"okx-trader/internal/models"
)

// Compile-time interface check.
var _ Feed = (*CSVTickFeed)(nil)

// csvTickRow is one replay file row. Bid and ask columns are optional.
type csvTickRow struct {
	TS   int64   `csv:"ts"`
	Last float64 `csv:"last"`
	Bid  float64 `csv:"bid"`
	Ask  float64 `csv:"ask"`
}

// CSVTickFeed replays ticks for a single instrument from a CSV file with
// columns ts,last[,bid,ask]. The sequence is finite and emitted in file
// order.
type CSVTickFeed struct {
	path   string
	instID string

	done      chan struct{}
	closeOnce sync.Once
}

// NewCSVTickFeed creates a replay feed from a CSV file.
func NewCSVTickFeed(path, instID string) *CSVTickFeed {
	return &CSVTickFeed{
		path:   path,
		instID: instID,
		done:   make(chan struct{}),
	}
}

// Stream reads the whole file and emits its rows in order.
func (f *CSVTickFeed) Stream() (<-chan models.Tick, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}

	var rows []csvTickRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to parse replay file: %w", err)
	}
	file.Close()

	ticks := make(chan models.Tick)
	go func() {
		defer close(ticks)
		for _, row := range rows {
			tick := models.Tick{
				InstID: f.instID,
				TS:     row.TS,
				Last:   row.Last,
				Bid:    row.Bid,
				Ask:    row.Ask,
			}
			select {
			case ticks <- tick:
			case <-f.done:
				return
			}
		}
	}()
	return ticks, nil
}

// Close stops the replay. Safe to call repeatedly.
func (f *CSVTickFeed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}
