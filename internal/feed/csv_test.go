package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeReplayFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVTickFeedReplaysInOrder(t *testing.T) {
	path := writeReplayFile(t, "ts,last,bid,ask\n1,100.5,100.4,100.6\n2,101,100.9,101.1\n3,99.5,99.4,99.6\n")

	f := NewCSVTickFeed(path, "BTC-USDT")
	ticks, err := f.Stream()
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer f.Close()

	wantLast := []float64{100.5, 101, 99.5}
	i := 0
	for tick := range ticks {
		if tick.InstID != "BTC-USDT" {
			t.Errorf("inst_id = %q", tick.InstID)
		}
		if tick.TS != int64(i+1) {
			t.Errorf("ts[%d] = %d, want %d", i, tick.TS, i+1)
		}
		if tick.Last != wantLast[i] {
			t.Errorf("last[%d] = %v, want %v", i, tick.Last, wantLast[i])
		}
		i++
	}
	if i != 3 {
		t.Errorf("got %d ticks, want 3", i)
	}
}

func TestCSVTickFeedWithoutBidAskColumns(t *testing.T) {
	path := writeReplayFile(t, "ts,last\n10,42.5\n")

	f := NewCSVTickFeed(path, "DOGE-USDT")
	ticks, err := f.Stream()
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer f.Close()

	tick, ok := <-ticks
	if !ok {
		t.Fatal("expected one tick")
	}
	if tick.Last != 42.5 || tick.Bid != 0 || tick.Ask != 0 {
		t.Errorf("unexpected tick: %+v", tick)
	}
}

func TestCSVTickFeedCloseUnblocksStream(t *testing.T) {
	path := writeReplayFile(t, "ts,last\n1,1\n2,2\n3,3\n4,4\n")

	f := NewCSVTickFeed(path, "BTC-USDT")
	ticks, err := f.Stream()
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	<-ticks
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Close is idempotent.
	if err := f.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	// Drain; channel must terminate rather than block.
	for range ticks {
	}
}

func TestCSVTickFeedMissingFile(t *testing.T) {
	f := NewCSVTickFeed(filepath.Join(t.TempDir(), "absent.csv"), "BTC-USDT")
	if _, err := f.Stream(); err == nil {
		t.Fatal("expected error for missing replay file")
	}
}
