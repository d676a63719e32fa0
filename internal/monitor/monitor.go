// Package monitor writes the heartbeat CSV consumed by the external
// dashboard. The core pipeline only exposes diagnostics; rendering is someone
// else's job.
package monitor

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pairbot-go/internal/market"
	"pairbot-go/internal/strategy"
)

// Heartbeat appends one row per processed tick: timestamp, both leg prices,
// and the estimator diagnostics. Write failures are reported, never fatal;
// a broken dashboard must not stop trading.
type Heartbeat struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	leg1 market.InstrumentKey
	leg2 market.InstrumentKey
}

// NewHeartbeat opens (or creates) the CSV at path, writing the header only
// when the file is fresh so restarts keep appending.
func NewHeartbeat(path string, leg1, leg2 market.InstrumentKey) (*Heartbeat, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create heartbeat dir: %w", err)
	}
	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open heartbeat: %w", err)
	}

	h := &Heartbeat{file: file, w: csv.NewWriter(file), leg1: leg1, leg2: leg2}
	if fresh {
		if err := h.w.Write([]string{"timestamp", string(leg1), string(leg2), "z_score", "beta", "predicted_y", "error"}); err != nil {
			file.Close()
			return nil, fmt.Errorf("write heartbeat header: %w", err)
		}
		h.w.Flush()
	}
	return h, nil
}

// Log appends one diagnostics row for the tick.
func (h *Heartbeat) Log(tick market.Tick, diag strategy.Diagnostics) error {
	p1, _ := tick.Price(h.leg1)
	p2, _ := tick.Price(h.leg2)

	row := []string{
		tick.Ts().Format(time.RFC3339),
		fmt.Sprintf("%.6f", p1),
		fmt.Sprintf("%.6f", p2),
		fmt.Sprintf("%.6f", diag.Z),
		fmt.Sprintf("%.6f", diag.Beta),
		fmt.Sprintf("%.6f", diag.PredictedY),
		fmt.Sprintf("%.6f", diag.Err),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.w.Write(row); err != nil {
		return fmt.Errorf("write heartbeat row: %w", err)
	}
	h.w.Flush()
	return h.w.Error()
}

// Close flushes and closes the underlying file.
func (h *Heartbeat) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.w.Flush()
	return h.file.Close()
}
