package bridge

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/protocol"
)

// HealthMonitor probes the remote script and reports connectivity flips.
// A probe counts as answered only within the reply window; one missed reply
// marks the link down until a later probe succeeds.
type HealthMonitor struct {
	osc      Querier
	interval time.Duration
	window   time.Duration
	onChange func(up bool)
	log      *logrus.Entry
}

// NewHealthMonitor creates a monitor. onChange fires on every connectivity
// transition, never for repeats.
func NewHealthMonitor(osc Querier, interval, window time.Duration, onChange func(up bool)) *HealthMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if window <= 0 {
		window = 2 * time.Second
	}
	return &HealthMonitor{
		osc:      osc,
		interval: interval,
		window:   window,
		onChange: onChange,
		log:      logging.Component("health"),
	}
}

// Run probes until ctx is cancelled. The first probe fires immediately.
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	up := false
	known := false
	probe := func() {
		ok := h.Probe(ctx)
		if known && ok == up {
			return
		}
		up, known = ok, true
		if ok {
			h.log.Info("ableton link up")
		} else {
			h.log.Warn("ableton link down")
		}
		h.onChange(ok)
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// Probe sends one test message and waits for the reply window.
func (h *HealthMonitor) Probe(ctx context.Context) bool {
	wctx, cancel := context.WithTimeout(ctx, h.window)
	defer cancel()
	return h.osc.Query(wctx, protocol.Test()) != nil
}
