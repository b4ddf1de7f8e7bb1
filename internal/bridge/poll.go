package bridge

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/protocol"
)

// Beat time poll bounds. Polling runs at twice the sixteenth-note rate for a
// smooth position display, clamped so extreme tempos stay reasonable.
const (
	minPollInterval = 50 * time.Millisecond
	maxPollInterval = 200 * time.Millisecond
)

// PollInterval derives the beat time polling interval from the tempo.
func PollInterval(tempo float64) time.Duration {
	if tempo <= 0 {
		tempo = protocol.DefaultTempo
	}
	msPerSixteenth := 60000.0 / tempo / 4.0
	ms := math.Round(msPerSixteenth / 2)
	d := time.Duration(ms) * time.Millisecond
	if d < minPollInterval {
		return minPollInterval
	}
	if d > maxPollInterval {
		return maxPollInterval
	}
	return d
}

// BeatPoller periodically requests the song position while playback runs.
// The responses arrive as ordinary pushes and flow through the store like any
// listener update.
type BeatPoller struct {
	osc   Querier
	tempo func() float64
	log   *logrus.Entry

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewBeatPoller creates a poller; tempo supplies the current tempo for
// interval calculation.
func NewBeatPoller(osc Querier, tempo func() float64) *BeatPoller {
	return &BeatPoller{
		osc:   osc,
		tempo: tempo,
		log:   logging.Component("poll"),
	}
}

// Start begins polling. No-op if already running.
func (p *BeatPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	interval := PollInterval(p.tempo())
	p.log.Debugf("beat time polling started (%v at %.1f bpm)", interval, p.tempo())
	go p.loop(ctx, interval)
}

// Stop halts polling. No-op if not running.
func (p *BeatPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.log.Debug("beat time polling stopped")
}

// Running reports whether the poller is active.
func (p *BeatPoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Restart re-derives the interval from the current tempo. Used when the tempo
// changes mid-playback; no-op while stopped.
func (p *BeatPoller) Restart(ctx context.Context) {
	p.mu.Lock()
	running := p.cancel != nil
	p.mu.Unlock()
	if !running {
		return
	}
	p.Stop()
	p.Start(ctx)
}

func (p *BeatPoller) loop(ctx context.Context, interval time.Duration) {
	poll := func() {
		if err := p.osc.Send(protocol.SongGet(protocol.AddrSongGetBeatTime)); err != nil {
			p.log.WithError(err).Debug("beat time poll")
		}
	}
	poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
