// Package bridge coordinates the two sides of the system: JSON commands from
// touch clients flowing down to the remote script, and OSC responses and
// pushes flowing back up as state patches.
package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/livebridge/livebridge/internal/config"
	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/protocol"
	"github.com/livebridge/livebridge/internal/session"
)

// Transport is the correlating OSC link. Satisfied by osc.Client.
type Transport interface {
	Querier
	Resolve(protocol.OSCMessage) bool
}

// Broadcaster fans a server message out to every connected client.
type Broadcaster interface {
	Broadcast(protocol.ServerMessage)
}

// How long to wait between destination checks when confirming a clip move,
// and how many checks to make before giving up.
const (
	moveCheckDelay   = 100 * time.Millisecond
	moveCheckRetries = 5
)

// How often the structure is re-read while synced; track and scene
// creation has no push, so it is polled.
const structureCheckInterval = 10 * time.Second

// Bridge owns the session store, the sync engine, and the auxiliary loops,
// and routes every message between clients and the remote script.
type Bridge struct {
	cfg    config.Config
	store  *session.Store
	osc    Transport
	engine *Engine
	poller *BeatPoller
	health *HealthMonitor
	hub    Broadcaster
	log    *logrus.Entry

	ctx context.Context

	mu        sync.Mutex
	connected bool
	synced    bool
	syncing   bool
}

// New wires a bridge together. Attach a broadcaster before calling Run.
func New(cfg config.Config, store *session.Store, osc Transport) *Bridge {
	b := &Bridge{
		cfg:   cfg,
		store: store,
		osc:   osc,
		log:   logging.Component("bridge"),
		ctx:   context.Background(),
	}
	b.engine = NewEngine(store, osc, cfg.SyncBatchSize, b.broadcastPhase)
	b.poller = NewBeatPoller(osc, store.Tempo)
	b.health = NewHealthMonitor(osc, cfg.HealthInterval, cfg.HealthTimeout, b.onHealthChange)
	return b
}

// AttachHub sets the client broadcaster.
func (b *Bridge) AttachHub(hub Broadcaster) {
	b.hub = hub
}

// Run drives the background loops until ctx is cancelled: liveness probing
// and periodic structure reconciliation.
func (b *Bridge) Run(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
	go b.health.Run(ctx)

	ticker := time.NewTicker(structureCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.poller.Stop()
			b.engine.StopListeners()
			return
		case <-ticker.C:
			b.checkStructure(ctx)
		}
	}
}

// checkStructure reconciles the store against the remote entity counts and
// tells clients when the matrix changed shape. The embedded client reacts to
// a structure patch by re-requesting the session.
func (b *Bridge) checkStructure(ctx context.Context) {
	if !b.Synced() {
		return
	}
	if !b.engine.CheckStructureChanges(ctx) {
		return
	}
	nt, ns := b.engine.Structure()
	b.broadcast(protocol.PatchMessage(&protocol.Patch{
		Kind:      protocol.PatchStructure,
		NumTracks: protocol.Ptr(nt),
		NumScenes: protocol.Ptr(ns),
	}))
}

// context returns the context Run published; background before Run starts.
func (b *Bridge) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// Connected reports remote script liveness.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Synced reports whether the store mirrors the remote session.
func (b *Bridge) Synced() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.synced
}

// OnClientConnect sends the greeting to a new client: connectivity, then the
// session tree if one is already mirrored.
func (b *Bridge) OnClientConnect(send func(protocol.ServerMessage)) {
	send(protocol.ConnectedMessage(b.Connected()))
	if b.Synced() {
		send(protocol.SessionMessage(b.store.Snapshot()))
	}
}

// HandleClientMessage routes one decoded client command. send replies to the
// issuing client only; broadcasts go through the hub.
func (b *Bridge) HandleClientMessage(m protocol.ClientMessage, send func(protocol.ServerMessage)) {
	switch m.Type {
	case protocol.ClientSessionRequest:
		b.handleSessionRequest(send)
	case protocol.ClientSessionResync:
		go b.Resync()
	case protocol.ClientClipMove:
		go b.moveClip(m.SrcTrack, m.SrcScene, m.DstTrack, m.DstScene)
	case protocol.ClientRawOSC:
		if !strings.HasPrefix(m.Address, "/live/") {
			send(protocol.ErrorMessage("osc address must start with /live/"))
			return
		}
		b.send(protocol.OSCMessage{Address: m.Address, Args: m.Args})
	default:
		osc, ok := ToOSC(m)
		if !ok {
			b.log.Warnf("unknown client message type %q", m.Type)
			send(protocol.ErrorMessage("unknown message type: " + m.Type))
			return
		}
		b.send(osc)
	}
}

func (b *Bridge) handleSessionRequest(send func(protocol.ServerMessage)) {
	if b.Synced() {
		send(protocol.SessionMessage(b.store.Snapshot()))
		return
	}
	go b.ensureSynced()
}

// ensureSynced runs the initial sync once; concurrent requests coalesce onto
// the sync already in flight.
func (b *Bridge) ensureSynced() {
	b.mu.Lock()
	if b.synced || b.syncing {
		b.mu.Unlock()
		return
	}
	b.syncing = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.syncing = false
		b.mu.Unlock()
	}()

	if err := b.engine.InitialSync(b.context()); err != nil {
		b.log.WithError(err).Error("initial sync failed")
		b.broadcast(protocol.ErrorMessage("sync failed: " + err.Error()))
		return
	}
	b.engine.SetupListeners()

	b.mu.Lock()
	b.synced = true
	b.mu.Unlock()

	b.broadcastPhase(PhaseReady, -1)
	b.broadcast(protocol.SessionMessage(b.store.Snapshot()))
}

// Resync tears the mirror down and rebuilds it from scratch. Used when the
// remote script restarts and on explicit client request.
func (b *Bridge) Resync() {
	b.log.Info("full resync")
	b.engine.StopListeners()
	b.poller.Stop()
	b.store.Reset()

	b.mu.Lock()
	b.synced = false
	b.mu.Unlock()

	b.broadcast(protocol.ServerMessage{Type: protocol.ServerSessionReset})
	b.ensureSynced()
}

// moveClip duplicates the source into the destination and deletes the source
// only after the destination confirms the clip landed. An unconfirmed copy
// leaves the source in place.
func (b *Bridge) moveClip(srcTrack, srcScene, dstTrack, dstScene int) {
	b.log.Infof("moving clip %d:%d -> %d:%d", srcTrack, srcScene, dstTrack, dstScene)
	b.send(protocol.OSCMessage{
		Address: protocol.AddrClipSlotDuplicateClipTo,
		Args:    []any{srcTrack, srcScene, dstTrack, dstScene},
	})

	ctx := b.context()
	for i := 0; i < moveCheckRetries; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(moveCheckDelay):
		}
		got := b.osc.Query(ctx, protocol.SlotGet(protocol.AddrClipSlotGetHasClip, dstTrack, dstScene))
		if len(got) > 0 && asBool(got[0]) {
			b.send(protocol.OSCMessage{
				Address: protocol.AddrClipSlotDeleteClip,
				Args:    []any{srcTrack, srcScene},
			})
			return
		}
	}
	b.log.Warnf("clip move %d:%d -> %d:%d unconfirmed, keeping source", srcTrack, srcScene, dstTrack, dstScene)
}

// HandleOSC routes one inbound message: application events first, then
// pending queries, then listener pushes.
func (b *Bridge) HandleOSC(m protocol.OSCMessage) {
	switch m.Address {
	case protocol.AddrStartup:
		b.log.Info("remote script restarted")
		go b.Resync()
		return
	case protocol.AddrError:
		b.log.Warnf("remote error: %v", m.Args)
		return
	}

	if b.osc.Resolve(m) {
		return
	}
	if patch := b.applyPush(m); patch != nil {
		b.broadcast(protocol.PatchMessage(patch))
	}
}

// applyPush folds a listener push into the store and returns the resulting
// patch, or nil when the address carries no state or the indices are stale.
func (b *Bridge) applyPush(m protocol.OSCMessage) *protocol.Patch {
	args := m.Args
	switch m.Address {
	case protocol.AddrSongGetTempo:
		if len(args) < 1 {
			return nil
		}
		patch := b.store.SetTempo(asFloat(args[0], protocol.DefaultTempo))
		b.poller.Restart(b.context())
		return patch
	case protocol.AddrSongGetIsPlaying:
		if len(args) < 1 {
			return nil
		}
		playing := asBool(args[0])
		if playing {
			b.poller.Start(b.context())
		} else {
			b.poller.Stop()
		}
		return b.store.SetIsPlaying(playing)
	case protocol.AddrSongGetBeatTime:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetBeatTime(asFloat(args[0], 0))
	case protocol.AddrSongGetMetronome:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetMetronome(asBool(args[0]))
	case protocol.AddrSongGetPunchIn:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetPunchIn(asBool(args[0]))
	case protocol.AddrSongGetPunchOut:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetPunchOut(asBool(args[0]))
	case protocol.AddrSongGetLoop:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetLoop(asBool(args[0]))
	case protocol.AddrSongGetQuantization:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetQuantization(asInt(args[0], protocol.DefaultQuantization))
	case protocol.AddrSongGetSessionRecord:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetIsRecording(asBool(args[0]))

	case protocol.AddrViewGetSelectedTrack:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetSelectedTrack(asInt(args[0], 0))
	case protocol.AddrViewGetSelectedScene:
		if len(args) < 1 {
			return nil
		}
		return b.store.SetSelectedScene(asInt(args[0], 0))

	case protocol.AddrTrackGetVolume:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackVolume(asInt(args[0], -1), asFloat(args[1], 0))
	case protocol.AddrTrackGetPanning:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackPan(asInt(args[0], -1), asFloat(args[1], 0))
	case protocol.AddrTrackGetMute:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackMute(asInt(args[0], -1), asBool(args[1]))
	case protocol.AddrTrackGetSolo:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackSolo(asInt(args[0], -1), asBool(args[1]))
	case protocol.AddrTrackGetArm:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackArm(asInt(args[0], -1), asBool(args[1]))
	case protocol.AddrTrackGetName:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackName(asInt(args[0], -1), asString(args[1], ""))
	case protocol.AddrTrackGetPlayingSlotIndex:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackPlayingSlot(asInt(args[0], -1), asInt(args[1], -1))
	case protocol.AddrTrackGetFiredSlotIndex:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetTrackFiredSlot(asInt(args[0], -1), asInt(args[1], -1))

	case protocol.AddrSceneGetName:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetSceneName(asInt(args[0], -1), asString(args[1], ""))
	case protocol.AddrSceneGetColor:
		if len(args) < 2 {
			return nil
		}
		return b.store.SetSceneColor(asInt(args[0], -1), asInt(args[1], 0))

	case protocol.AddrClipGetPlayingStatus:
		return b.applyPlayingStatus(args)

	case protocol.AddrClipSlotGetHasClip:
		return b.applyHasClip(args)
	}
	return nil
}

// applyPlayingStatus handles both push layouts: three booleans after the ids,
// or a single status code where 0 is stopped, 1 playing, 2 triggered, and 3
// recording.
func (b *Bridge) applyPlayingStatus(args []any) *protocol.Patch {
	if len(args) < 3 {
		return nil
	}
	t, s := asInt(args[0], -1), asInt(args[1], -1)

	var playing, triggered, recording bool
	if len(args) >= 5 {
		playing = asBool(args[2])
		triggered = asBool(args[3])
		recording = asBool(args[4])
	} else {
		switch asInt(args[2], 0) {
		case 1:
			playing = true
		case 2:
			triggered = true
		case 3:
			recording = true
		}
	}
	return b.store.SetClipPlayingStatus(t, s, playing, triggered, recording)
}

// applyHasClip flips clip presence and manages the per-clip status listener.
// A new clip gets its properties queried in the background; the enriched slot
// is broadcast when they arrive.
func (b *Bridge) applyHasClip(args []any) *protocol.Patch {
	if len(args) < 3 {
		return nil
	}
	t, s := asInt(args[0], -1), asInt(args[1], -1)
	hasClip := asBool(args[2])

	// Flip presence before spawning enrichment so the clip exists when the
	// property queries land.
	patch := b.store.SetHasClip(t, s, hasClip)
	if patch == nil {
		return nil
	}
	if hasClip {
		b.engine.StartClipListener(t, s)
		go func() {
			if enriched := b.engine.SyncNewClip(b.context(), t, s); enriched != nil {
				b.broadcast(protocol.PatchMessage(enriched))
			}
		}()
	} else {
		b.engine.StopClipListener(t, s)
	}
	return patch
}

// onHealthChange reacts to connectivity flips. A lost link invalidates the
// mirror; the next session request resyncs from scratch.
func (b *Bridge) onHealthChange(up bool) {
	b.mu.Lock()
	b.connected = up
	if !up {
		b.synced = false
	}
	b.mu.Unlock()

	if !up {
		b.poller.Stop()
		b.engine.InvalidateListeners()
	}
	b.broadcast(protocol.ConnectedMessage(up))
}

func (b *Bridge) broadcastPhase(phase string, progress int) {
	b.broadcast(protocol.SyncPhaseMessage(phase, progress))
}

func (b *Bridge) broadcast(m protocol.ServerMessage) {
	if b.hub != nil {
		b.hub.Broadcast(m)
	}
}

func (b *Bridge) send(m protocol.OSCMessage) {
	if err := b.osc.Send(m); err != nil {
		b.log.WithError(err).Warnf("send %s", m.Address)
	}
}
