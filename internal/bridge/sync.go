package bridge

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/protocol"
	"github.com/livebridge/livebridge/internal/session"
)

// Querier issues OSC commands and correlated queries. Satisfied by osc.Client;
// tests substitute fakes.
type Querier interface {
	Send(m protocol.OSCMessage) error
	Query(ctx context.Context, m protocol.OSCMessage) []any
}

// Sync phase names reported to clients.
const (
	PhaseStructure = "structure"
	PhaseTracks    = "tracks"
	PhaseScenes    = "scenes"
	PhaseClips     = "clips"
	PhaseReady     = "ready"
)

// PhaseFunc receives sync progress. progress < 0 means the phase has no
// percentage.
type PhaseFunc func(phase string, progress int)

// Engine walks the remote session and fills the store: transport first, then
// structure, then every track, scene, and clip slot. It also owns the listener
// subscriptions that keep the store current afterwards.
type Engine struct {
	store   *session.Store
	osc     Querier
	batch   int
	onPhase PhaseFunc
	log     *logrus.Entry

	mu            sync.Mutex
	numTracks     int
	numScenes     int
	listenersOn   bool
	clipListeners map[[2]int]bool
}

// NewEngine creates a sync engine. batch bounds concurrent clip slot queries;
// onPhase may be nil.
func NewEngine(store *session.Store, osc Querier, batch int, onPhase PhaseFunc) *Engine {
	if batch <= 0 {
		batch = 32
	}
	if onPhase == nil {
		onPhase = func(string, int) {}
	}
	return &Engine{
		store:         store,
		osc:           osc,
		batch:         batch,
		onPhase:       onPhase,
		log:           logging.Component("sync"),
		clipListeners: make(map[[2]int]bool),
	}
}

// InitialSync queries the full remote session into the store. Unanswered
// queries fall back to defaults so a partially responsive session still
// produces a usable tree.
func (e *Engine) InitialSync(ctx context.Context) error {
	e.log.Info("starting initial sync")
	e.onPhase(PhaseStructure, -1)

	var (
		tempo, isPlaying, metronome, quantization     any
		punchIn, punchOut, loop, numTracks, numScenes any
	)
	g, gctx := errgroup.WithContext(ctx)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetTempo, &tempo)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetIsPlaying, &isPlaying)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetMetronome, &metronome)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetQuantization, &quantization)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetPunchIn, &punchIn)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetPunchOut, &punchOut)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetLoop, &loop)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetNumTracks, &numTracks)
	queryInto(g, gctx, e.osc, protocol.AddrSongGetNumScenes, &numScenes)
	if err := g.Wait(); err != nil {
		return err
	}

	nt := asInt(numTracks, 0)
	ns := asInt(numScenes, 0)
	e.mu.Lock()
	e.numTracks, e.numScenes = nt, ns
	e.mu.Unlock()
	e.log.Infof("found %d tracks, %d scenes", nt, ns)

	// Transport before structure: SetStructure allocates the entity arrays
	// the later phases write into.
	e.store.InitTransport(
		asFloat(tempo, protocol.DefaultTempo),
		asBool(isPlaying),
		asBool(metronome),
		asBool(punchIn),
		asBool(punchOut),
		asBool(loop),
		asInt(quantization, protocol.DefaultQuantization),
	)
	e.store.SetStructure(nt, ns)

	e.store.SetSelectedTrack(asInt(first(e.osc.Query(ctx, protocol.SongGet(protocol.AddrViewGetSelectedTrack))), 0))
	e.store.SetSelectedScene(asInt(first(e.osc.Query(ctx, protocol.SongGet(protocol.AddrViewGetSelectedScene))), 0))

	e.onPhase(PhaseTracks, -1)
	g, gctx = errgroup.WithContext(ctx)
	for t := 0; t < nt; t++ {
		t := t
		g.Go(func() error {
			e.syncTrack(gctx, t)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.onPhase(PhaseScenes, -1)
	g, gctx = errgroup.WithContext(ctx)
	for s := 0; s < ns; s++ {
		s := s
		g.Go(func() error {
			e.syncScene(gctx, s)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.onPhase(PhaseClips, -1)
	if err := e.syncClipSlots(ctx, nt, ns); err != nil {
		return err
	}

	e.store.MarkSlotStates()
	e.log.Info("initial sync complete")
	return nil
}

func (e *Engine) syncTrack(ctx context.Context, t int) {
	var name, color, volume, pan, mute, solo, arm any
	var playingSlot, firedSlot, hasMidi, hasAudio any

	g := new(errgroup.Group)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetName, t, &name)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetColor, t, &color)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetVolume, t, &volume)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetPanning, t, &pan)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetMute, t, &mute)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetSolo, t, &solo)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetArm, t, &arm)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetPlayingSlotIndex, t, &playingSlot)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetFiredSlotIndex, t, &firedSlot)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetHasMidiInput, t, &hasMidi)
	trackInto(g, ctx, e.osc, protocol.AddrTrackGetHasAudioInput, t, &hasAudio)
	_ = g.Wait()

	e.store.UpdateTrack(t, session.TrackUpdate{
		Name:             protocol.Ptr(asString(name, protocol.DefaultTrackName(t))),
		Color:            protocol.Ptr(asInt(color, 0)),
		Volume:           protocol.Ptr(asFloat(volume, protocol.DefaultVolume)),
		Pan:              protocol.Ptr(asFloat(pan, 0)),
		Mute:             protocol.Ptr(asBool(mute)),
		Solo:             protocol.Ptr(asBool(solo)),
		Arm:              protocol.Ptr(asBool(arm)),
		PlayingSlotIndex: protocol.Ptr(asInt(playingSlot, -1)),
		FiredSlotIndex:   protocol.Ptr(asInt(firedSlot, -1)),
		HasMidiInput:     protocol.Ptr(asBool(hasMidi)),
		HasAudioInput:    protocol.Ptr(asBool(hasAudio)),
	})
}

func (e *Engine) syncScene(ctx context.Context, s int) {
	var name, color any
	g := new(errgroup.Group)
	g.Go(func() error {
		name = first(e.osc.Query(ctx, protocol.SceneGet(protocol.AddrSceneGetName, s)))
		return nil
	})
	g.Go(func() error {
		color = first(e.osc.Query(ctx, protocol.SceneGet(protocol.AddrSceneGetColor, s)))
		return nil
	})
	_ = g.Wait()

	e.store.UpdateScene(s, session.SceneUpdate{
		Name:  protocol.Ptr(asString(name, protocol.DefaultSceneName(s))),
		Color: protocol.Ptr(asInt(color, 0)),
	})
}

func (e *Engine) syncClipSlots(ctx context.Context, numTracks, numScenes int) error {
	for t := 0; t < numTracks; t++ {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.batch)
		for s := 0; s < numScenes; s++ {
			t, s := t, s
			g.Go(func() error {
				e.syncClipSlot(gctx, t, s)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		e.onPhase(PhaseClips, (t+1)*100/numTracks)
	}
	return nil
}

func (e *Engine) syncClipSlot(ctx context.Context, t, s int) {
	hasClip := asBool(first(e.osc.Query(ctx, protocol.SlotGet(protocol.AddrClipSlotGetHasClip, t, s))))
	e.store.SetHasClip(t, s, hasClip)
	if hasClip {
		e.syncClipProperties(ctx, t, s)
	}
}

// syncClipProperties queries a clip's static properties. Playing status is
// only available through listeners, never by direct query.
func (e *Engine) syncClipProperties(ctx context.Context, t, s int) *protocol.Patch {
	var name, color, length, isAudio, isMidi any
	g := new(errgroup.Group)
	slotInto(g, ctx, e.osc, protocol.AddrClipGetName, t, s, &name)
	slotInto(g, ctx, e.osc, protocol.AddrClipGetColor, t, s, &color)
	slotInto(g, ctx, e.osc, protocol.AddrClipGetLength, t, s, &length)
	slotInto(g, ctx, e.osc, protocol.AddrClipGetIsAudioClip, t, s, &isAudio)
	slotInto(g, ctx, e.osc, protocol.AddrClipGetIsMidiClip, t, s, &isMidi)
	_ = g.Wait()

	return e.store.UpdateClip(t, s, session.ClipUpdate{
		Name:        protocol.Ptr(asString(name, "")),
		Color:       protocol.Ptr(asInt(color, 0)),
		Length:      protocol.Ptr(asFloat(length, 0)),
		IsPlaying:   protocol.Ptr(false),
		IsTriggered: protocol.Ptr(false),
		IsRecording: protocol.Ptr(false),
		IsAudioClip: protocol.Ptr(asBool(isAudio)),
		IsMidiClip:  protocol.Ptr(asBool(isMidi)),
	})
}

// SyncNewClip fills in a clip that appeared through a has_clip push and
// returns the resulting patch for broadcast.
func (e *Engine) SyncNewClip(ctx context.Context, t, s int) *protocol.Patch {
	e.log.Debugf("syncing new clip at %d:%d", t, s)
	return e.syncClipProperties(ctx, t, s)
}

// Structure reports the entity counts from the last sync.
func (e *Engine) Structure() (numTracks, numScenes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numTracks, e.numScenes
}

// songListenBases are the song-level getters subscribed for pushes.
func songListenBases() []string {
	return []string{
		protocol.AddrSongGetTempo,
		protocol.AddrSongGetIsPlaying,
		protocol.AddrSongGetMetronome,
		protocol.AddrSongGetPunchIn,
		protocol.AddrSongGetPunchOut,
		protocol.AddrSongGetLoop,
		protocol.AddrSongGetQuantization,
		protocol.AddrSongGetSessionRecord,
		protocol.AddrViewGetSelectedTrack,
		protocol.AddrViewGetSelectedScene,
	}
}

// trackListenBases are the per-track getters subscribed for pushes.
func trackListenBases() []string {
	return []string{
		protocol.AddrTrackGetVolume,
		protocol.AddrTrackGetMute,
		protocol.AddrTrackGetSolo,
		protocol.AddrTrackGetArm,
		protocol.AddrTrackGetPlayingSlotIndex,
		protocol.AddrTrackGetFiredSlotIndex,
	}
}

// SetupListeners subscribes to pushes for the whole session. Idempotent.
func (e *Engine) SetupListeners() {
	e.mu.Lock()
	if e.listenersOn {
		e.mu.Unlock()
		return
	}
	e.listenersOn = true
	nt, ns := e.numTracks, e.numScenes
	e.mu.Unlock()

	e.log.Info("setting up listeners")
	for _, base := range songListenBases() {
		e.send(protocol.SongListen(base, true))
	}
	for t := 0; t < nt; t++ {
		e.setupTrackListeners(t, ns)
	}
}

// StopListeners unsubscribes everything, including dynamic clip listeners.
// Idempotent.
func (e *Engine) StopListeners() {
	e.mu.Lock()
	if !e.listenersOn {
		e.mu.Unlock()
		return
	}
	e.listenersOn = false
	nt, ns := e.numTracks, e.numScenes
	clips := make([][2]int, 0, len(e.clipListeners))
	for k := range e.clipListeners {
		clips = append(clips, k)
	}
	e.clipListeners = make(map[[2]int]bool)
	e.mu.Unlock()

	e.log.Info("stopping listeners")
	for _, base := range songListenBases() {
		e.send(protocol.SongListen(base, false))
	}
	for t := 0; t < nt; t++ {
		for _, base := range trackListenBases() {
			e.send(protocol.TrackListen(base, false, t))
		}
		for s := 0; s < ns; s++ {
			e.send(protocol.SlotListen(protocol.AddrClipSlotGetHasClip, false, t, s))
		}
	}
	for _, k := range clips {
		e.send(protocol.SlotListen(protocol.AddrClipGetPlayingStatus, false, k[0], k[1]))
	}
}

// InvalidateListeners forgets all subscriptions without sending stop messages.
// Used when the link drops: the remote side is unreachable, and a restarted
// script has no listeners to stop anyway.
func (e *Engine) InvalidateListeners() {
	e.mu.Lock()
	e.listenersOn = false
	e.clipListeners = make(map[[2]int]bool)
	e.mu.Unlock()
}

// setupTrackListeners subscribes one track and its clip slots.
func (e *Engine) setupTrackListeners(t, numScenes int) {
	for _, base := range trackListenBases() {
		e.send(protocol.TrackListen(base, true, t))
	}
	for s := 0; s < numScenes; s++ {
		e.send(protocol.SlotListen(protocol.AddrClipSlotGetHasClip, true, t, s))
	}
}

// StartClipListener subscribes to status pushes for one clip. Subscriptions
// are tracked so StopListeners can tear them down.
func (e *Engine) StartClipListener(t, s int) {
	e.mu.Lock()
	if e.clipListeners[[2]int{t, s}] {
		e.mu.Unlock()
		return
	}
	e.clipListeners[[2]int{t, s}] = true
	e.mu.Unlock()

	e.send(protocol.SlotListen(protocol.AddrClipGetPlayingStatus, true, t, s))
}

// StopClipListener unsubscribes one clip's status pushes.
func (e *Engine) StopClipListener(t, s int) {
	e.mu.Lock()
	if !e.clipListeners[[2]int{t, s}] {
		e.mu.Unlock()
		return
	}
	delete(e.clipListeners, [2]int{t, s})
	e.mu.Unlock()

	e.send(protocol.SlotListen(protocol.AddrClipGetPlayingStatus, false, t, s))
}

// CheckStructureChanges re-reads the entity counts and reconciles the store
// and listener subscriptions. New tracks and scenes are synced fully; removed
// ones just truncate, since Live has already dropped their listeners.
func (e *Engine) CheckStructureChanges(ctx context.Context) bool {
	newTracks := asInt(first(e.osc.Query(ctx, protocol.SongGet(protocol.AddrSongGetNumTracks))), -1)
	newScenes := asInt(first(e.osc.Query(ctx, protocol.SongGet(protocol.AddrSongGetNumScenes))), -1)
	if newTracks < 0 || newScenes < 0 {
		return false
	}

	e.mu.Lock()
	oldTracks, oldScenes := e.numTracks, e.numScenes
	e.mu.Unlock()
	if newTracks == oldTracks && newScenes == oldScenes {
		return false
	}
	e.log.Infof("structure changed: %dx%d -> %dx%d", oldTracks, oldScenes, newTracks, newScenes)

	if newTracks > oldTracks {
		e.store.SetStructure(newTracks, oldScenes)
		for t := oldTracks; t < newTracks; t++ {
			e.syncTrack(ctx, t)
			e.setupTrackListeners(t, oldScenes)
		}
	} else if newTracks < oldTracks {
		e.store.SetStructure(newTracks, oldScenes)
	}

	if newScenes > oldScenes {
		e.store.SetStructure(newTracks, newScenes)
		for s := oldScenes; s < newScenes; s++ {
			e.syncScene(ctx, s)
		}
		for t := 0; t < newTracks; t++ {
			for s := oldScenes; s < newScenes; s++ {
				e.syncClipSlot(ctx, t, s)
				e.send(protocol.SlotListen(protocol.AddrClipSlotGetHasClip, true, t, s))
			}
		}
	} else if newScenes < oldScenes {
		e.store.SetStructure(newTracks, newScenes)
	}

	e.mu.Lock()
	e.numTracks, e.numScenes = newTracks, newScenes
	e.mu.Unlock()
	return true
}

func (e *Engine) send(m protocol.OSCMessage) {
	if err := e.osc.Send(m); err != nil {
		e.log.WithError(err).Warnf("send %s", m.Address)
	}
}

// Query fan-out helpers. Each writes the first value arg of the response, or
// nil when unanswered.

func queryInto(g *errgroup.Group, ctx context.Context, q Querier, addr string, dst *any) {
	g.Go(func() error {
		*dst = first(q.Query(ctx, protocol.SongGet(addr)))
		return nil
	})
}

func trackInto(g *errgroup.Group, ctx context.Context, q Querier, addr string, t int, dst *any) {
	g.Go(func() error {
		*dst = first(q.Query(ctx, protocol.TrackGet(addr, t)))
		return nil
	})
}

func slotInto(g *errgroup.Group, ctx context.Context, q Querier, addr string, t, s int, dst *any) {
	g.Go(func() error {
		*dst = first(q.Query(ctx, protocol.SlotGet(addr, t, s)))
		return nil
	})
}

func first(vals []any) any {
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// Value coercions. Responses carry ints for booleans and sometimes for
// floats; nil means the query went unanswered.

func asFloat(v any, def float64) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	}
	return def
}

func asInt(v any, def int) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return int(x)
	}
	return def
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int:
		return x != 0
	case float64:
		return x != 0
	}
	return false
}

func asString(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}
