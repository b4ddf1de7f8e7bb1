package bridge

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/osc"
	"github.com/livebridge/livebridge/internal/protocol"
	"github.com/livebridge/livebridge/internal/session"
)

// fakeOSC answers queries from a scripted table keyed by correlation key.
// Unscripted queries go unanswered and return nil, like a silent remote.
type fakeOSC struct {
	mu        sync.Mutex
	sent      []protocol.OSCMessage
	responses map[string][]any
	resolved  bool
}

func newFakeOSC() *fakeOSC {
	return &fakeOSC{responses: make(map[string][]any)}
}

func (f *fakeOSC) respond(q protocol.OSCMessage, vals ...any) {
	// An answered query always yields a non-nil slice, even when the
	// response carries no values, matching the correlator.
	if vals == nil {
		vals = []any{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[osc.QueryKey(q)] = vals
}

func (f *fakeOSC) Send(m protocol.OSCMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeOSC) Query(_ context.Context, m protocol.OSCMessage) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.responses[osc.QueryKey(m)]
}

func (f *fakeOSC) Resolve(protocol.OSCMessage) bool {
	return f.resolved
}

func (f *fakeOSC) sentAddrs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	addrs := make([]string, len(f.sent))
	for i, m := range f.sent {
		addrs[i] = m.Address
	}
	return addrs
}

func (f *fakeOSC) countSent(substr string) int {
	n := 0
	for _, a := range f.sentAddrs() {
		if strings.Contains(a, substr) {
			n++
		}
	}
	return n
}

// scriptSession scripts a full session: structure, per-track and per-scene
// properties, and empty clip slots.
func scriptSession(f *fakeOSC, numTracks, numScenes int) {
	f.respond(protocol.SongGet(protocol.AddrSongGetTempo), 98.0)
	f.respond(protocol.SongGet(protocol.AddrSongGetIsPlaying), 0)
	f.respond(protocol.SongGet(protocol.AddrSongGetMetronome), 1)
	f.respond(protocol.SongGet(protocol.AddrSongGetQuantization), 4)
	f.respond(protocol.SongGet(protocol.AddrSongGetPunchIn), 0)
	f.respond(protocol.SongGet(protocol.AddrSongGetPunchOut), 0)
	f.respond(protocol.SongGet(protocol.AddrSongGetLoop), 1)
	f.respond(protocol.SongGet(protocol.AddrSongGetNumTracks), numTracks)
	f.respond(protocol.SongGet(protocol.AddrSongGetNumScenes), numScenes)
	f.respond(protocol.SongGet(protocol.AddrViewGetSelectedTrack), 0)
	f.respond(protocol.SongGet(protocol.AddrViewGetSelectedScene), 0)

	for t := 0; t < numTracks; t++ {
		f.respond(protocol.TrackGet(protocol.AddrTrackGetName, t), "T")
		f.respond(protocol.TrackGet(protocol.AddrTrackGetVolume, t), 0.7)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetPanning, t), 0.0)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetMute, t), 0)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetSolo, t), 0)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetArm, t), 0)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetPlayingSlotIndex, t), -1)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetFiredSlotIndex, t), -1)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetHasMidiInput, t), 1)
		f.respond(protocol.TrackGet(protocol.AddrTrackGetHasAudioInput, t), 0)
		for s := 0; s < numScenes; s++ {
			f.respond(protocol.SlotGet(protocol.AddrClipSlotGetHasClip, t, s), 0)
		}
	}
	for s := 0; s < numScenes; s++ {
		f.respond(protocol.SceneGet(protocol.AddrSceneGetName, s), "S")
		f.respond(protocol.SceneGet(protocol.AddrSceneGetColor, s), 0)
	}
}

func TestInitialSyncPopulatesStore(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 2, 2)
	// One clip in the matrix, with properties.
	f.respond(protocol.SlotGet(protocol.AddrClipSlotGetHasClip, 1, 0), 1)
	f.respond(protocol.SlotGet(protocol.AddrClipGetName, 1, 0), "Bassline")
	f.respond(protocol.SlotGet(protocol.AddrClipGetColor, 1, 0), 16711680)
	f.respond(protocol.SlotGet(protocol.AddrClipGetLength, 1, 0), 16.0)
	f.respond(protocol.SlotGet(protocol.AddrClipGetIsAudioClip, 1, 0), 0)
	f.respond(protocol.SlotGet(protocol.AddrClipGetIsMidiClip, 1, 0), 1)

	store := session.NewStore()
	e := NewEngine(store, f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))

	state := store.Snapshot()
	assert.Equal(t, 98.0, state.Tempo)
	assert.False(t, state.IsPlaying)
	assert.True(t, state.Metronome)
	assert.True(t, state.Loop)
	assert.Equal(t, 4, state.ClipTriggerQuantization)
	require.Len(t, state.Tracks, 2)
	require.Len(t, state.Scenes, 2)
	assert.Equal(t, "T", state.Tracks[0].Name)
	assert.Equal(t, 0.7, state.Tracks[0].Volume)
	assert.True(t, state.Tracks[0].HasMidiInput)

	slot := state.Tracks[1].Clips[0]
	require.True(t, slot.HasClip)
	require.NotNil(t, slot.Clip)
	assert.Equal(t, "Bassline", slot.Clip.Name)
	assert.Equal(t, 16.0, slot.Clip.Length)
	assert.True(t, slot.Clip.IsMidiClip)
	assert.False(t, state.Tracks[0].Clips[0].HasClip)
}

func TestInitialSyncDefaultsForUnanswered(t *testing.T) {
	f := newFakeOSC()
	// Only structure answers; every property query goes unanswered.
	f.respond(protocol.SongGet(protocol.AddrSongGetNumTracks), 1)
	f.respond(protocol.SongGet(protocol.AddrSongGetNumScenes), 1)

	store := session.NewStore()
	e := NewEngine(store, f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))

	state := store.Snapshot()
	assert.Equal(t, protocol.DefaultTempo, state.Tempo)
	assert.Equal(t, protocol.DefaultQuantization, state.ClipTriggerQuantization)
	require.Len(t, state.Tracks, 1)
	assert.Equal(t, protocol.DefaultTrackName(0), state.Tracks[0].Name)
	assert.Equal(t, protocol.DefaultVolume, state.Tracks[0].Volume)
	assert.Equal(t, -1, state.Tracks[0].PlayingSlotIndex)
	assert.Equal(t, protocol.DefaultSceneName(0), state.Scenes[0].Name)
}

func TestInitialSyncMarksPlayingClip(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 1, 2)
	f.respond(protocol.TrackGet(protocol.AddrTrackGetPlayingSlotIndex, 0), 1)
	f.respond(protocol.SlotGet(protocol.AddrClipSlotGetHasClip, 0, 1), 1)

	store := session.NewStore()
	e := NewEngine(store, f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))

	slot := store.ClipSlot(0, 1)
	require.NotNil(t, slot.Clip)
	assert.True(t, slot.Clip.IsPlaying)
}

func TestSyncPhaseProgression(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 2, 1)

	var phases []string
	e := NewEngine(session.NewStore(), f, 8, func(phase string, progress int) {
		if len(phases) == 0 || phases[len(phases)-1] != phase {
			phases = append(phases, phase)
		}
	})
	require.NoError(t, e.InitialSync(context.Background()))
	assert.Equal(t, []string{PhaseStructure, PhaseTracks, PhaseScenes, PhaseClips}, phases)
}

func TestSetupListenersSubscribesEverything(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 2, 1)

	e := NewEngine(session.NewStore(), f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))

	e.SetupListeners()
	// 10 song/view listeners, 6 per track, 1 has_clip per slot.
	assert.Equal(t, 10+2*6+2*1, f.countSent("/start_listen/"))

	// Idempotent.
	e.SetupListeners()
	assert.Equal(t, 10+2*6+2*1, f.countSent("/start_listen/"))
}

func TestStopListenersTearsDownClipListeners(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 1, 1)

	e := NewEngine(session.NewStore(), f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))
	e.SetupListeners()
	e.StartClipListener(0, 0)

	e.StopListeners()
	assert.Equal(t, 1, f.countSent("/live/clip/stop_listen/playing_status"))

	// Stopped listeners stay stopped.
	e.StopListeners()
	assert.Equal(t, 1, f.countSent("/live/clip/stop_listen/playing_status"))
}

func TestInvalidateListenersAllowsResubscribe(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 1, 1)

	e := NewEngine(session.NewStore(), f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))
	e.SetupListeners()
	e.StartClipListener(0, 0)
	before := f.countSent("/start_listen/")

	// A dropped link forgets subscriptions without stop traffic.
	e.InvalidateListeners()
	assert.Equal(t, 0, f.countSent("/stop_listen/"))

	e.SetupListeners()
	assert.Greater(t, f.countSent("/start_listen/"), before)
}

func TestClipListenerLifecycle(t *testing.T) {
	f := newFakeOSC()
	e := NewEngine(session.NewStore(), f, 8, nil)

	e.StartClipListener(0, 0)
	e.StartClipListener(0, 0)
	assert.Equal(t, 1, f.countSent("/live/clip/start_listen/playing_status"))

	e.StopClipListener(0, 0)
	e.StopClipListener(0, 0)
	assert.Equal(t, 1, f.countSent("/live/clip/stop_listen/playing_status"))
}

func TestCheckStructureChangesGrowTracks(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 1, 1)

	store := session.NewStore()
	e := NewEngine(store, f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))
	e.SetupListeners()

	// A second track appears.
	scriptSession(f, 2, 1)
	changed := e.CheckStructureChanges(context.Background())
	assert.True(t, changed)

	nt, ns := e.Structure()
	assert.Equal(t, 2, nt)
	assert.Equal(t, 1, ns)
	state := store.Snapshot()
	require.Len(t, state.Tracks, 2)
	assert.Equal(t, "T", state.Tracks[1].Name)
	// New track got its listeners.
	assert.Equal(t, 2, f.countSent("/live/track/start_listen/volume"))
}

func TestCheckStructureChangesShrinkSendsNoUnsubscribes(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 4, 2)

	store := session.NewStore()
	e := NewEngine(store, f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))

	before := f.countSent("/stop_listen/")
	scriptSession(f, 2, 2)
	assert.True(t, e.CheckStructureChanges(context.Background()))

	// Removed entities already lost their listeners remote-side.
	assert.Equal(t, before, f.countSent("/stop_listen/"))
	state := store.Snapshot()
	assert.Len(t, state.Tracks, 2)
	for _, tr := range state.Tracks {
		assert.Len(t, tr.Clips, 2)
	}
}

func TestCheckStructureChangesNoChange(t *testing.T) {
	f := newFakeOSC()
	scriptSession(f, 2, 2)

	e := NewEngine(session.NewStore(), f, 8, nil)
	require.NoError(t, e.InitialSync(context.Background()))
	assert.False(t, e.CheckStructureChanges(context.Background()))
}

func TestCoercions(t *testing.T) {
	assert.Equal(t, 1.5, asFloat(1.5, 0))
	assert.Equal(t, 3.0, asFloat(3, 0))
	assert.Equal(t, 9.9, asFloat(nil, 9.9))
	assert.Equal(t, 7, asInt(7, 0))
	assert.Equal(t, 7, asInt(7.0, 0))
	assert.Equal(t, -1, asInt("x", -1))
	assert.True(t, asBool(1))
	assert.True(t, asBool(true))
	assert.False(t, asBool(0))
	assert.False(t, asBool(nil))
	assert.Equal(t, "a", asString("a", "d"))
	assert.Equal(t, "d", asString("", "d"))
	assert.Equal(t, "d", asString(nil, "d"))
}
