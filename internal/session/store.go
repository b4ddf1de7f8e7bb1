// Package session owns the mirrored Live session tree. All mutation goes
// through Store methods, each returning a patch describing exactly what
// changed. Setters referencing an index that does not exist return nil rather
// than failing: indices can lag behind structural changes arriving over an
// unordered transport.
package session

import (
	"sync"

	"github.com/livebridge/livebridge/internal/protocol"
)

// Store holds the authoritative session state.
//
// Writes are last-write-wins with no versioning: a listener push and a sync
// query landing on the same entity resolve in arrival order.
type Store struct {
	mu    sync.RWMutex
	state *protocol.SessionState
}

// NewStore creates a store with an empty session.
func NewStore() *Store {
	return &Store{state: protocol.NewSessionState()}
}

// Snapshot returns a deep copy of the current session.
func (s *Store) Snapshot() *protocol.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Reset replaces the session with an empty one.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = protocol.NewSessionState()
	s.mu.Unlock()
}

// InitTransport seeds the global transport fields in one shot during initial
// sync, before SetStructure allocates the entity arrays.
func (s *Store) InitTransport(tempo float64, isPlaying, metronome, punchIn, punchOut, loop bool, quantization int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Tempo = tempo
	st.IsPlaying = isPlaying
	st.IsRecording = false
	st.Metronome = metronome
	st.PunchIn = punchIn
	st.PunchOut = punchOut
	st.Loop = loop
	st.ClipTriggerQuantization = quantization
}

// Structure returns the current track and scene counts.
func (s *Store) Structure() (numTracks, numScenes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Tracks), len(s.state.Scenes)
}

// SetStructure resizes the track and scene arrays, appending default entries
// or truncating, and re-pads every track's clip row to the new scene count.
// The matrix invariant len(track.Clips) == len(Scenes) holds on return.
func (s *Store) SetStructure(numTracks, numScenes int) *protocol.Patch {
	if numTracks < 0 {
		numTracks = 0
	}
	if numScenes < 0 {
		numScenes = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state

	for len(st.Tracks) < numTracks {
		st.Tracks = append(st.Tracks, protocol.NewTrack(len(st.Tracks), numScenes))
	}
	st.Tracks = st.Tracks[:numTracks]

	for len(st.Scenes) < numScenes {
		st.Scenes = append(st.Scenes, protocol.NewScene(len(st.Scenes)))
	}
	st.Scenes = st.Scenes[:numScenes]

	for _, t := range st.Tracks {
		for len(t.Clips) < numScenes {
			t.Clips = append(t.Clips, protocol.NewClipSlot(t.ID, len(t.Clips)))
		}
		t.Clips = t.Clips[:numScenes]
	}

	return &protocol.Patch{
		Kind:      protocol.PatchStructure,
		NumTracks: protocol.Ptr(numTracks),
		NumScenes: protocol.Ptr(numScenes),
	}
}

// Transport setters.

func (s *Store) SetTempo(tempo float64) *protocol.Patch {
	s.mu.Lock()
	s.state.Tempo = tempo
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, Tempo: protocol.Ptr(tempo)}
}

func (s *Store) SetIsPlaying(playing bool) *protocol.Patch {
	s.mu.Lock()
	s.state.IsPlaying = playing
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, IsPlaying: protocol.Ptr(playing)}
}

func (s *Store) SetIsRecording(recording bool) *protocol.Patch {
	s.mu.Lock()
	s.state.IsRecording = recording
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, IsRecording: protocol.Ptr(recording)}
}

func (s *Store) SetMetronome(on bool) *protocol.Patch {
	s.mu.Lock()
	s.state.Metronome = on
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, Metronome: protocol.Ptr(on)}
}

func (s *Store) SetPunchIn(on bool) *protocol.Patch {
	s.mu.Lock()
	s.state.PunchIn = on
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, PunchIn: protocol.Ptr(on)}
}

func (s *Store) SetPunchOut(on bool) *protocol.Patch {
	s.mu.Lock()
	s.state.PunchOut = on
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, PunchOut: protocol.Ptr(on)}
}

func (s *Store) SetLoop(on bool) *protocol.Patch {
	s.mu.Lock()
	s.state.Loop = on
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, Loop: protocol.Ptr(on)}
}

func (s *Store) SetQuantization(q int) *protocol.Patch {
	s.mu.Lock()
	s.state.ClipTriggerQuantization = q
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, ClipTriggerQuantization: protocol.Ptr(q)}
}

func (s *Store) SetBeatTime(beats float64) *protocol.Patch {
	s.mu.Lock()
	s.state.BeatTime = beats
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchTransport, BeatTime: protocol.Ptr(beats)}
}

// Tempo returns the current tempo.
func (s *Store) Tempo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Tempo
}

// Selection setters.

func (s *Store) SetSelectedTrack(idx int) *protocol.Patch {
	s.mu.Lock()
	s.state.SelectedTrack = idx
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchSelection, SelectedTrack: protocol.Ptr(idx)}
}

func (s *Store) SetSelectedScene(idx int) *protocol.Patch {
	s.mu.Lock()
	s.state.SelectedScene = idx
	s.mu.Unlock()
	return &protocol.Patch{Kind: protocol.PatchSelection, SelectedScene: protocol.Ptr(idx)}
}

// TrackUpdate mutates fields of one track. Nil pointers leave the field
// untouched, mirroring a partial merge.
type TrackUpdate struct {
	Name             *string
	Color            *int
	Volume           *float64
	Pan              *float64
	Mute             *bool
	Solo             *bool
	Arm              *bool
	PlayingSlotIndex *int
	FiredSlotIndex   *int
	HasMidiInput     *bool
	HasAudioInput    *bool
}

// UpdateTrack applies a partial update and returns a track patch, or nil if
// the index is out of range.
func (s *Store) UpdateTrack(trackIndex int, u TrackUpdate) *protocol.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trackIndex < 0 || trackIndex >= len(s.state.Tracks) {
		return nil
	}
	t := s.state.Tracks[trackIndex]
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Color != nil {
		t.Color = *u.Color
	}
	if u.Volume != nil {
		t.Volume = *u.Volume
	}
	if u.Pan != nil {
		t.Pan = *u.Pan
	}
	if u.Mute != nil {
		t.Mute = *u.Mute
	}
	if u.Solo != nil {
		t.Solo = *u.Solo
	}
	if u.Arm != nil {
		t.Arm = *u.Arm
	}
	if u.PlayingSlotIndex != nil {
		t.PlayingSlotIndex = *u.PlayingSlotIndex
	}
	if u.FiredSlotIndex != nil {
		t.FiredSlotIndex = *u.FiredSlotIndex
	}
	if u.HasMidiInput != nil {
		t.HasMidiInput = *u.HasMidiInput
	}
	if u.HasAudioInput != nil {
		t.HasAudioInput = *u.HasAudioInput
	}
	return trackPatch(trackIndex, t)
}

func (s *Store) SetTrackVolume(i int, v float64) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{Volume: &v})
}

func (s *Store) SetTrackPan(i int, v float64) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{Pan: &v})
}

// SetTrackSend sets the level of one send on a track, growing the sends
// slice if the send index has not been seen before.
func (s *Store) SetTrackSend(trackIndex, sendIndex int, level float64) *protocol.Patch {
	if sendIndex < 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if trackIndex < 0 || trackIndex >= len(s.state.Tracks) {
		return nil
	}
	t := s.state.Tracks[trackIndex]
	for len(t.Sends) <= sendIndex {
		t.Sends = append(t.Sends, 0)
	}
	t.Sends[sendIndex] = level
	return trackPatch(trackIndex, t)
}

func (s *Store) SetTrackMute(i int, on bool) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{Mute: &on})
}

func (s *Store) SetTrackSolo(i int, on bool) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{Solo: &on})
}

func (s *Store) SetTrackArm(i int, on bool) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{Arm: &on})
}

func (s *Store) SetTrackPlayingSlot(i, slot int) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{PlayingSlotIndex: &slot})
}

func (s *Store) SetTrackFiredSlot(i, slot int) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{FiredSlotIndex: &slot})
}

func (s *Store) SetTrackName(i int, name string) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{Name: &name})
}

func (s *Store) SetTrackColor(i, color int) *protocol.Patch {
	return s.UpdateTrack(i, TrackUpdate{Color: &color})
}

// Track returns a copy of the track at idx, or nil.
func (s *Store) Track(idx int) *protocol.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx < 0 || idx >= len(s.state.Tracks) {
		return nil
	}
	return s.state.Tracks[idx].Clone()
}

// SceneUpdate mutates fields of one scene.
type SceneUpdate struct {
	Name  *string
	Color *int
}

// UpdateScene applies a partial update and returns a scene patch, or nil if
// the index is out of range.
func (s *Store) UpdateScene(sceneIndex int, u SceneUpdate) *protocol.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sceneIndex < 0 || sceneIndex >= len(s.state.Scenes) {
		return nil
	}
	sc := s.state.Scenes[sceneIndex]
	if u.Name != nil {
		sc.Name = *u.Name
	}
	if u.Color != nil {
		sc.Color = *u.Color
	}
	return &protocol.Patch{
		Kind:       protocol.PatchScene,
		SceneIndex: protocol.Ptr(sceneIndex),
		Scene:      sc.Clone(),
	}
}

func (s *Store) SetSceneName(i int, name string) *protocol.Patch {
	return s.UpdateScene(i, SceneUpdate{Name: &name})
}

func (s *Store) SetSceneColor(i, color int) *protocol.Patch {
	return s.UpdateScene(i, SceneUpdate{Color: &color})
}

// ClipSlot returns a copy of the slot, or nil if either index is stale.
func (s *Store) ClipSlot(trackIndex, sceneIndex int) *protocol.ClipSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs := s.slot(trackIndex, sceneIndex)
	if cs == nil {
		return nil
	}
	return cs.Clone()
}

// SetHasClip flips clip presence for a slot. Flipping to false discards the
// clip payload so it can never go stale.
func (s *Store) SetHasClip(trackIndex, sceneIndex int, hasClip bool) *protocol.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.slot(trackIndex, sceneIndex)
	if cs == nil {
		return nil
	}
	cs.HasClip = hasClip
	if !hasClip {
		cs.Clip = nil
	}
	return clipPatch(trackIndex, sceneIndex, cs)
}

// ClipUpdate mutates fields of the clip in a slot.
type ClipUpdate struct {
	Name            *string
	Color           *int
	IsPlaying       *bool
	IsTriggered     *bool
	IsRecording     *bool
	PlayingPosition *float64
	Length          *float64
	LoopStart       *float64
	LoopEnd         *float64
	IsAudioClip     *bool
	IsMidiClip      *bool
}

// UpdateClip applies a partial update to the clip in a slot. Returns nil when
// the slot does not exist or holds no clip.
func (s *Store) UpdateClip(trackIndex, sceneIndex int, u ClipUpdate) *protocol.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.slot(trackIndex, sceneIndex)
	if cs == nil || !cs.HasClip {
		return nil
	}
	if cs.Clip == nil {
		cs.Clip = &protocol.Clip{}
	}
	c := cs.Clip
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
	if u.IsPlaying != nil {
		c.IsPlaying = *u.IsPlaying
	}
	if u.IsTriggered != nil {
		c.IsTriggered = *u.IsTriggered
	}
	if u.IsRecording != nil {
		c.IsRecording = *u.IsRecording
	}
	if u.PlayingPosition != nil {
		c.PlayingPosition = *u.PlayingPosition
	}
	if u.Length != nil {
		c.Length = *u.Length
	}
	if u.LoopStart != nil {
		c.LoopStart = *u.LoopStart
	}
	if u.LoopEnd != nil {
		c.LoopEnd = *u.LoopEnd
	}
	if u.IsAudioClip != nil {
		c.IsAudioClip = *u.IsAudioClip
	}
	if u.IsMidiClip != nil {
		c.IsMidiClip = *u.IsMidiClip
	}
	return clipPatch(trackIndex, sceneIndex, cs)
}

// SetClipPlayingStatus updates the playing/triggered/recording flags of the
// clip in a slot.
func (s *Store) SetClipPlayingStatus(trackIndex, sceneIndex int, playing, triggered, recording bool) *protocol.Patch {
	return s.UpdateClip(trackIndex, sceneIndex, ClipUpdate{
		IsPlaying:   &playing,
		IsTriggered: &triggered,
		IsRecording: &recording,
	})
}

// MarkSlotStates derives clip playing/triggered flags from each track's slot
// indices after initial sync. A slot that is both playing and fired counts as
// playing only.
func (s *Store) MarkSlotStates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.state.Tracks {
		if t.PlayingSlotIndex >= 0 && t.PlayingSlotIndex < len(t.Clips) {
			if cs := t.Clips[t.PlayingSlotIndex]; cs.HasClip && cs.Clip != nil {
				cs.Clip.IsPlaying = true
			}
		}
		if t.FiredSlotIndex >= 0 && t.FiredSlotIndex != t.PlayingSlotIndex && t.FiredSlotIndex < len(t.Clips) {
			if cs := t.Clips[t.FiredSlotIndex]; cs.HasClip && cs.Clip != nil {
				cs.Clip.IsTriggered = true
			}
		}
	}
}

// slot returns the live slot, or nil. Callers hold the lock.
func (s *Store) slot(trackIndex, sceneIndex int) *protocol.ClipSlot {
	if trackIndex < 0 || trackIndex >= len(s.state.Tracks) {
		return nil
	}
	t := s.state.Tracks[trackIndex]
	if sceneIndex < 0 || sceneIndex >= len(t.Clips) {
		return nil
	}
	return t.Clips[sceneIndex]
}

func trackPatch(idx int, t *protocol.Track) *protocol.Patch {
	return &protocol.Patch{
		Kind:       protocol.PatchTrack,
		TrackIndex: protocol.Ptr(idx),
		Track:      t.Clone(),
	}
}

func clipPatch(trackIndex, sceneIndex int, cs *protocol.ClipSlot) *protocol.Patch {
	return &protocol.Patch{
		Kind:       protocol.PatchClip,
		TrackIndex: protocol.Ptr(trackIndex),
		SceneIndex: protocol.Ptr(sceneIndex),
		ClipSlot:   cs.Clone(),
	}
}
