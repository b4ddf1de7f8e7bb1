package session

import (
	"testing"

	"github.com/livebridge/livebridge/internal/protocol"
)

func TestSetStructureGrow(t *testing.T) {
	s := NewStore()
	p := s.SetStructure(3, 4)

	if p.Kind != protocol.PatchStructure {
		t.Fatalf("patch kind = %q, want %q", p.Kind, protocol.PatchStructure)
	}
	if *p.NumTracks != 3 || *p.NumScenes != 4 {
		t.Errorf("patch counts = %d x %d, want 3 x 4", *p.NumTracks, *p.NumScenes)
	}

	state := s.Snapshot()
	if len(state.Tracks) != 3 {
		t.Fatalf("len(Tracks) = %d, want 3", len(state.Tracks))
	}
	if len(state.Scenes) != 4 {
		t.Fatalf("len(Scenes) = %d, want 4", len(state.Scenes))
	}
	for i, tr := range state.Tracks {
		if len(tr.Clips) != 4 {
			t.Errorf("track %d has %d clip slots, want 4", i, len(tr.Clips))
		}
		if tr.Name != protocol.DefaultTrackName(i) {
			t.Errorf("track %d name = %q, want %q", i, tr.Name, protocol.DefaultTrackName(i))
		}
		if tr.PlayingSlotIndex != -1 {
			t.Errorf("track %d playing slot = %d, want -1", i, tr.PlayingSlotIndex)
		}
	}
}

func TestSetStructureShrinkThenGrow(t *testing.T) {
	s := NewStore()
	s.SetStructure(4, 4)
	s.SetHasClip(3, 3, true)

	s.SetStructure(2, 2)
	state := s.Snapshot()
	if len(state.Tracks) != 2 || len(state.Scenes) != 2 {
		t.Fatalf("after shrink: %d x %d, want 2 x 2", len(state.Tracks), len(state.Scenes))
	}
	for i, tr := range state.Tracks {
		if len(tr.Clips) != 2 {
			t.Errorf("after shrink track %d has %d slots, want 2", i, len(tr.Clips))
		}
	}

	// Growing back must produce fresh empty entries, not resurrect old ones.
	s.SetStructure(4, 4)
	state = s.Snapshot()
	if cs := state.Tracks[3].Clips[3]; cs.HasClip || cs.Clip != nil {
		t.Errorf("regrown slot (3,3) = hasClip=%v clip=%v, want empty", cs.HasClip, cs.Clip)
	}
	for i, tr := range state.Tracks {
		if len(tr.Clips) != 4 {
			t.Errorf("after regrow track %d has %d slots, want 4", i, len(tr.Clips))
		}
	}
}

func TestSetStructureEmpty(t *testing.T) {
	s := NewStore()
	s.SetStructure(3, 3)
	s.SetStructure(0, 0)
	state := s.Snapshot()
	if len(state.Tracks) != 0 || len(state.Scenes) != 0 {
		t.Errorf("empty structure: %d x %d, want 0 x 0", len(state.Tracks), len(state.Scenes))
	}
}

func TestSetHasClipDiscardsClip(t *testing.T) {
	s := NewStore()
	s.SetStructure(1, 1)
	s.SetHasClip(0, 0, true)
	s.UpdateClip(0, 0, ClipUpdate{Name: protocol.Ptr("Bass")})

	p := s.SetHasClip(0, 0, false)
	if p == nil {
		t.Fatal("SetHasClip returned nil for valid slot")
	}
	if p.ClipSlot.HasClip || p.ClipSlot.Clip != nil {
		t.Errorf("patch slot = hasClip=%v clip=%v, want empty", p.ClipSlot.HasClip, p.ClipSlot.Clip)
	}

	// Re-adding the clip must not see the old payload.
	s.SetHasClip(0, 0, true)
	s.UpdateClip(0, 0, ClipUpdate{Color: protocol.Ptr(7)})
	cs := s.ClipSlot(0, 0)
	if cs.Clip == nil {
		t.Fatal("clip missing after re-add")
	}
	if cs.Clip.Name != "" {
		t.Errorf("clip name = %q, want empty after discard", cs.Clip.Name)
	}
}

func TestUpdateClipWithoutClip(t *testing.T) {
	s := NewStore()
	s.SetStructure(1, 1)
	if p := s.UpdateClip(0, 0, ClipUpdate{Name: protocol.Ptr("x")}); p != nil {
		t.Errorf("UpdateClip on empty slot = %v, want nil", p)
	}
}

func TestStaleIndicesAreNoOps(t *testing.T) {
	s := NewStore()
	s.SetStructure(2, 2)

	cases := []struct {
		name  string
		patch *protocol.Patch
	}{
		{"track volume", s.SetTrackVolume(5, 0.5)},
		{"track negative", s.SetTrackMute(-1, true)},
		{"scene name", s.SetSceneName(9, "x")},
		{"clip track", s.SetHasClip(7, 0, true)},
		{"clip scene", s.SetHasClip(0, 7, true)},
		{"clip update", s.UpdateClip(3, 0, ClipUpdate{Name: protocol.Ptr("x")})},
		{"send", s.SetTrackSend(5, 0, 0.3)},
	}
	for _, c := range cases {
		if c.patch != nil {
			t.Errorf("%s: patch = %v, want nil", c.name, c.patch)
		}
	}
}

func TestSettersAreIdempotent(t *testing.T) {
	s := NewStore()
	s.SetStructure(1, 1)

	p1 := s.SetTrackMute(0, true)
	p2 := s.SetTrackMute(0, true)
	if p1 == nil || p2 == nil {
		t.Fatal("valid setter returned nil")
	}
	if !p2.Track.Mute {
		t.Error("repeated SetTrackMute lost the value")
	}

	q1 := s.SetTempo(128)
	q2 := s.SetTempo(128)
	if *q1.Tempo != *q2.Tempo {
		t.Errorf("repeated SetTempo patches differ: %v vs %v", *q1.Tempo, *q2.Tempo)
	}
}

func TestTrackPatchCarriesCopy(t *testing.T) {
	s := NewStore()
	s.SetStructure(1, 1)
	p := s.SetTrackVolume(0, 0.4)
	s.SetTrackVolume(0, 0.9)
	if p.Track.Volume != 0.4 {
		t.Errorf("patch track volume = %v, want 0.4 (snapshot at patch time)", p.Track.Volume)
	}
}

func TestSetTrackSendGrows(t *testing.T) {
	s := NewStore()
	s.SetStructure(1, 1)
	p := s.SetTrackSend(0, 2, 0.6)
	if p == nil {
		t.Fatal("SetTrackSend returned nil")
	}
	sends := p.Track.Sends
	if len(sends) != 3 {
		t.Fatalf("len(sends) = %d, want 3", len(sends))
	}
	if sends[2] != 0.6 || sends[0] != 0 {
		t.Errorf("sends = %v, want [0 0 0.6]", sends)
	}
}

func TestTransportDefaultsAndInit(t *testing.T) {
	s := NewStore()
	state := s.Snapshot()
	if state.Tempo != protocol.DefaultTempo {
		t.Errorf("default tempo = %v, want %v", state.Tempo, protocol.DefaultTempo)
	}
	if state.ClipTriggerQuantization != protocol.DefaultQuantization {
		t.Errorf("default quantization = %d, want %d", state.ClipTriggerQuantization, protocol.DefaultQuantization)
	}
	if state.MasterTrack.Volume != protocol.DefaultVolume {
		t.Errorf("default master volume = %v, want %v", state.MasterTrack.Volume, protocol.DefaultVolume)
	}

	s.InitTransport(91.5, true, true, false, false, true, 4)
	state = s.Snapshot()
	if state.Tempo != 91.5 || !state.IsPlaying || !state.Metronome || !state.Loop {
		t.Errorf("InitTransport not applied: %+v", state)
	}
	if state.ClipTriggerQuantization != 4 {
		t.Errorf("quantization = %d, want 4", state.ClipTriggerQuantization)
	}
}

func TestReset(t *testing.T) {
	s := NewStore()
	s.SetStructure(3, 3)
	s.SetTempo(140)
	s.Reset()
	state := s.Snapshot()
	if len(state.Tracks) != 0 || state.Tempo != protocol.DefaultTempo {
		t.Errorf("after reset: %d tracks, tempo %v", len(state.Tracks), state.Tempo)
	}
}

func TestMarkSlotStates(t *testing.T) {
	s := NewStore()
	s.SetStructure(2, 3)
	s.SetHasClip(0, 1, true)
	s.UpdateClip(0, 1, ClipUpdate{Name: protocol.Ptr("a")})
	s.SetHasClip(1, 2, true)
	s.UpdateClip(1, 2, ClipUpdate{Name: protocol.Ptr("b")})
	s.SetTrackPlayingSlot(0, 1)
	s.SetTrackFiredSlot(1, 2)

	s.MarkSlotStates()
	state := s.Snapshot()
	if !state.Tracks[0].Clips[1].Clip.IsPlaying {
		t.Error("playing slot clip not marked playing")
	}
	if !state.Tracks[1].Clips[2].Clip.IsTriggered {
		t.Error("fired slot clip not marked triggered")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	s.SetStructure(1, 1)
	snap := s.Snapshot()
	snap.Tracks[0].Name = "mutated"
	if s.Snapshot().Tracks[0].Name == "mutated" {
		t.Error("snapshot mutation leaked into store")
	}
}
