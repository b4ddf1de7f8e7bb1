package protocol

// Clone returns a deep copy of the session tree. Patches and full-session
// broadcasts carry copies so JSON marshalling never races with mutation.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.Tracks = make([]*Track, len(s.Tracks))
	for i, t := range s.Tracks {
		c.Tracks[i] = t.Clone()
	}
	c.Scenes = make([]*Scene, len(s.Scenes))
	for i, sc := range s.Scenes {
		c.Scenes[i] = sc.Clone()
	}
	return &c
}

// Clone returns a deep copy of the track.
func (t *Track) Clone() *Track {
	c := *t
	c.Clips = make([]*ClipSlot, len(t.Clips))
	for i, cs := range t.Clips {
		c.Clips[i] = cs.Clone()
	}
	c.Sends = append([]float64(nil), t.Sends...)
	return &c
}

// Clone returns a copy of the scene.
func (s *Scene) Clone() *Scene {
	c := *s
	return &c
}

// Clone returns a deep copy of the slot.
func (cs *ClipSlot) Clone() *ClipSlot {
	c := *cs
	if cs.Clip != nil {
		clip := *cs.Clip
		c.Clip = &clip
	}
	return &c
}
