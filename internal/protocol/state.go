// Package protocol defines the shared vocabulary of the bridge: the session
// state tree mirrored from Ableton Live, the JSON messages exchanged with
// clients, and the OSC address catalog spoken to the AbletonOSC remote script.
package protocol

// Defaults for freshly created state. Live reports volume 0.85 as unity gain.
const (
	DefaultTempo        = 120.0
	DefaultVolume       = 0.85
	DefaultQuantization = 8 // 1/8
)

// SessionState is the full mirrored Live session.
type SessionState struct {
	Tempo                   float64     `json:"tempo"`
	IsPlaying               bool        `json:"isPlaying"`
	IsRecording             bool        `json:"isRecording"`
	PunchIn                 bool        `json:"punchIn"`
	PunchOut                bool        `json:"punchOut"`
	Metronome               bool        `json:"metronome"`
	Loop                    bool        `json:"loop"`
	ClipTriggerQuantization int         `json:"clipTriggerQuantization"`
	BeatTime                float64     `json:"beatTime"`
	Tracks                  []*Track    `json:"tracks"`
	Scenes                  []*Scene    `json:"scenes"`
	MasterTrack             MasterTrack `json:"masterTrack"`
	SelectedTrack           int         `json:"selectedTrack"`
	SelectedScene           int         `json:"selectedScene"`
}

// Track is one session track; Clips is indexed by scene id and always has
// exactly len(Scenes) entries.
type Track struct {
	ID               int         `json:"id"`
	Name             string      `json:"name"`
	Color            int         `json:"color"`
	Volume           float64     `json:"volume"`
	Pan              float64     `json:"pan"`
	Mute             bool        `json:"mute"`
	Solo             bool        `json:"solo"`
	Arm              bool        `json:"arm"`
	PlayingSlotIndex int         `json:"playingSlotIndex"`
	FiredSlotIndex   int         `json:"firedSlotIndex"`
	Clips            []*ClipSlot `json:"clips"`
	HasMidiInput     bool        `json:"hasMidiInput"`
	HasAudioInput    bool        `json:"hasAudioInput"`
	Sends            []float64   `json:"sends"`
}

// Scene is one session scene (row).
type Scene struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// MasterTrack has mixer state only; it cannot be muted or armed.
type MasterTrack struct {
	Color  int     `json:"color"`
	Volume float64 `json:"volume"`
	Pan    float64 `json:"pan"`
}

// ClipSlot is one cell of the track x scene matrix.
// Clip is non-nil iff HasClip is true.
type ClipSlot struct {
	TrackIndex int   `json:"trackIndex"`
	SceneIndex int   `json:"sceneIndex"`
	HasClip    bool  `json:"hasClip"`
	Clip       *Clip `json:"clip,omitempty"`
}

// Clip holds the properties of a clip living in a slot.
type Clip struct {
	Name            string  `json:"name"`
	Color           int     `json:"color"`
	IsPlaying       bool    `json:"isPlaying"`
	IsTriggered     bool    `json:"isTriggered"`
	IsRecording     bool    `json:"isRecording"`
	PlayingPosition float64 `json:"playingPosition"`
	Length          float64 `json:"length"`
	LoopStart       float64 `json:"loopStart"`
	LoopEnd         float64 `json:"loopEnd"`
	IsAudioClip     bool    `json:"isAudioClip"`
	IsMidiClip      bool    `json:"isMidiClip"`
}

// NewSessionState returns an empty session with defaults.
func NewSessionState() *SessionState {
	return &SessionState{
		Tempo:                   DefaultTempo,
		ClipTriggerQuantization: DefaultQuantization,
		Tracks:                  []*Track{},
		Scenes:                  []*Scene{},
		MasterTrack:             MasterTrack{Volume: DefaultVolume},
	}
}

// NewTrack returns a default track with numScenes empty clip slots.
func NewTrack(id, numScenes int) *Track {
	clips := make([]*ClipSlot, numScenes)
	for s := range clips {
		clips[s] = NewClipSlot(id, s)
	}
	return &Track{
		ID:               id,
		Name:             DefaultTrackName(id),
		Volume:           DefaultVolume,
		PlayingSlotIndex: -1,
		FiredSlotIndex:   -1,
		Clips:            clips,
		Sends:            []float64{},
	}
}

// NewScene returns a default scene.
func NewScene(id int) *Scene {
	return &Scene{ID: id}
}

// NewClipSlot returns an empty slot at the given coordinates.
func NewClipSlot(trackIndex, sceneIndex int) *ClipSlot {
	return &ClipSlot{TrackIndex: trackIndex, SceneIndex: sceneIndex}
}
