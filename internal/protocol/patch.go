package protocol

import "fmt"

// PatchKind tags what part of the session a patch touches.
type PatchKind string

const (
	PatchTransport PatchKind = "transport"
	PatchTrack     PatchKind = "track"
	PatchClip      PatchKind = "clip"
	PatchScene     PatchKind = "scene"
	PatchSelection PatchKind = "selection"
	PatchStructure PatchKind = "structure"
)

// Patch is a minimal description of a single state change, broadcast to
// clients instead of the full session tree. Only the fields relevant to Kind
// are populated.
type Patch struct {
	Kind PatchKind `json:"kind"`

	// transport
	Tempo                   *float64 `json:"tempo,omitempty"`
	IsPlaying               *bool    `json:"isPlaying,omitempty"`
	IsRecording             *bool    `json:"isRecording,omitempty"`
	PunchIn                 *bool    `json:"punchIn,omitempty"`
	PunchOut                *bool    `json:"punchOut,omitempty"`
	Metronome               *bool    `json:"metronome,omitempty"`
	Loop                    *bool    `json:"loop,omitempty"`
	ClipTriggerQuantization *int     `json:"clipTriggerQuantization,omitempty"`
	BeatTime                *float64 `json:"beatTime,omitempty"`

	// selection
	SelectedTrack *int `json:"selectedTrack,omitempty"`
	SelectedScene *int `json:"selectedScene,omitempty"`

	// track / clip / scene
	TrackIndex *int      `json:"trackIndex,omitempty"`
	SceneIndex *int      `json:"sceneIndex,omitempty"`
	Track      *Track    `json:"track,omitempty"`
	ClipSlot   *ClipSlot `json:"clipSlot,omitempty"`
	Scene      *Scene    `json:"scene,omitempty"`

	// structure
	NumTracks *int `json:"numTracks,omitempty"`
	NumScenes *int `json:"numScenes,omitempty"`
}

func (p *Patch) String() string {
	return fmt.Sprintf("patch<%s>", p.Kind)
}

// Ptr returns a pointer to v; convenience for building patches.
func Ptr[T any](v T) *T { return &v }

// DefaultTrackName is the fallback name when Live reports none.
func DefaultTrackName(id int) string { return fmt.Sprintf("Track %d", id+1) }

// DefaultSceneName is the fallback name when Live reports none.
func DefaultSceneName(id int) string { return fmt.Sprintf("Scene %d", id+1) }
