package protocol

// Client message types (JSON over the WebSocket).
const (
	ClientTransportPlay      = "transport/play"
	ClientTransportStop      = "transport/stop"
	ClientTransportRecord    = "transport/record"
	ClientTransportTempo     = "transport/tempo"
	ClientTransportTapTempo  = "transport/tapTempo"
	ClientTransportMetronome = "transport/metronome"
	ClientTransportPunchIn   = "transport/punchIn"
	ClientTransportPunchOut  = "transport/punchOut"
	ClientTransportLoop      = "transport/loop"
	ClientTransportQuant     = "transport/quantization"
	ClientTransportUndo      = "transport/undo"
	ClientTransportRedo      = "transport/redo"
	ClientMixerVolume        = "mixer/volume"
	ClientMixerPan           = "mixer/pan"
	ClientMixerSend          = "mixer/send"
	ClientMixerMute          = "mixer/mute"
	ClientMixerSolo          = "mixer/solo"
	ClientMixerArm           = "mixer/arm"
	ClientClipFire           = "clip/fire"
	ClientClipStop           = "clip/stop"
	ClientClipDelete         = "clip/delete"
	ClientClipMove           = "clip/move"
	ClientSceneFire          = "scene/fire"
	ClientSceneCreate        = "scene/create"
	ClientTrackStop          = "track/stop"
	ClientDeviceParameter    = "device/parameter"
	ClientSessionRequest     = "session/request"
	ClientSessionResync      = "session/resync"
	ClientRawOSC             = "osc"
)

// ClientMessage is the decoded form of every inbound client message. Fields
// are populated depending on Type; unused fields stay at their zero value.
type ClientMessage struct {
	Type string `json:"type"`

	TrackID int     `json:"trackId"`
	SceneID int     `json:"sceneId"`
	Value   float64 `json:"value"`
	BPM     float64 `json:"bpm"`
	Enabled bool    `json:"enabled"`
	Muted   bool    `json:"muted"`
	Soloed  bool    `json:"soloed"`
	Armed   bool    `json:"armed"`

	SendIndex   int `json:"sendIndex"`
	DeviceID    int `json:"deviceId"`
	ParameterID int `json:"parameterId"`

	SrcTrack int `json:"srcTrack"`
	SrcScene int `json:"srcScene"`
	DstTrack int `json:"dstTrack"`
	DstScene int `json:"dstScene"`

	// scene/create optional insert position (nil = append)
	Index *int `json:"index,omitempty"`

	// raw OSC passthrough
	Address string `json:"address"`
	Args    []any  `json:"args"`
}

// Server message types.
const (
	ServerConnected    = "connected"
	ServerSession      = "session"
	ServerSessionReset = "session_reset"
	ServerSyncPhase    = "sync_phase"
	ServerPatch        = "patch"
	ServerError        = "error"
)

// ServerMessage is the envelope for everything the bridge sends to clients.
// Payload carries the session tree for "session" and a *Patch for "patch".
type ServerMessage struct {
	Type             string `json:"type"`
	AbletonConnected *bool  `json:"abletonConnected,omitempty"`
	Payload          any    `json:"payload,omitempty"`
	Phase            string `json:"phase,omitempty"`
	Progress         *int   `json:"progress,omitempty"`
	Message          string `json:"message,omitempty"`
}

// ConnectedMessage reports the remote connection state.
func ConnectedMessage(up bool) ServerMessage {
	return ServerMessage{Type: ServerConnected, AbletonConnected: &up}
}

// SessionMessage carries the full session tree.
func SessionMessage(s *SessionState) ServerMessage {
	return ServerMessage{Type: ServerSession, Payload: s}
}

// PatchMessage carries an incremental state change.
func PatchMessage(p *Patch) ServerMessage {
	return ServerMessage{Type: ServerPatch, Payload: p}
}

// SyncPhaseMessage reports coarse sync progress. progress < 0 means "no
// percentage for this phase".
func SyncPhaseMessage(phase string, progress int) ServerMessage {
	m := ServerMessage{Type: ServerSyncPhase, Phase: phase}
	if progress >= 0 {
		m.Progress = &progress
	}
	return m
}

// ErrorMessage reports a bridge-side failure to the client.
func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: ServerError, Message: msg}
}
