package bridge

import (
	"github.com/livebridge/livebridge/internal/protocol"
)

// ToOSC converts a client command into the wire message it stands for.
// Returns false for unknown types and for types the coordinator handles
// itself (session requests, clip moves, raw passthrough).
func ToOSC(m protocol.ClientMessage) (protocol.OSCMessage, bool) {
	switch m.Type {
	case protocol.ClientTransportPlay:
		return protocol.OSCMessage{Address: protocol.AddrSongStartPlaying}, true
	case protocol.ClientTransportStop:
		return protocol.OSCMessage{Address: protocol.AddrSongStopPlaying}, true
	case protocol.ClientTransportRecord:
		return protocol.OSCMessage{Address: protocol.AddrSongTriggerSessionRecord}, true
	case protocol.ClientTransportTapTempo:
		return protocol.OSCMessage{Address: protocol.AddrSongTapTempo}, true
	case protocol.ClientTransportTempo:
		return protocol.OSCMessage{Address: protocol.AddrSongSetTempo, Args: []any{m.BPM}}, true
	case protocol.ClientTransportMetronome:
		return protocol.OSCMessage{Address: protocol.AddrSongSetMetronome, Args: []any{boolArg(m.Enabled)}}, true
	case protocol.ClientTransportPunchIn:
		return protocol.OSCMessage{Address: protocol.AddrSongSetPunchIn, Args: []any{boolArg(m.Enabled)}}, true
	case protocol.ClientTransportPunchOut:
		return protocol.OSCMessage{Address: protocol.AddrSongSetPunchOut, Args: []any{boolArg(m.Enabled)}}, true
	case protocol.ClientTransportLoop:
		return protocol.OSCMessage{Address: protocol.AddrSongSetLoop, Args: []any{boolArg(m.Enabled)}}, true
	case protocol.ClientTransportQuant:
		return protocol.OSCMessage{Address: protocol.AddrSongSetQuantization, Args: []any{int(m.Value)}}, true
	case protocol.ClientTransportUndo:
		return protocol.OSCMessage{Address: protocol.AddrSongUndo}, true
	case protocol.ClientTransportRedo:
		return protocol.OSCMessage{Address: protocol.AddrSongRedo}, true

	case protocol.ClientMixerVolume:
		return protocol.OSCMessage{Address: protocol.AddrTrackSetVolume, Args: []any{m.TrackID, m.Value}}, true
	case protocol.ClientMixerPan:
		return protocol.OSCMessage{Address: protocol.AddrTrackSetPanning, Args: []any{m.TrackID, m.Value}}, true
	case protocol.ClientMixerSend:
		return protocol.OSCMessage{Address: protocol.AddrTrackSetSend, Args: []any{m.TrackID, m.SendIndex, m.Value}}, true
	case protocol.ClientMixerMute:
		return protocol.OSCMessage{Address: protocol.AddrTrackSetMute, Args: []any{m.TrackID, boolArg(m.Muted)}}, true
	case protocol.ClientMixerSolo:
		return protocol.OSCMessage{Address: protocol.AddrTrackSetSolo, Args: []any{m.TrackID, boolArg(m.Soloed)}}, true
	case protocol.ClientMixerArm:
		return protocol.OSCMessage{Address: protocol.AddrTrackSetArm, Args: []any{m.TrackID, boolArg(m.Armed)}}, true

	case protocol.ClientClipFire:
		return protocol.OSCMessage{Address: protocol.AddrClipSlotFire, Args: []any{m.TrackID, m.SceneID}}, true
	case protocol.ClientClipStop:
		return protocol.OSCMessage{Address: protocol.AddrClipSlotStop, Args: []any{m.TrackID, m.SceneID}}, true
	case protocol.ClientClipDelete:
		return protocol.OSCMessage{Address: protocol.AddrClipSlotDeleteClip, Args: []any{m.TrackID, m.SceneID}}, true

	case protocol.ClientSceneFire:
		return protocol.OSCMessage{Address: protocol.AddrSceneFire, Args: []any{m.SceneID}}, true
	case protocol.ClientSceneCreate:
		idx := -1
		if m.Index != nil {
			idx = *m.Index
		}
		return protocol.OSCMessage{Address: protocol.AddrSongCreateScene, Args: []any{idx}}, true

	case protocol.ClientTrackStop:
		return protocol.OSCMessage{Address: protocol.AddrTrackStopAllClips, Args: []any{m.TrackID}}, true

	case protocol.ClientDeviceParameter:
		return protocol.OSCMessage{
			Address: protocol.AddrDeviceSetParameterValue,
			Args:    []any{m.TrackID, m.DeviceID, m.ParameterID, m.Value},
		}, true
	}
	return protocol.OSCMessage{}, false
}

// Live booleans go over the wire as 0/1.
func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}
