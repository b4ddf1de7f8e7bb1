package protocol

import "strings"

// OSCMessage is an OSC address plus decoded native arguments. The UDP layer
// owns the conversion to and from wire types.
type OSCMessage struct {
	Address string
	Args    []any
}

// Application-level addresses.
const (
	AddrTest    = "/live/test"
	AddrStartup = "/live/startup"
	AddrError   = "/live/error"
)

// Song addresses.
const (
	AddrSongStartPlaying         = "/live/song/start_playing"
	AddrSongStopPlaying          = "/live/song/stop_playing"
	AddrSongStopAllClips         = "/live/song/stop_all_clips"
	AddrSongTapTempo             = "/live/song/tap_tempo"
	AddrSongTriggerSessionRecord = "/live/song/trigger_session_record"
	AddrSongUndo                 = "/live/song/undo"
	AddrSongRedo                 = "/live/song/redo"
	AddrSongCreateScene          = "/live/song/create_scene"

	AddrSongGetTempo         = "/live/song/get/tempo"
	AddrSongGetIsPlaying     = "/live/song/get/is_playing"
	AddrSongGetMetronome     = "/live/song/get/metronome"
	AddrSongGetPunchIn       = "/live/song/get/punch_in"
	AddrSongGetPunchOut      = "/live/song/get/punch_out"
	AddrSongGetLoop          = "/live/song/get/loop"
	AddrSongGetQuantization  = "/live/song/get/clip_trigger_quantization"
	AddrSongGetSessionRecord = "/live/song/get/session_record"
	AddrSongGetNumTracks     = "/live/song/get/num_tracks"
	AddrSongGetNumScenes     = "/live/song/get/num_scenes"
	AddrSongGetBeatTime      = "/live/song/get/current_song_time"

	AddrSongSetTempo        = "/live/song/set/tempo"
	AddrSongSetMetronome    = "/live/song/set/metronome"
	AddrSongSetPunchIn      = "/live/song/set/punch_in"
	AddrSongSetPunchOut     = "/live/song/set/punch_out"
	AddrSongSetLoop         = "/live/song/set/loop"
	AddrSongSetQuantization = "/live/song/set/clip_trigger_quantization"
)

// View addresses.
const (
	AddrViewGetSelectedTrack = "/live/view/get/selected_track"
	AddrViewGetSelectedScene = "/live/view/get/selected_scene"
)

// Track addresses.
const (
	AddrTrackStopAllClips = "/live/track/stop_all_clips"

	AddrTrackGetName             = "/live/track/get/name"
	AddrTrackGetColor            = "/live/track/get/color"
	AddrTrackGetVolume           = "/live/track/get/volume"
	AddrTrackGetPanning          = "/live/track/get/panning"
	AddrTrackGetMute             = "/live/track/get/mute"
	AddrTrackGetSolo             = "/live/track/get/solo"
	AddrTrackGetArm              = "/live/track/get/arm"
	AddrTrackGetPlayingSlotIndex = "/live/track/get/playing_slot_index"
	AddrTrackGetFiredSlotIndex   = "/live/track/get/fired_slot_index"
	AddrTrackGetHasMidiInput     = "/live/track/get/has_midi_input"
	AddrTrackGetHasAudioInput    = "/live/track/get/has_audio_input"

	AddrTrackSetVolume  = "/live/track/set/volume"
	AddrTrackSetPanning = "/live/track/set/panning"
	AddrTrackSetSend    = "/live/track/set/send"
	AddrTrackSetMute    = "/live/track/set/mute"
	AddrTrackSetSolo    = "/live/track/set/solo"
	AddrTrackSetArm     = "/live/track/set/arm"
)

// Scene addresses.
const (
	AddrSceneFire     = "/live/scene/fire"
	AddrSceneGetName  = "/live/scene/get/name"
	AddrSceneGetColor = "/live/scene/get/color"
)

// Clip slot addresses.
const (
	AddrClipSlotFire            = "/live/clip_slot/fire"
	AddrClipSlotStop            = "/live/clip_slot/stop"
	AddrClipSlotDeleteClip      = "/live/clip_slot/delete_clip"
	AddrClipSlotDuplicateClipTo = "/live/clip_slot/duplicate_clip_to"
	AddrClipSlotGetHasClip      = "/live/clip_slot/get/has_clip"
)

// Clip addresses.
const (
	AddrClipGetName            = "/live/clip/get/name"
	AddrClipGetColor           = "/live/clip/get/color"
	AddrClipGetLength          = "/live/clip/get/length"
	AddrClipGetLoopStart       = "/live/clip/get/loop_start"
	AddrClipGetLoopEnd         = "/live/clip/get/loop_end"
	AddrClipGetIsAudioClip     = "/live/clip/get/is_audio_clip"
	AddrClipGetIsMidiClip      = "/live/clip/get/is_midi_clip"
	AddrClipGetPlayingStatus   = "/live/clip/get/playing_status"
	AddrClipGetPlayingPosition = "/live/clip/get/playing_position"
)

// Device addresses.
const (
	AddrDeviceSetParameterValue = "/live/device/set/parameter/value"
)

// Listener subscription segments. Getter and listener addresses share a base:
// /live/song/get/tempo vs /live/song/start_listen/tempo.
const (
	segGet         = "/get/"
	segStartListen = "/start_listen/"
	segStopListen  = "/stop_listen/"
)

// StartListen converts a getter address into its start_listen form.
func StartListen(getterAddr string) string {
	return strings.Replace(getterAddr, segGet, segStartListen, 1)
}

// StopListen converts a getter address into its stop_listen form.
func StopListen(getterAddr string) string {
	return strings.Replace(getterAddr, segGet, segStopListen, 1)
}

// IDArgCount returns how many leading arguments of a message on this address
// identify an entity (track, scene, or both) rather than carry a value.
func IDArgCount(addr string) int {
	switch {
	case strings.HasPrefix(addr, "/live/clip_slot/"), strings.HasPrefix(addr, "/live/clip/"):
		return 2
	case strings.HasPrefix(addr, "/live/track/"), strings.HasPrefix(addr, "/live/scene/"):
		return 1
	default:
		return 0
	}
}

// InboundAddresses lists every address the remote script may send back, either
// as a query response or as a listener push. The OSC dispatch table is built
// from this list; anything else arriving on the wire is dropped at the socket.
func InboundAddresses() []string {
	return []string{
		AddrTest,
		AddrStartup,
		AddrError,
		AddrSongGetTempo,
		AddrSongGetIsPlaying,
		AddrSongGetMetronome,
		AddrSongGetPunchIn,
		AddrSongGetPunchOut,
		AddrSongGetLoop,
		AddrSongGetQuantization,
		AddrSongGetSessionRecord,
		AddrSongGetNumTracks,
		AddrSongGetNumScenes,
		AddrSongGetBeatTime,
		AddrViewGetSelectedTrack,
		AddrViewGetSelectedScene,
		AddrTrackGetName,
		AddrTrackGetColor,
		AddrTrackGetVolume,
		AddrTrackGetPanning,
		AddrTrackGetMute,
		AddrTrackGetSolo,
		AddrTrackGetArm,
		AddrTrackGetPlayingSlotIndex,
		AddrTrackGetFiredSlotIndex,
		AddrTrackGetHasMidiInput,
		AddrTrackGetHasAudioInput,
		AddrSceneGetName,
		AddrSceneGetColor,
		AddrClipSlotGetHasClip,
		AddrClipGetName,
		AddrClipGetColor,
		AddrClipGetLength,
		AddrClipGetLoopStart,
		AddrClipGetLoopEnd,
		AddrClipGetIsAudioClip,
		AddrClipGetIsMidiClip,
		AddrClipGetPlayingStatus,
		AddrClipGetPlayingPosition,
	}
}

// Message builders. Queries carry only identifying arguments; the response
// echoes those ids followed by the value.

func Test() OSCMessage { return OSCMessage{Address: AddrTest} }

func SongGet(addr string) OSCMessage { return OSCMessage{Address: addr} }

func TrackGet(addr string, track int) OSCMessage {
	return OSCMessage{Address: addr, Args: []any{track}}
}

func SceneGet(addr string, scene int) OSCMessage {
	return OSCMessage{Address: addr, Args: []any{scene}}
}

func SlotGet(addr string, track, scene int) OSCMessage {
	return OSCMessage{Address: addr, Args: []any{track, scene}}
}

func SongListen(getterAddr string, start bool) OSCMessage {
	if start {
		return OSCMessage{Address: StartListen(getterAddr)}
	}
	return OSCMessage{Address: StopListen(getterAddr)}
}

func TrackListen(getterAddr string, start bool, track int) OSCMessage {
	m := SongListen(getterAddr, start)
	m.Args = []any{track}
	return m
}

func SlotListen(getterAddr string, start bool, track, scene int) OSCMessage {
	m := SongListen(getterAddr, start)
	m.Args = []any{track, scene}
	return m
}
