package matrix

import "github.com/backmassage/codecbench/internal/media"

// Fixture names: compressed session inputs and the raw files decoded from
// them for the encode suite.
const (
	FixtureHRInput    = "crowd_1920x1080_25fps_4000kbps_h265.mkv"
	FixtureLRInput    = "crowd_176x144_25fps_6000kbps_mpeg4.mp4"
	FixtureAudioInput = "bbb_48000hz_2ch_100kbps_opus_30sec.webm"

	FixtureHR    = "decode_hr.yuv"
	FixtureLR    = "decode_lr.yuv"
	FixtureAudio = "decode_audio.raw"
)

// Encoder bitrates.
const (
	DefaultVideoBitRate = 8000000
	MinVideoBitRate     = 600000
	DefaultAudioBitRate = 128000
)

// Decode assets.
const (
	AudioAAC    = "bbb_44100hz_2ch_128kbps_aac_30sec.mp4"
	AudioMP3    = "bbb_44100hz_2ch_128kbps_mp3_30sec.mp3"
	AudioAMRNB  = "bbb_8000hz_1ch_8kbps_amrnb_30sec.3gp"
	AudioAMRWB  = "bbb_16000hz_1ch_9kbps_amrwb_30sec.3gp"
	AudioVorbis = "bbb_44100hz_2ch_80kbps_vorbis_30sec.mp4"
	AudioFLAC   = "bbb_44100hz_2ch_600kbps_flac_30sec.mp4"
	AudioOpus   = "bbb_48000hz_2ch_100kbps_opus_30sec.webm"

	VideoVP9    = "crowd_1920x1080_25fps_4000kbps_vp9.webm"
	VideoVP8    = "crowd_1920x1080_25fps_4000kbps_vp8.webm"
	VideoAV1    = "crowd_1920x1080_25fps_4000kbps_av1.webm"
	VideoMPEG2  = "crowd_1920x1080_25fps_7300kbps_mpeg2.mp4"
	VideoMPEG4  = "crowd_1920x1080_25fps_6000kbps_mpeg4.mp4"
	VideoH263   = "crowd_352x288_25fps_6000kbps_h263.3gp"
	VideoAVC    = "crowd_1920x1080_25fps_6700kbps_h264.ts"
	VideoHEVC   = "crowd_1920x1080_25fps_4000kbps_h265.mkv"
)

// decodeTable is every audio asset in sync then async mode, followed by the
// video assets in four groups: sync default, sync named, async default,
// async named. Named codecs are the software decoders of the reference
// platform; the backend maps them to its own decoder for the mime.
var decodeTable = []Case{
	{Kind: KindDecode, Input: AudioAAC, Mode: media.ModeSync},
	{Kind: KindDecode, Input: AudioMP3, Mode: media.ModeSync},
	{Kind: KindDecode, Input: AudioAMRNB, Mode: media.ModeSync},
	{Kind: KindDecode, Input: AudioAMRWB, Mode: media.ModeSync},
	{Kind: KindDecode, Input: AudioVorbis, Mode: media.ModeSync},
	{Kind: KindDecode, Input: AudioFLAC, Mode: media.ModeSync},
	{Kind: KindDecode, Input: AudioOpus, Mode: media.ModeSync},

	{Kind: KindDecode, Input: AudioAAC, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: AudioMP3, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: AudioAMRNB, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: AudioAMRWB, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: AudioVorbis, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: AudioFLAC, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: AudioOpus, Mode: media.ModeAsync},

	{Kind: KindDecode, Input: VideoVP9, Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoVP8, Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoAV1, Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoMPEG2, Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoMPEG4, Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoH263, Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoAVC, Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoHEVC, Mode: media.ModeSync},

	{Kind: KindDecode, Input: VideoVP9, Codec: "c2.android.vp9.decoder", Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoVP8, Codec: "c2.android.vp8.decoder", Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoAV1, Codec: "c2.android.av1.decoder", Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoMPEG2, Codec: "c2.android.mpeg2.decoder", Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoMPEG4, Codec: "c2.android.mpeg4.decoder", Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoH263, Codec: "c2.android.h263.decoder", Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoAVC, Codec: "c2.android.avc.decoder", Mode: media.ModeSync},
	{Kind: KindDecode, Input: VideoHEVC, Codec: "c2.android.hevc.decoder", Mode: media.ModeSync},

	{Kind: KindDecode, Input: VideoVP9, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoVP8, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoAV1, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoMPEG2, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoMPEG4, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoH263, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoAVC, Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoHEVC, Mode: media.ModeAsync},

	{Kind: KindDecode, Input: VideoVP9, Codec: "c2.android.vp9.decoder", Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoVP8, Codec: "c2.android.vp8.decoder", Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoAV1, Codec: "c2.android.av1.decoder", Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoMPEG2, Codec: "c2.android.mpeg2.decoder", Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoMPEG4, Codec: "c2.android.mpeg4.decoder", Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoH263, Codec: "c2.android.h263.decoder", Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoAVC, Codec: "c2.android.avc.decoder", Mode: media.ModeAsync},
	{Kind: KindDecode, Input: VideoHEVC, Codec: "c2.android.hevc.decoder", Mode: media.ModeAsync},
}

// DecodeCases returns the decode table.
func DecodeCases() []Case {
	return append([]Case(nil), decodeTable...)
}

func audioEncode(mime string, rate, channels int) Case {
	return Case{
		Kind: KindEncode, Input: FixtureAudio, Mime: mime, BitRate: DefaultAudioBitRate,
		Width: NA, Height: NA, FrameInterval: NA, Profile: NA, Level: NA,
		SampleRate: rate, Channels: channels,
	}
}

func videoEncode(input, mime string, bitrate, w, h int) Case {
	return Case{
		Kind: KindEncode, Input: input, Mime: mime, BitRate: bitrate,
		Width: w, Height: h, FrameInterval: 1, Profile: NA, Level: NA,
		SampleRate: NA, Channels: NA,
	}
}

// EncodeCases returns the encode table. Inputs are the session fixtures.
func EncodeCases() []Case {
	return []Case{
		audioEncode(media.MimeAAC, 44100, 2),
		audioEncode(media.MimeAMRNB, 8000, 1),
		audioEncode(media.MimeAMRWB, 16000, 1),
		audioEncode(media.MimeFLAC, 44100, 2),
		audioEncode(media.MimeOpus, 48000, 2),

		videoEncode(FixtureHR, media.MimeVP8, DefaultVideoBitRate, 1920, 1080),
		videoEncode(FixtureHR, media.MimeAVC, DefaultVideoBitRate, 1920, 1080),
		videoEncode(FixtureHR, media.MimeHEVC, DefaultVideoBitRate, 1920, 1080),
		videoEncode(FixtureHR, media.MimeVP9, DefaultVideoBitRate, 1920, 1080),
		videoEncode(FixtureLR, media.MimeMPEG4, MinVideoBitRate, 176, 144),
		videoEncode(FixtureLR, media.MimeH263, MinVideoBitRate, 176, 144),
	}
}

// ExtractCases returns one case per video asset.
func ExtractCases() []Case {
	return []Case{
		{Kind: KindExtract, Input: VideoVP9},
		{Kind: KindExtract, Input: VideoVP8},
		{Kind: KindExtract, Input: VideoAV1},
		{Kind: KindExtract, Input: VideoMPEG2},
		{Kind: KindExtract, Input: VideoMPEG4},
		{Kind: KindExtract, Input: VideoH263},
		{Kind: KindExtract, Input: VideoAVC},
		{Kind: KindExtract, Input: VideoHEVC},
	}
}

// Fixture is a raw encoder input decoded from a compressed asset at session
// start.
type Fixture struct {
	Source string
	Output string
}

// Fixtures lists the session fixtures in preparation order.
func Fixtures() []Fixture {
	return []Fixture{
		{FixtureHRInput, FixtureHR},
		{FixtureLRInput, FixtureLR},
		{FixtureAudioInput, FixtureAudio},
	}
}
