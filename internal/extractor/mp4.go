package extractor

import (
	"encoding/binary"
	"io"

	"github.com/abema/go-mp4"
	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/media"
)

// 3GPP sample entries go-mp4 does not register on its own.
var (
	boxTypeSamr = mp4.StrToBoxType("samr")
	boxTypeSawb = mp4.StrToBoxType("sawb")
	boxTypeS263 = mp4.StrToBoxType("s263")
	boxTypeFLAC = mp4.StrToBoxType("fLaC")
	boxTypeDfLa = mp4.StrToBoxType("dfLa")
)

func init() {
	mp4.AddAnyTypeBoxDef(&mp4.AudioSampleEntry{}, boxTypeSamr)
	mp4.AddAnyTypeBoxDef(&mp4.AudioSampleEntry{}, boxTypeSawb)
	mp4.AddAnyTypeBoxDef(&mp4.AudioSampleEntry{}, boxTypeFLAC)
	mp4.AddAnyTypeBoxDef(&mp4.VisualSampleEntry{}, boxTypeS263)
}

// MPEG-4 object type indications found in esds.
const (
	otiMPEG4Video = 0x20
	otiAAC        = 0x40
	otiMPEG2AACLo = 0x66
	otiMPEG2AACHi = 0x68
	otiMPEG2VidLo = 0x60
	otiMPEG2VidHi = 0x65
	otiMP3        = 0x6B
	otiMPEG2MP3   = 0x69
	otiVorbis     = 0xDD
)

func stblPath(tail ...mp4.BoxType) mp4.BoxPath {
	return append(mp4.BoxPath{mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl()}, tail...)
}

// loadMP4 builds sample tables for every audio and video trak of an
// ISO-BMFF file (MP4, 3GP).
func loadMP4(r io.ReadSeeker) (*table, error) {
	info, err := mp4.Probe(r)
	if err != nil {
		return nil, errors.Wrap(err, "probe mp4")
	}
	traks, err := mp4.ExtractBox(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak()})
	if err != nil {
		return nil, errors.Wrap(err, "find traks")
	}
	if len(traks) != len(info.Tracks) {
		return nil, errors.Errorf("trak count mismatch: %d boxes, %d tracks", len(traks), len(info.Tracks))
	}

	var tracks []track
	for i, trak := range traks {
		tr, ok, err := loadMP4Track(r, trak, info.Tracks[i])
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", info.Tracks[i].TrackID)
		}
		if ok {
			tracks = append(tracks, tr)
		}
	}
	if len(tracks) == 0 {
		return nil, errors.New("no audio or video tracks")
	}

	var duration int64
	if info.Timescale > 0 {
		duration = int64(info.Duration * 1000000 / uint64(info.Timescale))
	}
	return newTable(tracks, duration), nil
}

func loadMP4Track(r io.ReadSeeker, trak *mp4.BoxInfo, pt *mp4.Track) (track, bool, error) {
	boxes, err := mp4.ExtractBoxesWithPayload(r, trak, []mp4.BoxPath{
		{mp4.BoxTypeMdia(), mp4.BoxTypeHdlr()},
		stblPath(mp4.BoxTypeStsz()),
		stblPath(mp4.BoxTypeStss()),
	})
	if err != nil {
		return track{}, false, err
	}

	var (
		handler string
		stsz    *mp4.Stsz
		stss    *mp4.Stss
	)
	for _, b := range boxes {
		switch p := b.Payload.(type) {
		case *mp4.Hdlr:
			handler = string(p.HandlerType[:])
		case *mp4.Stsz:
			stsz = p
		case *mp4.Stss:
			stss = p
		}
	}
	if handler != "vide" && handler != "soun" {
		return track{}, false, nil
	}

	format, err := mp4SampleFormat(r, trak)
	if err != nil {
		return track{}, false, err
	}
	if pt.Timescale > 0 {
		format.DurationUs = int64(pt.Duration * 1000000 / uint64(pt.Timescale))
	}

	samples := mp4Samples(pt, stsz, stss)
	if format.IsVideo() && format.DurationUs > 0 && len(samples) > 0 {
		format.FrameRate = float64(len(samples)) * 1e6 / float64(format.DurationUs)
	}
	return track{format: format, samples: samples}, true, nil
}

// mp4Samples flattens the chunk and sample tables into file offsets and
// microsecond presentation times.
func mp4Samples(pt *mp4.Track, stsz *mp4.Stsz, stss *mp4.Stss) []sample {
	sizeOf := func(i int) int {
		if stsz != nil && stsz.SampleSize != 0 {
			return int(stsz.SampleSize)
		}
		return int(pt.Samples[i].Size)
	}

	sync := map[uint32]bool{}
	if stss != nil {
		for _, n := range stss.SampleNumber {
			sync[n] = true
		}
	}

	toUs := func(ticks int64) int64 {
		if pt.Timescale == 0 {
			return 0
		}
		return ticks * 1000000 / int64(pt.Timescale)
	}

	out := make([]sample, 0, len(pt.Samples))
	var dts int64
	i := 0
	for _, chunk := range pt.Chunks {
		offset := int64(chunk.DataOffset)
		for j := uint32(0); j < chunk.SamplesPerChunk && i < len(pt.Samples); j++ {
			s := pt.Samples[i]
			size := sizeOf(i)
			var flags media.Flag
			if stss == nil || sync[uint32(i+1)] {
				flags |= media.FlagKeyFrame
			}
			out = append(out, sample{
				offset: offset,
				size:   size,
				pts:    toUs(dts + s.CompositionTimeOffset),
				flags:  flags,
			})
			offset += int64(size)
			dts += int64(s.TimeDelta)
			i++
		}
	}
	return out
}

// mp4SampleFormat reads the first sample entry of the trak's stsd and its
// decoder configuration child box.
func mp4SampleFormat(r io.ReadSeeker, trak *mp4.BoxInfo) (media.Format, error) {
	entries, err := mp4.ExtractBoxWithPayload(r, trak, stblPath(mp4.BoxTypeStsd(), mp4.BoxTypeAny()))
	if err != nil {
		return media.Format{}, errors.Wrap(err, "read sample entry")
	}
	if len(entries) == 0 {
		return media.Format{}, errors.New("empty stsd")
	}
	entry := entries[0]

	var f media.Format
	switch se := entry.Payload.(type) {
	case *mp4.VisualSampleEntry:
		f.Width, f.Height = int(se.Width), int(se.Height)
	case *mp4.AudioSampleEntry:
		f.Channels = int(se.ChannelCount)
		f.SampleRate = int(se.SampleRate >> 16)
	}

	children, err := mp4.ExtractBox(r, &entry.Info, mp4.BoxPath{mp4.BoxTypeAny()})
	if err != nil {
		return media.Format{}, errors.Wrap(err, "read sample entry children")
	}
	child := func(bt mp4.BoxType) *mp4.BoxInfo {
		for _, c := range children {
			if c.Type == bt {
				return c
			}
		}
		return nil
	}

	switch entry.Info.Type {
	case mp4.BoxTypeAvc1():
		f.Mime = media.MimeAVC
		f.CodecPrivate, err = boxPayload(r, child(mp4.BoxTypeAvcC()))
	case mp4.BoxTypeHvc1(), mp4.BoxTypeHev1():
		f.Mime = media.MimeHEVC
		f.CodecPrivate, err = boxPayload(r, child(mp4.BoxTypeHvcC()))
	case mp4.BoxTypeVp08():
		f.Mime = media.MimeVP8
	case mp4.BoxTypeVp09():
		f.Mime = media.MimeVP9
	case mp4.BoxTypeAv01():
		f.Mime = media.MimeAV1
		f.CodecPrivate, err = boxPayload(r, child(mp4.BoxTypeAv1C()))
	case boxTypeS263:
		f.Mime = media.MimeH263
	case boxTypeSamr:
		f.Mime = media.MimeAMRNB
		f.SampleRate, f.Channels = 8000, 1
	case boxTypeSawb:
		f.Mime = media.MimeAMRWB
		f.SampleRate, f.Channels = 16000, 1
	case mp4.BoxTypeOpus():
		f.Mime = media.MimeOpus
		var dops []byte
		if dops, err = boxPayload(r, child(mp4.BoxTypeDOps())); err == nil && dops != nil {
			f.CodecPrivate = opusHead(dops)
		}
	case boxTypeFLAC:
		f.Mime = media.MimeFLAC
		var dfla []byte
		// dfLa is a full box: skip version and flags.
		if dfla, err = boxPayload(r, child(boxTypeDfLa)); err == nil && len(dfla) > 4 {
			f.CodecPrivate = append([]byte("fLaC"), dfla[4:]...)
		}
	case mp4.BoxTypeMp4v(), mp4.BoxTypeMp4a():
		err = readEsds(r, &entry.Info, &f)
	default:
		return f, errors.Errorf("unsupported sample entry %s", entry.Info.Type)
	}
	return f, err
}

// readEsds resolves the codec behind mp4v/mp4a from the object type
// indication and keeps the decoder specific info as codec private data.
func readEsds(r io.ReadSeeker, entry *mp4.BoxInfo, f *media.Format) error {
	boxes, err := mp4.ExtractBoxWithPayload(r, entry, mp4.BoxPath{mp4.BoxTypeEsds()})
	if err != nil {
		return errors.Wrap(err, "read esds")
	}
	if len(boxes) == 0 {
		return errors.New("missing esds")
	}
	esds := boxes[0].Payload.(*mp4.Esds)

	var oti byte
	for _, d := range esds.Descriptors {
		switch {
		case d.DecoderConfigDescriptor != nil:
			oti = d.DecoderConfigDescriptor.ObjectTypeIndication
		case d.Tag == mp4.DecSpecificInfoTag:
			f.CodecPrivate = d.Data
		}
	}

	switch {
	case oti == otiMPEG4Video:
		f.Mime = media.MimeMPEG4
	case oti >= otiMPEG2VidLo && oti <= otiMPEG2VidHi:
		f.Mime = media.MimeMPEG2
	case oti == otiAAC || (oti >= otiMPEG2AACLo && oti <= otiMPEG2AACHi):
		f.Mime = media.MimeAAC
	case oti == otiMP3 || oti == otiMPEG2MP3:
		f.Mime = media.MimeMP3
	case oti == otiVorbis:
		f.Mime = media.MimeVorbis
	default:
		return errors.Errorf("unsupported object type 0x%02x", oti)
	}
	return nil
}

func boxPayload(r io.ReadSeeker, bi *mp4.BoxInfo) ([]byte, error) {
	if bi == nil {
		return nil, nil
	}
	if _, err := bi.SeekToPayload(r); err != nil {
		return nil, err
	}
	buf := make([]byte, bi.Size-bi.HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(err, "read %s", bi.Type)
	}
	return buf, nil
}

// opusHead rewrites an ISO-BMFF dOps payload (big-endian) as the Ogg
// OpusHead identification header (little-endian) decoders expect.
func opusHead(dops []byte) []byte {
	if len(dops) < 11 {
		return nil
	}
	head := make([]byte, 0, 19+len(dops)-11)
	head = append(head, "OpusHead"...)
	head = append(head, 1, dops[1])
	head = binary.LittleEndian.AppendUint16(head, binary.BigEndian.Uint16(dops[2:4]))
	head = binary.LittleEndian.AppendUint32(head, binary.BigEndian.Uint32(dops[4:8]))
	head = binary.LittleEndian.AppendUint16(head, binary.BigEndian.Uint16(dops[8:10]))
	head = append(head, dops[10])
	return append(head, dops[11:]...)
}
