package extractor

import (
	"context"
	"io"

	"github.com/asticode/go-astits"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/media"
)

var tsStreamMimes = map[astits.StreamType]string{
	astits.StreamTypeH264Video:  media.MimeAVC,
	astits.StreamTypeH265Video:  media.MimeHEVC,
	astits.StreamTypeMPEG2Video: media.MimeMPEG2,
	astits.StreamTypeAACAudio:   media.MimeAAC,
	astits.StreamTypeMPEG1Audio: media.MimeMP3,
}

// loadMPEGTS demuxes every PES packet of the first program. One PES is one
// access unit; PTS is converted from the 90 kHz clock.
func loadMPEGTS(ctx context.Context, r io.Reader) (*table, error) {
	dmx := astits.NewDemuxer(ctx, r)

	var tracks []track
	index := map[uint16]int{}
	offsets := map[uint16]int64{}
	var first, last int64 = -1, 0

	for {
		d, err := dmx.NextData()
		if errors.Is(err, astits.ErrNoMorePackets) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "demux mpeg-ts")
		}

		if d.PMT != nil && len(tracks) == 0 {
			for _, es := range d.PMT.ElementaryStreams {
				mime, ok := tsStreamMimes[es.StreamType]
				if !ok {
					continue
				}
				index[es.ElementaryPID] = len(tracks)
				tracks = append(tracks, track{format: media.Format{Mime: mime}})
			}
			continue
		}
		if d.PES == nil {
			continue
		}
		ti, ok := index[d.PID]
		if !ok || len(d.PES.Data) == 0 {
			continue
		}

		tr := &tracks[ti]
		pts := int64(0)
		if n := len(tr.samples); n > 0 {
			pts = tr.samples[n-1].pts
		}
		if oh := d.PES.Header.OptionalHeader; oh != nil && oh.PTS != nil {
			pts = oh.PTS.Base * 100 / 9
		}
		if first < 0 || pts < first {
			first = pts
		}
		if pts > last {
			last = pts
		}

		flags := tsFlags(tr, d.PES.Data)
		tr.samples = append(tr.samples, sample{
			offset: offsets[d.PID],
			size:   len(d.PES.Data),
			pts:    pts,
			flags:  flags,
			data:   d.PES.Data,
		})
		offsets[d.PID] += int64(len(d.PES.Data))
	}
	if len(tracks) == 0 {
		return nil, errors.New("no supported elementary streams")
	}

	// Rebase timestamps to zero, matching the other containers.
	for i := range tracks {
		for j := range tracks[i].samples {
			tracks[i].samples[j].pts -= first
		}
		tsFinishFormat(&tracks[i])
	}
	return newTable(tracks, last-first), nil
}

// tsFlags marks key frames and picks up picture geometry from the first
// H.264 SPS.
func tsFlags(tr *track, data []byte) media.Flag {
	switch tr.format.Mime {
	case media.MimeAVC:
		var au h264.AnnexB
		if err := au.Unmarshal(data); err != nil {
			return 0
		}
		var flags media.Flag
		for _, nalu := range au {
			if len(nalu) == 0 {
				continue
			}
			switch h264.NALUType(nalu[0] & 0x1F) {
			case h264.NALUTypeIDR:
				flags |= media.FlagKeyFrame
			case h264.NALUTypeSPS:
				if tr.format.Width == 0 {
					var sps h264.SPS
					if sps.Unmarshal(nalu) == nil {
						tr.format.Width, tr.format.Height = sps.Width(), sps.Height()
					}
				}
			}
		}
		return flags
	case media.MimeHEVC:
		var au h264.AnnexB // Start codes are shared with H.265.
		if err := au.Unmarshal(data); err != nil {
			return 0
		}
		for _, nalu := range au {
			// IRAP pictures: BLA, IDR and CRA.
			if len(nalu) == 0 {
				continue
			}
			if t := (nalu[0] >> 1) & 0x3F; t >= 16 && t <= 21 {
				return media.FlagKeyFrame
			}
		}
		return 0
	}
	return media.FlagKeyFrame
}

func tsFinishFormat(tr *track) {
	n := len(tr.samples)
	if n < 2 {
		return
	}
	lo, hi := tr.samples[0].pts, tr.samples[0].pts
	for _, s := range tr.samples {
		lo, hi = min(lo, s.pts), max(hi, s.pts)
	}
	span := hi - lo
	if span <= 0 {
		return
	}
	tr.format.DurationUs = span
	if tr.format.IsVideo() {
		tr.format.FrameRate = float64(n-1) * 1e6 / float64(span)
	}
}
