package extractor

import (
	"context"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/media"
)

// loadPackets builds sample tables from an ffprobe packet listing. Payloads
// are read from the file at each packet's reported position.
func loadPackets(ctx context.Context, path string, p PacketProber) (*table, error) {
	pr, err := p.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	pkts, err := p.Packets(ctx, path)
	if err != nil {
		return nil, err
	}

	var tracks []track
	index := map[int]int{}
	for _, s := range pr.Streams {
		if s.Mime() == "" {
			continue
		}
		f := s.MediaFormat()
		if f.DurationUs == 0 {
			f.DurationUs = pr.DurationUs()
		}
		index[s.Index] = len(tracks)
		tracks = append(tracks, track{format: f})
	}
	if len(tracks) == 0 {
		return nil, errors.New("no supported streams")
	}

	for _, pkt := range pkts {
		ti, ok := index[pkt.StreamIndex]
		if !ok {
			continue
		}
		if pkt.Pos < 0 {
			return nil, errors.Errorf("packet at %dus of stream %d has no file position", pkt.PTS, pkt.StreamIndex)
		}
		var flags media.Flag
		if pkt.Key {
			flags = media.FlagKeyFrame
		}
		tracks[ti].samples = append(tracks[ti].samples, sample{
			offset: pkt.Pos,
			size:   pkt.Size,
			pts:    pkt.PTS,
			flags:  flags,
		})
	}
	return newTable(tracks, pr.DurationUs()), nil
}
