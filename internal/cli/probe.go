package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/backmassage/codecbench/internal/display"
	"github.com/backmassage/codecbench/internal/extractor"
	"github.com/backmassage/codecbench/internal/ffmpeg"
	"github.com/backmassage/codecbench/internal/matrix"
	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/naming"
	"github.com/backmassage/codecbench/internal/probe"
)

func newProbeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <asset>...",
		Short: "Print the tracks the extractor finds in each asset",
		Example: `  codecbench probe bbb_44100hz_2ch_128kbps_aac_30sec.mp4
  codecbench probe --ffprobe /opt/ffmpeg/bin/ffprobe clip.avi`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				if err := a.probeAsset(cmd, path); err != nil {
					a.log.Error("%s: %v", path, err)
					failed = true
				}
			}
			if failed {
				return errFailed
			}
			return nil
		},
	}
}

// trackSummary is what probe reports for one track.
type trackSummary struct {
	format media.Format
	frames int
	bytes  int64
}

func (a *app) probeAsset(cmd *cobra.Command, path string) error {
	opts := []extractor.Option{extractor.WithProber(probe.New(a.cfg.FFprobePath))}
	if f, ok := rawFixtureFormat(path); ok {
		opts = append(opts, extractor.WithRawFormat(f))
	}
	ex, err := extractor.Open(cmd.Context(), path, opts...)
	if err != nil {
		return err
	}
	defer ex.Close()

	var tracks []trackSummary
	for i := 0; i < ex.TrackCount(); i++ {
		frames, format, err := extractor.Drain(ex, i)
		if err != nil {
			return err
		}
		// The trailing end-of-stream marker is not a sample.
		tracks = append(tracks, trackSummary{format: format, frames: len(frames) - 1, bytes: media.TotalBytes(frames)})
	}

	asset := naming.ParseAsset(path)
	if !declaredTrackPresent(asset, tracks) {
		a.log.Warn("%s: name declares %s but no track carries it", asset.File, asset.Mime())
	}

	fmt.Fprintln(a.out, probeHeading(path, asset, usDuration(ex.ClipDuration())))
	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		rows[i] = []string{
			fmt.Sprint(i),
			t.format.Mime,
			describeFormat(t.format),
			fmt.Sprint(t.frames),
			display.FormatBytes(t.bytes),
		}
	}
	return display.RenderTable(a.out, []string{"TRACK", "MIME", "FORMAT", "SAMPLES", "SIZE"}, rows)
}

// rawFixtureFormat describes a session fixture by name. Its layout is the
// one declared by the compressed asset it is decoded from.
func rawFixtureFormat(path string) (media.Format, bool) {
	name := filepath.Base(path)
	for _, fx := range matrix.Fixtures() {
		if fx.Output != name {
			continue
		}
		src := naming.ParseAsset(fx.Source)
		if src.Width > 0 {
			return media.Format{
				Mime:        media.MimeRawVideo,
				Width:       src.Width,
				Height:      src.Height,
				FrameRate:   float64(src.FrameRate),
				ColorFormat: ffmpeg.DefaultPixelFormat,
			}, true
		}
		return media.Format{
			Mime:         media.MimeRawAudio,
			SampleRate:   src.SampleRate,
			Channels:     src.Channels,
			SampleFormat: "s16",
		}, true
	}
	return media.Format{}, false
}

// probeHeading names the asset with its duration and, when the file name
// declares one, its nominal bitrate.
func probeHeading(path string, asset naming.Asset, d time.Duration) string {
	h := fmt.Sprintf("%s (%s", path, display.FormatDuration(d))
	if bps := asset.BitrateBps(); bps > 0 {
		h += ", " + display.FormatBitrateLabel(int64(bps)) + " nominal"
	}
	return h + ")"
}

// declaredTrackPresent reports whether a track matches the codec the asset
// name declares. Names without a known codec token always match.
func declaredTrackPresent(asset naming.Asset, tracks []trackSummary) bool {
	want := asset.Mime()
	if want == "" {
		return true
	}
	for _, t := range tracks {
		if t.format.Mime == want {
			return true
		}
	}
	return false
}

func describeFormat(f media.Format) string {
	if f.IsVideo() {
		if f.FrameRate > 0 {
			return fmt.Sprintf("%dx%d @ %.3g fps", f.Width, f.Height, f.FrameRate)
		}
		return fmt.Sprintf("%dx%d", f.Width, f.Height)
	}
	return fmt.Sprintf("%d Hz, %d ch", f.SampleRate, f.Channels)
}

func usDuration(us int64) time.Duration { return time.Duration(us) * time.Microsecond }
