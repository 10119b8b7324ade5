package stats

import (
	"strconv"
	"time"

	"github.com/backmassage/codecbench/internal/media"
)

// EncodeDurationScale multiplies the whole-second clip estimates used for
// encode runs. Existing result sets were produced with this scale.
const EncodeDurationScale = 10000

// Operations recorded in the operation column.
const (
	OpDecode  = "decode"
	OpEncode  = "encode"
	OpExtract = "extract"
)

// Result is one row of the statistics file.
type Result struct {
	Time       time.Time
	Reference  string
	Operation  string
	Codec      string
	Mode       string
	Status     int
	Timing     Timing
	TotalBytes int64
	ClipUs     int64   // Clip duration in microseconds (encode: scaled estimate).
	CPUPercent float64 // Average CPU usage during the run; negative when unknown.
}

// OK reports whether the run succeeded.
func (r Result) OK() bool { return r.Status == 0 }

// PerSecondOfContent is the processing time spent per second of clip.
func (r Result) PerSecondOfContent() time.Duration {
	if r.ClipUs <= 0 {
		return 0
	}
	return time.Duration(int64(r.Timing.Total) * 1000000 / r.ClipUs)
}

// Throughput is bytes processed per second of processing time.
func (r Result) Throughput() float64 {
	if r.Timing.Total <= 0 {
		return 0
	}
	return float64(r.TotalBytes) / r.Timing.Total.Seconds()
}

// VideoClipDuration estimates an encode clip length from raw 4:2:0 byte
// count: whole frames divided by frame rate, scaled by EncodeDurationScale.
func VideoClipDuration(totalBytes int64, frameSize, frameRate int) int64 {
	if frameSize <= 0 || frameRate <= 0 {
		return 0
	}
	frames := (totalBytes + int64(frameSize) - 1) / int64(frameSize)
	return frames / int64(frameRate) * EncodeDurationScale
}

// AudioClipDuration estimates an encode clip length from raw PCM byte
// count, scaled by EncodeDurationScale.
func AudioClipDuration(totalBytes int64, sampleRate, channels int) int64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return totalBytes / int64(sampleRate*channels) * EncodeDurationScale
}

// ClipDuration picks the video or audio estimate for format f.
func ClipDuration(f media.Format, totalBytes int64, frameSize int) int64 {
	if f.IsVideo() {
		return VideoClipDuration(totalBytes, frameSize, int(f.FrameRate))
	}
	return AudioClipDuration(totalBytes, f.SampleRate, f.Channels)
}

// Header is the fixed column header of the statistics file.
var Header = []string{
	"currentTime", "fileName", "operation", "codecName", "mode",
	"setupTime", "destroyTime", "minimumTime", "maximumTime", "averageTime",
	"timeToProcess1SecContent", "totalBytesProcessedPerSec", "timeToFirstFrame",
	"totalSizeInBytes", "totalTime", "cpuUsage", "status",
}

// Record renders r as CSV fields in [Header] order. Times are nanoseconds.
func (r Result) Record() []string {
	ns := func(d time.Duration) string { return strconv.FormatInt(int64(d), 10) }
	cpu := ""
	if r.CPUPercent >= 0 {
		cpu = strconv.FormatFloat(r.CPUPercent, 'f', 2, 64)
	}
	return []string{
		strconv.FormatInt(r.Time.UnixNano(), 10),
		r.Reference,
		r.Operation,
		r.Codec,
		r.Mode,
		ns(r.Timing.Setup),
		ns(r.Timing.Destroy),
		ns(r.Timing.Min),
		ns(r.Timing.Max),
		ns(r.Timing.Average),
		ns(r.PerSecondOfContent()),
		strconv.FormatFloat(r.Throughput(), 'f', 0, 64),
		ns(r.Timing.FirstFrame),
		strconv.FormatInt(r.TotalBytes, 10),
		ns(r.Timing.Total),
		cpu,
		strconv.Itoa(r.Status),
	}
}
