package media

// Flag is the per-frame flag bitmask.
type Flag uint32

const (
	FlagKeyFrame Flag = 1 << iota
	FlagCodecConfig
	FlagEndOfStream
)

// Has reports whether all bits of f2 are set in f.
func (f Flag) Has(f2 Flag) bool { return f&f2 == f2 }

// Frame is one sample as produced by an extractor or fed to an encoder.
// PTS is in microseconds. Offset is the byte offset of the sample within
// the source (the container for demuxed samples, the raw file for fixtures).
type Frame struct {
	Data   []byte
	Offset int64
	Size   int
	PTS    int64
	Flags  Flag
}

// TotalBytes sums Size over frames.
func TotalBytes(frames []Frame) int64 {
	var n int64
	for i := range frames {
		n += int64(frames[i].Size)
	}
	return n
}
