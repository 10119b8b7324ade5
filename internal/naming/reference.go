package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// VideoReference builds the statistics key for a video run:
// "<file>_<W>x<H>_<bitrate>bps".
func VideoReference(file string, width, height, bitrate int) string {
	return fmt.Sprintf("%s_%dx%d_%dbps", file, width, height, bitrate)
}

// AudioReference builds the statistics key for an audio run:
// "<file>_<rate>hz_<ch>ch_<bitrate>bps".
func AudioReference(file string, sampleRate, channels, bitrate int) string {
	return fmt.Sprintf("%s_%dhz_%dch_%dbps", file, sampleRate, channels, bitrate)
}

// CodecLabel is the codec name recorded for a run. The platform default
// codec is recorded as "default".
func CodecLabel(codec string) string {
	if codec == "" {
		return "default"
	}
	return codec
}

// CapturePath builds the output capture path for one run:
//
//	<outputDir>/<operation>/<reference>.<codec>.<mode>.<ext>
//
// Path separators in codec names are replaced so the result stays inside
// outputDir.
func CapturePath(outputDir, operation, reference, codec, mode, ext string) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(CodecLabel(codec))
	name := fmt.Sprintf("%s.%s.%s.%s", reference, safe, mode, ext)
	return filepath.Join(outputDir, operation, name)
}
