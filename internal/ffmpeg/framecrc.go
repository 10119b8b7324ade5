package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// frameLine is one data line of framecrc output:
//
//	0,          0,          0,     1024,     4096, 0x3b1f1a52
type frameLine struct {
	Stream   int
	DTS      int64
	PTS      int64
	Duration int64
	Size     int
	CRC      string
}

// streamHeader collects the "#key 0: value" comments framecrc prints
// before the first frame.
type streamHeader struct {
	MediaType     string
	CodecID       string
	Width         int
	Height        int
	SampleRate    int
	ChannelLayout string
}

// Channels derives a channel count from the layout name.
func (h streamHeader) Channels() int {
	switch h.ChannelLayout {
	case "":
		return 0
	case "mono":
		return 1
	case "stereo", "downmix":
		return 2
	case "2.1", "3.0":
		return 3
	case "quad", "4.0", "3.1":
		return 4
	case "5.0", "5.0(side)", "4.1":
		return 5
	case "5.1", "5.1(side)", "6.0":
		return 6
	case "7.1", "7.1(wide)":
		return 8
	}
	if n, ok := strings.CutSuffix(h.ChannelLayout, " channels"); ok {
		c, _ := strconv.Atoi(n)
		return c
	}
	return 0
}

func parseFrameLine(line string) (frameLine, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return frameLine{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	stream, err1 := strconv.Atoi(fields[0])
	dts, err2 := strconv.ParseInt(fields[1], 10, 64)
	pts, err3 := strconv.ParseInt(fields[2], 10, 64)
	dur, err4 := strconv.ParseInt(fields[3], 10, 64)
	size, err5 := strconv.Atoi(fields[4])
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return frameLine{}, false
		}
	}
	return frameLine{Stream: stream, DTS: dts, PTS: pts, Duration: dur, Size: size, CRC: fields[5]}, true
}

func (h *streamHeader) parseComment(line string) {
	// "#dimensions 0: 1920x1080"
	key, rest, ok := strings.Cut(strings.TrimPrefix(line, "#"), " ")
	if !ok {
		return
	}
	_, value, ok := strings.Cut(rest, ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	switch key {
	case "media_type":
		h.MediaType = value
	case "codec_id":
		h.CodecID = value
	case "dimensions":
		w, hh, _ := strings.Cut(value, "x")
		h.Width, _ = strconv.Atoi(w)
		h.Height, _ = strconv.Atoi(hh)
	case "sample_rate":
		h.SampleRate, _ = strconv.Atoi(value)
	case "channel_layout_name":
		h.ChannelLayout = value
	}
}

// scanFrameCRC reads framecrc output until EOF, calling onFrame for every
// data line of stream 0. It returns the parsed header.
func scanFrameCRC(r io.Reader, onFrame func(frameLine)) (streamHeader, error) {
	var h streamHeader
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			h.parseComment(line)
			continue
		}
		if fl, ok := parseFrameLine(line); ok && fl.Stream == 0 {
			onFrame(fl)
		}
	}
	return h, sc.Err()
}
