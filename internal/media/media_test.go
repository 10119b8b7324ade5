package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("SYNC")
	require.NoError(t, err)
	assert.Equal(t, ModeSync, m)

	m, err = ParseMode(" async ")
	require.NoError(t, err)
	assert.Equal(t, ModeAsync, m)

	_, err = ParseMode("callback")
	assert.Error(t, err)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "sync", ModeSync.String())
	assert.Equal(t, "async", ModeAsync.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestAllModesOrder(t *testing.T) {
	assert.Equal(t, []Mode{ModeAsync, ModeSync}, AllModes)
}

func TestFlagHas(t *testing.T) {
	f := FlagKeyFrame | FlagEndOfStream
	assert.True(t, f.Has(FlagKeyFrame))
	assert.True(t, f.Has(FlagEndOfStream))
	assert.False(t, f.Has(FlagCodecConfig))
	assert.True(t, f.Has(FlagKeyFrame|FlagEndOfStream))
}

func TestTotalBytes(t *testing.T) {
	frames := []Frame{{Size: 10}, {Size: 0}, {Size: 32}}
	assert.Equal(t, int64(42), TotalBytes(frames))
	assert.Zero(t, TotalBytes(nil))
}

func TestFormatKind(t *testing.T) {
	assert.True(t, Format{Mime: MimeHEVC}.IsVideo())
	assert.False(t, Format{Mime: MimeHEVC}.IsAudio())
	assert.True(t, Format{Mime: MimeOpus}.IsAudio())
	assert.False(t, Format{}.IsVideo())
}

func TestRawVideoFrameSize(t *testing.T) {
	assert.Equal(t, 38016, RawVideoFrameSize(176, 144))
	assert.Equal(t, 3110400, RawVideoFrameSize(1920, 1080))
}
