package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{StatusOK, "ok"},
		{StatusUnsupported, "unsupported"},
		{StatusInvalidObject, "invalid-object"},
		{StatusUnknown, "unknown"},
		{Status(42), "Status(42)"},
		{Status(-1), "Status(-1)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.s.String())
	}
	assert.True(t, StatusOK.OK())
	assert.False(t, StatusIO.OK())
}
