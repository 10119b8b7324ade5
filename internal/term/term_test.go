package term

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/codecbench/internal/config"
)

func TestConfigure(t *testing.T) {
	defer Configure(config.ColorNever)

	Configure(config.ColorAlways)
	assert.True(t, Enabled())
	assert.Contains(t, Red.Sprint("x"), "\x1b[")

	Configure(config.ColorNever)
	assert.False(t, Enabled())
	assert.Equal(t, "x", Red.Sprint("x"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(nil))

	f, err := os.CreateTemp(t.TempDir(), "plain")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	assert.False(t, IsTerminal(f))
}
