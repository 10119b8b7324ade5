package display

import (
	"fmt"
	"io"

	"github.com/backmassage/codecbench/internal/term"
)

// PrintBanner prints the ASCII art banner; magenta when colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, term.Magenta.Sprint(`               _           _                     _
  ___ ___   __| | ___  ___| |__   ___ _ __   ___| |__
 / __/ _ \ / _`+"`"+` |/ _ \/ __| '_ \ / _ \ '_ \ / __| '_ \
| (_| (_) | (_| |  __/ (__| |_) |  __/ | | | (__| | | |
 \___\___/ \__,_|\___|\___|_.__/ \___|_| |_|\___|_| |_|`))
}
