package admission

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ANSI color codes for hook output. git relays hook stdout to the pushing
// client's terminal, so color works end to end.
const (
	ansiRed   = 31
	ansiGreen = 32
)

const progressBarWidth = 32

func colorize(s string, code int) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, s)
}

// RenderStatus writes the success banner and a usage gauge showing current
// and maximum size with a fixed-width progress bar.
func RenderStatus(w io.Writer, sizeKB, maxSizeKB int64) {
	sizeMB := float64(sizeKB) / 1024
	maxMB := float64(maxSizeKB) / 1024

	percentage := 0
	if maxSizeKB > 0 {
		percentage = int(math.Round(sizeMB / maxMB * 100))
	}

	filled := int(math.Round(progressBarWidth * float64(percentage) / 100))
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", progressBarWidth-filled)

	fmt.Fprintln(w, colorize("Pushed to Git Server", ansiGreen))
	fmt.Fprint(w, colorize(fmt.Sprintf("[%s] Using %s / %sMB (%d%%)",
		bar, roundMB(sizeMB), roundMB(maxMB), percentage), ansiGreen))
}

// roundMB renders a size rounded to one decimal place, dropping a trailing
// zero the way the client-facing gauge has always shown it (20 not 20.0).
func roundMB(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

// RenderError writes the failure banner with msg framed in ASCII art, in
// red, to the pusher's terminal.
func RenderError(w io.Writer, msg string) {
	banner := strings.Join([]string{
		"_______________________________________________________________________",
		` ___  __   __   __   __`,
		`|__  |__) |__) /  \ |__)`,
		`|___ |  \ |  \ \__/ |  \`,
		"",
		msg,
		"_______________________________________________________________________",
	}, "\n")
	fmt.Fprint(w, colorize(banner, ansiRed))
}
