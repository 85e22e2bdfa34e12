package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/tanq16/splitdl/internal/utils"
)

// PrintProgressBar renders a fixed-width bar with the completed percentage.
func PrintProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		total = 1
	}
	current = max(0, min(current, total))
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	bar += strings.Repeat(" ", width-filled)
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%% %s ", bar, percent*100, StyleSymbols["bullet"]))
}

// progressLine is the stream line shown under an active download.
func progressLine(written, total int64, elapsed float64) string {
	sizes := fmt.Sprintf("%s / %s", humanize.IBytes(uint64(max(written, 0))), humanize.IBytes(uint64(max(total, 0))))
	return fmt.Sprintf("%s%s %s %s", PrintProgressBar(written, total, 30), debugStyle.Render(sizes), StyleSymbols["bullet"], debugStyle.Render(utils.FormatSpeed(written, elapsed)))
}

// IsTerminal reports whether stdout can host the live display.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func getTerminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24
	}
	return height
}
