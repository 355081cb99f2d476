package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/raxftp/raxftp"
)

const barWidth = 30

// renderProgress draws a single-line progress bar, rewritten in place
// with a carriage return on each update.
func renderProgress(p raxftp.Progress) {
	if p.Total < 0 {
		fmt.Fprintf(os.Stderr, "\r%s: %s (%s/s)",
			p.Path, formatBytes(p.Bytes), formatBytes(int64(p.Rate())))
		return
	}

	pct := p.Percent()
	filled := int(pct / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Fprintf(os.Stderr, "\r%s: [%s] %5.1f%% %s/%s",
		p.Path, bar, pct, formatBytes(p.Bytes), formatBytes(p.Total))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
