package confirm

import (
	"fmt"
	"time"
)

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func formatSize(bytes int64) string {
	const mib = 1024 * 1024
	if bytes <= 0 {
		return "-"
	}
	if bytes < mib {
		return fmt.Sprintf("%d KiB", bytes/1024)
	}
	return fmt.Sprintf("%.1f MiB", float64(bytes)/mib)
}
