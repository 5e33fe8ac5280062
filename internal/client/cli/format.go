package cli

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFileSize renders n bytes with one decimal in the largest binary unit
// not exceeding it, e.g. 1536 -> "1.5 KB".
func FormatFileSize(n int64) string {
	if n == 0 {
		return "0 B"
	}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(sizeUnits)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[i])
}
