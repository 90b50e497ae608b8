package utils

import (
	"fmt"
	"math"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatFileSize converts a byte length into a human-readable string such as
// "512 B", "4.00 KB" or "1.20 MB". A value that rounds to 1024.00 moves to the
// next unit.
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	if bytes < 1024 {
		return fmt.Sprintf("%d %s", bytes, sizeUnits[0])
	}
	value := float64(bytes)
	unitIndex := 0
	for roundHundredths(value) >= 1024 && unitIndex < len(sizeUnits)-1 {
		value /= 1024
		unitIndex++
	}
	return fmt.Sprintf("%.2f %s", roundHundredths(value), sizeUnits[unitIndex])
}

func roundHundredths(value float64) float64 {
	return math.Round(value*100) / 100
}
