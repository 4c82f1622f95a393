package player

import (
	"fmt"
	"math"
)

// FormatTime formats a number of seconds as "MM:SS". Fractions of seconds are
// truncated. Negative and non-finite values yield "00:00".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "00:00"
	}
	minutes := math.Floor(seconds / 60)
	remaining := math.Floor(math.Mod(seconds, 60))
	return fmt.Sprintf("%02d:%02d", int64(minutes), int64(remaining))
}

// FormatProgress formats the elapsed and total time as shown next to the
// seek bar.
func FormatProgress(current, duration float64) string {
	return FormatTime(current) + " / " + FormatTime(duration)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
