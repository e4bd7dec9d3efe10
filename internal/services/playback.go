package services

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Narration pace used to estimate a podcast's length from its script.
const wordsPerMinute = 150

// SeekPosition converts a scrub position in percent to seconds. The percent is
// clamped to [0, 100].
func SeekPosition(percent float64, duration time.Duration) time.Duration {
	if math.IsNaN(percent) || percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return time.Duration(float64(duration) * percent / 100)
}

// FormatTime renders seconds as m:ss.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// EstimatedDuration guesses the spoken length of a script.
func EstimatedDuration(script string) time.Duration {
	words := len(strings.Fields(script))
	return time.Duration(words) * time.Minute / wordsPerMinute
}
