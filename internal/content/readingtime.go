package content

import (
	"fmt"
	"unicode/utf8"
)

const (
	slowCharsPerMinute = 900
	fastCharsPerMinute = 1200
)

// ReadingTime estimates how long a body of n characters takes to read.
// The low bound assumes 1200 characters a minute and the high bound 900.
// Bodies a slow reader finishes within a minute (n < 900) report
// "less than 1 minute"; from there on the low bound is at least 1.
func ReadingTime(n int) string {
	if n < slowCharsPerMinute {
		return "less than 1 minute"
	}
	low := max(n/fastCharsPerMinute, 1)
	high := n/slowCharsPerMinute + 1
	return fmt.Sprintf("%d-%d minutes", low, high)
}

// ReadingTimeOf counts the characters of body and estimates its reading time.
func ReadingTimeOf(body []byte) string {
	return ReadingTime(utf8.RuneCount(body))
}
