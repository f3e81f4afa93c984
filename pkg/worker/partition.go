package worker

import (
	"strings"
)

// partitionRange computes the half-open character range [start, end) of
// text assigned to partition `part` out of `total`, per spec §4.5. The
// boundary is always adjusted forward (never backward) to the next
// whitespace character so no word is split across partitions.
func partitionRange(runes []rune, part, total int) (start, end int) {
	l := len(runes)
	start = l * part / total
	end = l * (part + 1) / total

	if part > 0 && start > 0 && !isSpace(runes[start-1]) {
		for start < l && !isSpace(runes[start]) {
			start++
		}
	}
	if part < total-1 && end > 0 && !isSpace(runes[end-1]) {
		for end < l && !isSpace(runes[end]) {
			end++
		}
	}
	return start, end
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// countPartitionWords counts whitespace-separated non-empty tokens in the
// slice of text assigned to partition (part, total) of the full text.
func countPartitionWords(text string, part, total int) int {
	runes := []rune(text)
	start, end := partitionRange(runes, part, total)
	slice := string(runes[start:end])
	return len(strings.Fields(slice))
}
