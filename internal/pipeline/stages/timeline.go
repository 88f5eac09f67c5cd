package stages

import (
	"math"

	"github.com/yungbote/clipforge-backend/internal/types"
)

// linesWordCap is the maximum number of words per rendered caption line.
const linesWordCap = 3

// adjustTimeline maps kept words onto a gapless local timeline starting at
// zero: every gap between one kept word's end and the next kept word's start
// is removed, word durations are preserved.
func adjustTimeline(kept []types.Word) []types.Word {
	out := make([]types.Word, len(kept))
	cursor := 0.0
	for i, w := range kept {
		duration := w.EndTime - w.StartTime
		if duration < 0 {
			duration = 0
		}
		w.StartTime = cursor
		w.EndTime = cursor + duration
		cursor = w.EndTime
		out[i] = w
	}
	return out
}

// buildLines groups adjusted words into caption lines of at most linesWordCap
// words. Every line except the last has its end time (and its last word's end
// time) clamped to the next word's start time; y positions increase per line
// for caption stacking.
func buildLines(words []types.Word) []types.Line {
	var lines []types.Line
	for start := 0; start < len(words); start += linesWordCap {
		end := start + linesWordCap
		if end > len(words) {
			end = len(words)
		}
		group := make([]types.Word, end-start)
		copy(group, words[start:end])
		line := types.Line{
			Words:     group,
			StartTime: group[0].StartTime,
			EndTime:   group[len(group)-1].EndTime,
			YPosition: len(lines),
		}
		if end < len(words) {
			next := words[end].StartTime
			line.EndTime = math.Min(line.EndTime, next)
			last := len(line.Words) - 1
			line.Words[last].EndTime = math.Min(line.Words[last].EndTime, next)
		}
		lines = append(lines, line)
	}
	return lines
}
