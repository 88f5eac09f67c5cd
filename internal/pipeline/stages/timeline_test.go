package stages

import (
	"math"
	"testing"

	"github.com/yungbote/clipforge-backend/internal/types"
)

func wordAt(i int, start, end float64) types.Word {
	return types.Word{Word: "w", Index: i, StartTime: start, EndTime: end}
}

func TestAdjustTimelineRemovesGaps(t *testing.T) {
	kept := []types.Word{
		wordAt(0, 10.0, 10.4),
		wordAt(1, 11.0, 11.3), // 0.6s gap
		wordAt(5, 20.0, 20.5), // large gap from a deleted span
	}
	adjusted := adjustTimeline(kept)

	if adjusted[0].StartTime != 0 {
		t.Fatalf("timeline must start at zero, got %v", adjusted[0].StartTime)
	}
	var total float64
	for i, w := range adjusted {
		if i > 0 && adjusted[i-1].EndTime != w.StartTime {
			t.Fatalf("gap between word %d and %d: %v != %v", i-1, i, adjusted[i-1].EndTime, w.StartTime)
		}
		total += w.EndTime - w.StartTime
	}
	want := 0.4 + 0.3 + 0.5
	if math.Abs(total-want) > 1e-9 {
		t.Fatalf("durations not preserved: got %v want %v", total, want)
	}
	if math.Abs(adjusted[len(adjusted)-1].EndTime-want) > 1e-9 {
		t.Fatalf("end of timeline %v, want %v", adjusted[len(adjusted)-1].EndTime, want)
	}
}

func TestBuildLinesGroupsAndClamps(t *testing.T) {
	// Second word runs past the next line's first word on purpose.
	words := []types.Word{
		wordAt(0, 0.0, 0.4),
		wordAt(1, 0.4, 0.8),
		wordAt(2, 0.8, 1.6),
		wordAt(3, 1.4, 1.8),
		wordAt(4, 1.8, 2.2),
	}
	lines := buildLines(words)

	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(lines))
	}
	if len(lines[0].Words) != 3 || len(lines[1].Words) != 2 {
		t.Fatalf("line sizes %d/%d, want 3/2", len(lines[0].Words), len(lines[1].Words))
	}
	if lines[0].YPosition != 0 || lines[1].YPosition != 1 {
		t.Fatalf("y positions %d/%d", lines[0].YPosition, lines[1].YPosition)
	}
	// Clamped to the next word's start.
	if lines[0].EndTime != 1.4 {
		t.Fatalf("line 0 end %v, want clamp to 1.4", lines[0].EndTime)
	}
	if got := lines[0].Words[2].EndTime; got != 1.4 {
		t.Fatalf("last word of line 0 end %v, want 1.4", got)
	}
	for i := 1; i < len(lines); i++ {
		if lines[i-1].EndTime > lines[i].StartTime {
			t.Fatalf("lines overlap: %v > %v", lines[i-1].EndTime, lines[i].StartTime)
		}
	}
	// Last line keeps its natural end.
	if lines[1].EndTime != 2.2 {
		t.Fatalf("line 1 end %v, want 2.2", lines[1].EndTime)
	}
}

func TestBuildLinesEmpty(t *testing.T) {
	if lines := buildLines(nil); len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
}
