package stages

import (
	"math"
	"testing"

	"github.com/yungbote/clipforge-backend/internal/types"
)

func TestWordSlicesClampsOverlap(t *testing.T) {
	kept := []types.Word{
		{Index: 0, StartTime: 0.0, EndTime: 0.6},
		{Index: 1, StartTime: 0.5, EndTime: 0.9}, // starts before the previous ends
		{Index: 2, StartTime: 1.2, EndTime: 1.5},
	}
	slices := WordSlices(kept)
	if len(slices) != 3 {
		t.Fatalf("want 3 slices, got %d", len(slices))
	}
	if slices[0].End != 0.5 {
		t.Fatalf("slice 0 end %v, want clamp to 0.5", slices[0].End)
	}
	for i := 1; i < len(slices); i++ {
		if slices[i-1].End > slices[i].Start {
			t.Fatalf("slices overlap: %v > %v", slices[i-1].End, slices[i].Start)
		}
	}
}

func TestWordSlicesDropsEmpty(t *testing.T) {
	kept := []types.Word{
		{Index: 0, StartTime: 1.0, EndTime: 1.0},
		{Index: 1, StartTime: 1.0, EndTime: 1.4},
	}
	slices := WordSlices(kept)
	if len(slices) != 1 {
		t.Fatalf("want 1 slice, got %d", len(slices))
	}
	if slices[0].Start != 1.0 || slices[0].End != 1.4 {
		t.Fatalf("slice %+v", slices[0])
	}
}

func TestWordSlicesTotalDuration(t *testing.T) {
	kept := []types.Word{
		{Index: 0, StartTime: 0.0, EndTime: 0.4},
		{Index: 1, StartTime: 0.4, EndTime: 0.7},
		{Index: 5, StartTime: 3.0, EndTime: 3.5},
	}
	var total float64
	for _, s := range WordSlices(kept) {
		total += s.End - s.Start
	}
	if math.Abs(total-1.2) > 1e-9 {
		t.Fatalf("total slice duration %v, want 1.2", total)
	}
}
