package stages

import (
	"math"
	"reflect"
	"testing"
)

func TestDetectCutsNoOutliers(t *testing.T) {
	diffs := []int{0, 0, 0, 100, 0, 0, 0, 500, 0, 0}
	cuts := DetectCuts(diffs)
	if len(cuts) != 0 {
		t.Fatalf("expected no cuts, got %v", cuts)
	}
	if cuts == nil {
		t.Fatalf("cuts must be an empty slice, not nil")
	}
}

func TestDetectCutsSingleSpike(t *testing.T) {
	diffs := make([]int, 41)
	diffs[20] = 10000
	cuts := DetectCuts(diffs)
	if !reflect.DeepEqual(cuts, []int{20}) {
		t.Fatalf("want [20], got %v", cuts)
	}
}

func TestDetectCutsThresholdIsExact(t *testing.T) {
	diffs := []int{0, 0, 0, 100, 0, 0, 0, 500, 0, 0, 10000, 0, 0}
	mean := 0.0
	for _, d := range diffs {
		mean += float64(d)
	}
	mean /= float64(len(diffs))
	variance := 0.0
	for _, d := range diffs {
		delta := float64(d) - mean
		variance += delta * delta
	}
	variance /= float64(len(diffs))
	threshold := mean + 5*math.Sqrt(variance)

	marked := map[int]bool{}
	for _, c := range DetectCuts(diffs) {
		marked[c] = true
	}
	for i, d := range diffs {
		if (float64(d) > threshold) != marked[i] {
			t.Fatalf("index %d (value %d) mismatch against threshold %v", i, d, threshold)
		}
	}
}

func TestDetectCutsEmpty(t *testing.T) {
	if cuts := DetectCuts(nil); len(cuts) != 0 {
		t.Fatalf("expected empty, got %v", cuts)
	}
}
