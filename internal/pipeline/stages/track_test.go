package stages

import (
	"testing"

	"github.com/yungbote/clipforge-backend/internal/types"
)

func fullBox(x int) types.Box {
	return types.Box{X: x, Y: 0, Width: 1080, Height: 1920}
}

func TestExpandBoxTrackInterpolates(t *testing.T) {
	processed := []types.Box{fullBox(0), fullBox(100)}
	out := expandBoxTrack(processed, 5, nil, 5)

	if len(out) != 6 {
		t.Fatalf("want coverage of frames 0..5, got %d entries", len(out))
	}
	if out[3].X != 60 {
		t.Fatalf("frame 3 x = %d, want 60", out[3].X)
	}
	if out[0].X != 0 || out[5].X != 100 {
		t.Fatalf("endpoints %d/%d, want 0/100", out[0].X, out[5].X)
	}
	for _, b := range out {
		if b.Width != 1080 || b.Height != 1920 {
			t.Fatalf("constant dimensions must survive interpolation: %+v", b)
		}
	}
}

func TestExpandBoxTrackReplicatesAcrossCut(t *testing.T) {
	processed := []types.Box{fullBox(0), fullBox(100)}
	out := expandBoxTrack(processed, 5, []int{3}, 5)

	for k := 0; k < 5; k++ {
		if out[k].X != 0 {
			t.Fatalf("frame %d x = %d, want replication (0) across the cut", k, out[k].X)
		}
	}
	if out[5].X != 100 {
		t.Fatalf("frame 5 x = %d, want 100", out[5].X)
	}
}

func TestExpandBoxTrackPadsToTotal(t *testing.T) {
	processed := []types.Box{fullBox(40)}
	out := expandBoxTrack(processed, 5, nil, 12)
	if len(out) != 13 {
		t.Fatalf("want 13 entries, got %d", len(out))
	}
	for i, b := range out {
		if b.X != 40 {
			t.Fatalf("frame %d x = %d, want 40", i, b.X)
		}
	}
}

func TestExpandValueTrackInterpolates(t *testing.T) {
	out := expandValueTrack([]float64{0, 10}, 5, nil, 5)
	if len(out) != 6 {
		t.Fatalf("want 6 entries, got %d", len(out))
	}
	if out[3] != 6 {
		t.Fatalf("frame 3 = %v, want 6", out[3])
	}
}

func TestSmoothBoxTrackConstantUnchanged(t *testing.T) {
	track := make([]types.Box, 30)
	for i := range track {
		track[i] = fullBox(200)
	}
	out := smoothBoxTrack(track, nil)
	for i, b := range out {
		if b != track[i] {
			t.Fatalf("constant track changed at %d: %+v", i, b)
		}
	}
}

func TestSmoothBoxTrackRespectsCuts(t *testing.T) {
	// 0..9 at x=0, 10..19 at x=1000, cut at 10: no bleed across the cut.
	track := make([]types.Box, 20)
	for i := range track {
		if i < 10 {
			track[i] = fullBox(0)
		} else {
			track[i] = fullBox(1000)
		}
	}
	out := smoothBoxTrack(track, []int{10})
	if out[9].X != 0 {
		t.Fatalf("frame 9 x = %d, smoothed across the cut", out[9].X)
	}
	if out[10].X != 1000 {
		t.Fatalf("frame 10 x = %d, smoothed across the cut", out[10].X)
	}
}

func TestSegmentRuns(t *testing.T) {
	runs := segmentRuns(100, []int{30, 70})
	want := [][2]int{{0, 30}, {30, 70}, {70, 100}}
	if len(runs) != len(want) {
		t.Fatalf("got %v", runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("run %d = %v, want %v", i, runs[i], want[i])
		}
	}
}

func TestSegmentIndex(t *testing.T) {
	cuts := []int{10, 20}
	cases := []struct{ frame, want int }{
		{0, 0}, {9, 0}, {10, 1}, {15, 1}, {20, 2}, {99, 2},
	}
	for _, c := range cases {
		if got := segmentIndex(c.frame, cuts); got != c.want {
			t.Fatalf("segmentIndex(%d) = %d, want %d", c.frame, got, c.want)
		}
	}
}
