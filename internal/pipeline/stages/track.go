package stages

import (
	"math"

	"github.com/yungbote/clipforge-backend/internal/types"
)

// segmentIndex says which between-cuts run a frame belongs to: the number of
// cuts at or before it.
func segmentIndex(frame int, cuts []int) int {
	n := 0
	for _, c := range cuts {
		if c <= frame {
			n++
		}
	}
	return n
}

func lerpInt(a, b, k, steps int) int {
	return a + int(math.Round(float64(k)*float64(b-a)/float64(steps)))
}

func lerpBox(a, b types.Box, k, steps int) types.Box {
	return types.Box{
		X:      lerpInt(a.X, b.X, k, steps),
		Y:      lerpInt(a.Y, b.Y, k, steps),
		Width:  lerpInt(a.Width, b.Width, k, steps),
		Height: lerpInt(a.Height, b.Height, k, steps),
	}
}

// expandBoxTrack lifts a stride-subsampled rectangle track to full frame
// rate. Between consecutive processed frames in the same between-cuts run the
// rectangles are linearly interpolated in stride steps; across a cut, and at
// the end of the track, the last rectangle is replicated. The result covers
// frames 0..total inclusive.
func expandBoxTrack(processed []types.Box, stride int, cuts []int, total int) []types.Box {
	out := make([]types.Box, 0, total+1)
	for p := range processed {
		base := p * stride
		cur := processed[p]
		interpolate := p+1 < len(processed) &&
			segmentIndex(base, cuts) == segmentIndex((p+1)*stride, cuts)
		for k := 0; k < stride; k++ {
			if interpolate {
				out = append(out, lerpBox(cur, processed[p+1], k, stride))
			} else {
				out = append(out, cur)
			}
		}
	}
	if len(out) == 0 {
		return out
	}
	for len(out) < total+1 {
		out = append(out, out[len(out)-1])
	}
	return out
}

func expandTwoBoxTrack(processed []types.TwoBox, stride int, cuts []int, total int) []types.TwoBox {
	tops := make([]types.Box, len(processed))
	bottoms := make([]types.Box, len(processed))
	for i, tb := range processed {
		tops[i] = tb.Top
		bottoms[i] = tb.Bottom
	}
	topFull := expandBoxTrack(tops, stride, cuts, total)
	bottomFull := expandBoxTrack(bottoms, stride, cuts, total)
	out := make([]types.TwoBox, len(topFull))
	for i := range topFull {
		out[i] = types.TwoBox{Top: topFull[i], Bottom: bottomFull[i]}
	}
	return out
}

// expandValueTrack interpolates a per-processed-frame scalar the same way.
func expandValueTrack(processed []float64, stride int, cuts []int, total int) []float64 {
	out := make([]float64, 0, total+1)
	for p := range processed {
		base := p * stride
		cur := processed[p]
		interpolate := p+1 < len(processed) &&
			segmentIndex(base, cuts) == segmentIndex((p+1)*stride, cuts)
		for k := 0; k < stride; k++ {
			if interpolate {
				out = append(out, cur+float64(k)*(processed[p+1]-cur)/float64(stride))
			} else {
				out = append(out, cur)
			}
		}
	}
	if len(out) == 0 {
		return out
	}
	for len(out) < total+1 {
		out = append(out, out[len(out)-1])
	}
	return out
}

// smoothBoxTrack applies a centered moving average to each rectangle field
// within every between-cuts run. The window is a fifth of the run length, at
// least one frame.
func smoothBoxTrack(track []types.Box, cuts []int) []types.Box {
	out := make([]types.Box, len(track))
	copy(out, track)
	for _, run := range segmentRuns(len(track), cuts) {
		length := run[1] - run[0]
		window := length / 5
		if window < 1 {
			window = 1
		}
		half := window / 2
		for i := run[0]; i < run[1]; i++ {
			lo := i - half
			if lo < run[0] {
				lo = run[0]
			}
			hi := i + half
			if hi >= run[1] {
				hi = run[1] - 1
			}
			var sx, sy, sw, sh int
			for j := lo; j <= hi; j++ {
				sx += track[j].X
				sy += track[j].Y
				sw += track[j].Width
				sh += track[j].Height
			}
			n := hi - lo + 1
			out[i] = types.Box{
				X:      int(math.Round(float64(sx) / float64(n))),
				Y:      int(math.Round(float64(sy) / float64(n))),
				Width:  int(math.Round(float64(sw) / float64(n))),
				Height: int(math.Round(float64(sh) / float64(n))),
			}
		}
	}
	return out
}

func smoothTwoBoxTrack(track []types.TwoBox, cuts []int) []types.TwoBox {
	tops := make([]types.Box, len(track))
	bottoms := make([]types.Box, len(track))
	for i, tb := range track {
		tops[i] = tb.Top
		bottoms[i] = tb.Bottom
	}
	tops = smoothBoxTrack(tops, cuts)
	bottoms = smoothBoxTrack(bottoms, cuts)
	out := make([]types.TwoBox, len(track))
	for i := range out {
		out[i] = types.TwoBox{Top: tops[i], Bottom: bottoms[i]}
	}
	return out
}

// segmentRuns returns the half-open [start, end) frame runs delimited by cuts.
func segmentRuns(total int, cuts []int) [][2]int {
	var runs [][2]int
	start := 0
	for _, c := range cuts {
		if c <= start || c >= total {
			continue
		}
		runs = append(runs, [2]int{start, c})
		start = c
	}
	if start < total {
		runs = append(runs, [2]int{start, total})
	}
	return runs
}
