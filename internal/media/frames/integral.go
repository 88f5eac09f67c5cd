package frames

// Integral is a summed-area table over an 8-bit grayscale frame. RectSum is
// O(1) per query, which is what makes the bounding-box sweeps affordable.
type Integral struct {
	W, H int
	// sum has (W+1)*(H+1) entries; sum[(y+1)*(W+1)+(x+1)] is the sum of all
	// pixels in [0,x] x [0,y].
	sum []int64
}

func NewIntegral(pix []byte, w, h int) *Integral {
	stride := w + 1
	sum := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		rowBase := y * w
		outBase := (y + 1) * stride
		prevBase := y * stride
		for x := 0; x < w; x++ {
			rowSum += int64(pix[rowBase+x])
			sum[outBase+x+1] = rowSum + sum[prevBase+x+1]
		}
	}
	return &Integral{W: w, H: h, sum: sum}
}

// RectSum returns the pixel sum over the rectangle with origin (x, y), width w
// and height h. Out-of-range rectangles are clamped to the frame.
func (in *Integral) RectSum(x, y, w, h int) int64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	x0, y0 := clamp(x, 0, in.W), clamp(y, 0, in.H)
	x1, y1 := clamp(x+w, 0, in.W), clamp(y+h, 0, in.H)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	stride := in.W + 1
	return in.sum[y1*stride+x1] - in.sum[y0*stride+x1] - in.sum[y1*stride+x0] + in.sum[y0*stride+x0]
}

// Total is the sum over the whole frame.
func (in *Integral) Total() int64 {
	return in.RectSum(0, 0, in.W, in.H)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
