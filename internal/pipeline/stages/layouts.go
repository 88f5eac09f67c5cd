package stages

import (
	"math"

	"github.com/yungbote/clipforge-backend/internal/media/frames"
	"github.com/yungbote/clipforge-backend/internal/types"
)

const (
	// frameStride is the temporal subsampling applied to saliency frames.
	frameStride = 5
	// sweepStep is the pixel grid for candidate origins and sizes.
	sweepStep = 10
	// reactionGain is the relative density improvement a smaller reaction box
	// must deliver to keep shrinking.
	reactionGain = 0.10
)

// candidate tracks the best rectangle seen so far. Ties resolve to the
// smaller (y, x), matching stable scan order.
type candidate struct {
	box   types.Box
	score int64
	set   bool
}

func (c *candidate) offer(box types.Box, score int64) {
	if !c.set || score > c.score ||
		(score == c.score && (box.Y < c.box.Y || (box.Y == c.box.Y && box.X < c.box.X))) {
		c.box = box
		c.score = score
		c.set = true
	}
}

// bestStandardBox sweeps 9:16 portrait rectangles over the frame: heights on
// the sweep grid, width derived from the aspect, origins on the same grid.
func bestStandardBox(ii *frames.Integral, w, h, step int) (types.Box, int64) {
	var best candidate
	for height := step; height <= h; height += step {
		width := int(math.Round(float64(height) * 9.0 / 16.0))
		if width < 1 || width > w {
			continue
		}
		for y := 0; y+height <= h; y += step {
			for x := 0; x+width <= w; x += step {
				box := types.Box{X: x, Y: y, Width: width, Height: height}
				best.offer(box, ii.RectSum(x, y, width, height))
			}
		}
	}
	if !best.set {
		best.box = types.Box{X: 0, Y: 0, Width: w, Height: h}
		best.score = ii.Total()
	}
	return best.box, best.score
}

// bestTwoBox picks the pair of non-overlapping full-width bands capturing the
// most saliency, ordered top to bottom. Band height is 40% of the frame
// (grid-aligned) so the pair can chase two subjects instead of tiling the
// frame. Ties resolve to the smaller (top y, bottom y).
func bestTwoBox(ii *frames.Integral, w, h, step int) types.TwoBox {
	band := 2 * h / 5
	if step > 1 {
		band -= band % step
	}
	if band < 1 {
		band = 1
	}
	type bandSum struct {
		y   int
		sum int64
	}
	var bands []bandSum
	for y := 0; y+band <= h; y += step {
		bands = append(bands, bandSum{y: y, sum: ii.RectSum(0, y, w, band)})
	}
	// Adjacent middle fallback when the grid offers no disjoint pair.
	topY, bottomY := 0, band
	if bottomY+band > h {
		bottomY = h - band
	}
	var bestScore int64 = -1
	for i, top := range bands {
		for _, bottom := range bands[i:] {
			if bottom.y < top.y+band {
				continue
			}
			if score := top.sum + bottom.sum; score > bestScore {
				bestScore = score
				topY, bottomY = top.y, bottom.y
			}
		}
	}
	return types.TwoBox{
		Top:    types.Box{X: 0, Y: topY, Width: w, Height: band},
		Bottom: types.Box{X: 0, Y: bottomY, Width: w, Height: band},
	}
}

// bestReactionBox anchors a 16:9 rectangle to each frame edge and shrinks it
// while the saliency density keeps improving by at least reactionGain. Height
// and width are capped at half the frame.
func bestReactionBox(ii *frames.Integral, w, h, step int) types.Box {
	maxHeight := h / 2
	maxWidth := w / 2
	var best candidate
	bestDensity := -1.0
	for _, anchor := range []string{"left", "top", "right", "bottom"} {
		density := -1.0
		var kept types.Box
		keptSet := false
		for height := maxHeight; height >= step; height -= step {
			width := int(math.Round(float64(height) * 16.0 / 9.0))
			if width > maxWidth {
				continue
			}
			box := anchorBox(anchor, w, h, width, height)
			area := float64(box.Width * box.Height)
			if area <= 0 {
				break
			}
			d := float64(ii.RectSum(box.X, box.Y, box.Width, box.Height)) / area
			if !keptSet {
				kept, density, keptSet = box, d, true
				continue
			}
			if d >= density*(1+reactionGain) {
				kept, density = box, d
			} else {
				break
			}
		}
		if keptSet && density > bestDensity {
			bestDensity = density
			best.offer(kept, int64(density*1000))
		}
	}
	if !best.set {
		return types.Box{X: 0, Y: 0, Width: maxWidth, Height: maxHeight}
	}
	return best.box
}

func anchorBox(anchor string, w, h, width, height int) types.Box {
	switch anchor {
	case "left":
		return types.Box{X: 0, Y: (h - height) / 2, Width: width, Height: height}
	case "right":
		return types.Box{X: w - width, Y: (h - height) / 2, Width: width, Height: height}
	case "top":
		return types.Box{X: (w - width) / 2, Y: 0, Width: width, Height: height}
	default: // bottom
		return types.Box{X: (w - width) / 2, Y: h - height, Width: width, Height: height}
	}
}

// bestHalfScreenBox slides a full-height 9:8 rectangle horizontally.
func bestHalfScreenBox(ii *frames.Integral, w, h, step int) types.Box {
	width := int(math.Round(float64(h) * 9.0 / 8.0))
	if width > w {
		width = w
	}
	var best candidate
	for x := 0; x+width <= w; x += step {
		box := types.Box{X: x, Y: 0, Width: width, Height: h}
		best.offer(box, ii.RectSum(x, 0, width, h))
	}
	if !best.set {
		best.box = types.Box{X: 0, Y: 0, Width: width, Height: h}
	}
	return best.box
}
