package stages

import (
	"math"
	"testing"

	"github.com/yungbote/clipforge-backend/internal/media/frames"
)

func uniformIntegral(w, h int) *frames.Integral {
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = 1
	}
	return frames.NewIntegral(pix, w, h)
}

func TestBestStandardBoxUniformTieBreak(t *testing.T) {
	ii := uniformIntegral(160, 160)
	box, score := bestStandardBox(ii, 160, 160, sweepStep)

	// Largest 9:16 rectangle, ties resolved to the smallest (y, x).
	if box.Height != 160 || box.Width != 90 {
		t.Fatalf("box %dx%d, want 90x160", box.Width, box.Height)
	}
	if box.X != 0 || box.Y != 0 {
		t.Fatalf("origin (%d,%d), want (0,0)", box.X, box.Y)
	}
	if score != int64(90*160) {
		t.Fatalf("score %d, want %d", score, 90*160)
	}
}

func TestBestStandardBoxFollowsSaliency(t *testing.T) {
	w, h := 160, 160
	pix := make([]byte, w*h)
	pix[40*w+120] = 255 // single bright pixel at x=120, y=40
	ii := frames.NewIntegral(pix, w, h)

	box, _ := bestStandardBox(ii, w, h, sweepStep)
	if box.X > 120 || box.X+box.Width <= 120 {
		t.Fatalf("box %+v misses the salient pixel at x=120", box)
	}
	// Among covering positions the smallest x wins the tie.
	if box.X != 40 {
		t.Fatalf("box x = %d, want 40", box.X)
	}
}

func TestBestTwoBoxUniform(t *testing.T) {
	ii := uniformIntegral(160, 160)
	tb := bestTwoBox(ii, 160, 160, sweepStep)

	// 40% of h=160 aligned to the sweep grid.
	if tb.Top.Height != 60 || tb.Bottom.Height != 60 {
		t.Fatalf("band heights %d/%d, want 60/60", tb.Top.Height, tb.Bottom.Height)
	}
	if tb.Top.Width != 160 || tb.Bottom.Width != 160 {
		t.Fatalf("bands must span the full width: %+v", tb)
	}
	if tb.Bottom.Y < tb.Top.Y+tb.Top.Height {
		t.Fatalf("bands must not overlap: %+v", tb)
	}
	// All pairs tie on uniform saliency; the smallest (top y, bottom y) wins.
	if tb.Top.Y != 0 || tb.Bottom.Y != 60 {
		t.Fatalf("pair %+v, want bands at y=0 and y=60", tb)
	}
}

func TestBestTwoBoxFollowsSaliency(t *testing.T) {
	w, h := 100, 100
	brightRows := func(rows ...int) *frames.Integral {
		pix := make([]byte, w*h)
		for _, r := range rows {
			for x := 0; x < w; x++ {
				pix[r*w+x] = 255
			}
		}
		return frames.NewIntegral(pix, w, h)
	}

	// Band height is 40, so only the y=0 band reaches row 5 and only the
	// y=60 band reaches row 95.
	high := bestTwoBox(brightRows(5), w, h, sweepStep)
	if high.Top.Y > 5 || high.Top.Y+high.Top.Height <= 5 {
		t.Fatalf("top band %+v misses the bright row at y=5", high.Top)
	}
	low := bestTwoBox(brightRows(95), w, h, sweepStep)
	if low.Bottom.Y > 95 || low.Bottom.Y+low.Bottom.Height <= 95 {
		t.Fatalf("bottom band %+v misses the bright row at y=95", low.Bottom)
	}
	if high.Top.Y == low.Top.Y && high.Bottom.Y == low.Bottom.Y {
		t.Fatalf("pair %+v did not move with the saliency", low)
	}

	both := bestTwoBox(brightRows(5, 95), w, h, sweepStep)
	if both.Top.Y != 0 || both.Bottom.Y != 60 {
		t.Fatalf("pair %+v, want bands at y=0 and y=60 covering both rows", both)
	}
}

func TestBestHalfScreenBoxClampsWidth(t *testing.T) {
	ii := uniformIntegral(160, 160)
	box := bestHalfScreenBox(ii, 160, 160, sweepStep)
	if box.Width != 160 || box.Height != 160 || box.X != 0 || box.Y != 0 {
		t.Fatalf("box %+v, want full frame when 9:8 width exceeds the frame", box)
	}
}

func TestBestReactionBoxBoundsAndAspect(t *testing.T) {
	w, h := 160, 160
	ii := uniformIntegral(w, h)
	box := bestReactionBox(ii, w, h, sweepStep)

	if box.Width > w/2 || box.Height > h/2 {
		t.Fatalf("box %+v exceeds the half-frame cap", box)
	}
	if box.X < 0 || box.Y < 0 || box.X+box.Width > w || box.Y+box.Height > h {
		t.Fatalf("box %+v out of bounds", box)
	}
	aspect := float64(box.Width) / float64(box.Height)
	if math.Abs(aspect-16.0/9.0) > 0.15 {
		t.Fatalf("aspect %v, want close to 16:9", aspect)
	}
}
