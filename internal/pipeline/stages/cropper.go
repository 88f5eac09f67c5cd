package stages

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	xdraw "golang.org/x/image/draw"

	"github.com/yungbote/clipforge-backend/internal/media/frames"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

const (
	outputWidth  = 1080
	outputHeight = 1920
	// overlayBorder and overlayMargin style the PiP/reaction thumbnails.
	overlayBorder = 3
	overlayMargin = 20
)

// VideoCropper renders the A-roll: each source frame is cropped per its
// layout tag and rectangle track into a 1080x1920 portrait frame, then the
// rebuilt voice track (and optional stock music bed) is muxed back on.
type VideoCropper struct {
	log  *logger.Logger
	deps *Deps
}

func NewVideoCropper(deps *Deps) *VideoCropper {
	return &VideoCropper{log: deps.Log.With("stage", "VideoCropper"), deps: deps}
}

func (s *VideoCropper) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("video cropper requires a short")
	}
	if short.ShortClippedVideo == "" {
		return fmt.Errorf("short %s has no clipped video", short.ID)
	}
	bb, err := short.DecodeBoundingBoxes()
	if err != nil {
		return err
	}
	if bb == nil || len(bb.Standard) == 0 {
		return fmt.Errorf("short %s has no bounding boxes", short.ID)
	}
	tags, err := short.DecodeBoxTypes()
	if err != nil {
		return err
	}

	s.deps.progress(ctx, sc, 10, "Downloading clipped video")
	videoPath, cleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.ShortClippedVideo)
	if err != nil {
		return fmt.Errorf("download clipped video: %w", err)
	}
	defer cleanup()

	info, err := s.deps.FF.Probe(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probe clipped video: %w", err)
	}

	silentPath, silentCleanup, err := s.deps.FF.TempPath("aroll-video-*.mp4")
	if err != nil {
		return err
	}
	defer silentCleanup()

	s.deps.progress(ctx, sc, 30, "Rendering cropped frames")
	if err := s.renderFrames(ctx, videoPath, silentPath, info, bb, tags); err != nil {
		return err
	}

	s.deps.progress(ctx, sc, 70, "Rebuilding audio track")
	finalPath, err := s.attachAudio(ctx, short, silentPath)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("shorts/%s/a_roll.mp4", short.ID)
	s.deps.progress(ctx, sc, 90, "Uploading A-roll")
	if err := s.deps.Bucket.UploadFromFile(ctx, finalPath, key); err != nil {
		return fmt.Errorf("upload a-roll: %w", err)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"short_a_roll": key,
	}); err != nil {
		return fmt.Errorf("persist a-roll key: %w", err)
	}
	if err := s.deps.advanceShortStatus(ctx, short); err != nil {
		return err
	}
	s.deps.progress(ctx, sc, 95, "A-roll ready")
	return nil
}

func (s *VideoCropper) renderFrames(ctx context.Context, inPath, outPath string, info ffmpegx.ProbeInfo, bb *types.BoundingBoxes, tags []string) error {
	reader, err := frames.NewRGBReader(ctx, inPath, info.Width, info.Height)
	if err != nil {
		return fmt.Errorf("open rgb frame reader: %w", err)
	}
	defer reader.Close()

	writer, err := frames.NewRGBWriter(ctx, outPath, outputWidth, outputHeight, info.FPS)
	if err != nil {
		return fmt.Errorf("open rgb frame writer: %w", err)
	}
	defer writer.Close()

	var lastReaction *types.Box
	idx := 0
	pix := make([]byte, info.Width*info.Height*3)
	for {
		if err := reader.NextInto(pix); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode frame %d: %w", idx, err)
		}
		src := rgbToImage(pix, info.Width, info.Height)
		out, err := renderFrame(src, idx, bb, tags, &lastReaction)
		if err != nil {
			return fmt.Errorf("render frame %d: %w", idx, err)
		}
		if err := writer.Write(imageToRGB(out)); err != nil {
			return fmt.Errorf("encode frame %d: %w", idx, err)
		}
		idx++
	}
	return writer.Close()
}

// renderFrame applies one frame's layout tag to its rectangles.
func renderFrame(src *image.RGBA, idx int, bb *types.BoundingBoxes, tags []string, lastReaction **types.Box) (*image.RGBA, error) {
	tag := types.LayoutStandardTikTok
	if idx < len(tags) && tags[idx] != "" {
		tag = tags[idx]
	}
	std := trackBox(bb.Standard, idx)

	switch tag {
	case types.LayoutTwoBoxes, types.LayoutTwoBoxesReversed:
		tb := trackTwoBox(bb.TwoBox, idx)
		top := cropScale(src, tb.Top, outputWidth, outputHeight/2)
		bottom := cropScale(src, tb.Bottom, outputWidth, outputHeight/2)
		if tag == types.LayoutTwoBoxesReversed {
			top, bottom = bottom, top
		}
		out := image.NewRGBA(image.Rect(0, 0, outputWidth, outputHeight))
		xdraw.Draw(out, image.Rect(0, 0, outputWidth, outputHeight/2), top, image.Point{}, xdraw.Src)
		xdraw.Draw(out, image.Rect(0, outputHeight/2, outputWidth, outputHeight), bottom, image.Point{}, xdraw.Src)
		return out, nil

	case types.LayoutPictureInPicture:
		out := cropScale(src, std, outputWidth, outputHeight)
		thumbH := outputHeight / 4
		srcW := src.Bounds().Dx()
		srcH := src.Bounds().Dy()
		thumbW := thumbH * srcW / srcH
		thumb := scaleImage(src, thumbW, thumbH)
		overlayBottomCenter(out, thumb)
		return out, nil

	case types.LayoutReactionBox:
		out := cropScale(src, std, outputWidth, outputHeight)
		box := trackBox(bb.Reaction, idx)
		if box.Width <= 0 || box.Height <= 0 {
			if *lastReaction == nil {
				return out, nil
			}
			box = **lastReaction
		} else {
			b := box
			*lastReaction = &b
		}
		thumbH := outputHeight / 4
		thumbW := thumbH * box.Width / box.Height
		thumb := cropScale(src, box, thumbW, thumbH)
		overlayBottomCenter(out, thumb)
		return out, nil

	default:
		return cropScale(src, std, outputWidth, outputHeight), nil
	}
}

// attachAudio muxes the rebuilt voice track onto the rendered video, mixing
// in the stock music bed when one is configured.
func (s *VideoCropper) attachAudio(ctx context.Context, short *types.Short, videoPath string) (string, error) {
	if short.TempAudioFile == "" {
		// No rebuilt audio to attach; ship the rendered video as-is.
		return videoPath, nil
	}
	audioPath, audioCleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.TempAudioFile)
	if err != nil {
		return "", fmt.Errorf("download rebuilt audio: %w", err)
	}
	defer audioCleanup()

	if short.BackgroundAudio != "" {
		stock, err := s.deps.Stock.GetByID(ctx, nil, short.BackgroundAudio)
		if err != nil {
			return "", fmt.Errorf("load stock audio %s: %w", short.BackgroundAudio, err)
		}
		if stock != nil && stock.AudioPath != "" {
			musicPath, musicCleanup, err := s.deps.Bucket.DownloadToTemp(ctx, stock.AudioPath)
			if err != nil {
				return "", fmt.Errorf("download stock audio: %w", err)
			}
			defer musicCleanup()
			mixedPath, _, err := s.deps.FF.TempPath("mixed-*.mp4")
			if err != nil {
				return "", err
			}
			volume := short.BackgroundPercentage
			if volume <= 0 || volume > 1 {
				volume = 0.2
			}
			if err := s.deps.FF.MixBackgroundAudio(ctx, audioPath, musicPath, volume, mixedPath); err != nil {
				return "", fmt.Errorf("mix background audio: %w", err)
			}
			audioPath = mixedPath
		}
	}

	muxedPath, _, err := s.deps.FF.TempPath("aroll-*.mp4")
	if err != nil {
		return "", err
	}
	if err := s.deps.FF.MuxCopyVideoAAC(ctx, videoPath, audioPath, muxedPath); err != nil {
		return "", fmt.Errorf("mux a-roll audio: %w", err)
	}
	return muxedPath, nil
}

// trackBox reads a track defensively: past-the-end frames reuse the last box.
func trackBox(track []types.Box, idx int) types.Box {
	if len(track) == 0 {
		return types.Box{}
	}
	if idx >= len(track) {
		idx = len(track) - 1
	}
	return track[idx]
}

func trackTwoBox(track []types.TwoBox, idx int) types.TwoBox {
	if len(track) == 0 {
		return types.TwoBox{}
	}
	if idx >= len(track) {
		idx = len(track) - 1
	}
	return track[idx]
}

func rgbToImage(pix []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4+0] = pix[i*3+0]
		img.Pix[i*4+1] = pix[i*3+1]
		img.Pix[i*4+2] = pix[i*3+2]
		img.Pix[i*4+3] = 0xFF
	}
	return img
}

func imageToRGB(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			out[(y*w+x)*3+0] = row[x*4+0]
			out[(y*w+x)*3+1] = row[x*4+1]
			out[(y*w+x)*3+2] = row[x*4+2]
		}
	}
	return out
}

// cropScale clamps box to the source bounds, crops it, and scales the crop.
func cropScale(src *image.RGBA, box types.Box, outW, outH int) *image.RGBA {
	b := src.Bounds()
	x0 := clampInt(box.X, 0, b.Dx()-1)
	y0 := clampInt(box.Y, 0, b.Dy()-1)
	x1 := clampInt(box.X+box.Width, x0+1, b.Dx())
	y1 := clampInt(box.Y+box.Height, y0+1, b.Dy())
	crop := src.SubImage(image.Rect(x0, y0, x1, y1))
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), crop, crop.Bounds(), xdraw.Src, nil)
	return out
}

func scaleImage(src *image.RGBA, outW, outH int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return out
}

// overlayBottomCenter draws thumb onto dst centered at the bottom with the
// white border and margin the layouts share.
func overlayBottomCenter(dst, thumb *image.RGBA) {
	tw := thumb.Bounds().Dx()
	th := thumb.Bounds().Dy()
	x0 := (dst.Bounds().Dx() - tw) / 2
	y0 := dst.Bounds().Dy() - th - overlayMargin
	border := image.Rect(x0-overlayBorder, y0-overlayBorder, x0+tw+overlayBorder, y0+th+overlayBorder)
	xdraw.Draw(dst, border, &image.Uniform{color.White}, image.Point{}, xdraw.Src)
	xdraw.Draw(dst, image.Rect(x0, y0, x0+tw, y0+th), thumb, thumb.Bounds().Min, xdraw.Src)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
