package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/yungbote/clipforge-backend/internal/media/frames"
	"github.com/yungbote/clipforge-backend/internal/platform/envutil"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// TextAddition is one piece of text rasterized onto a span of frames. Colors
// are hex strings ("#RRGGBB"); OffsetX/OffsetY position the text's top-left
// corner. When StartSeconds/EndSeconds are nil the text spans the whole clip.
type TextAddition struct {
	Text             string
	FontScale        float64
	Thickness        string // Montserrat weight: Regular, Medium, Bold, ...
	Color            string
	ShadowColor      string
	ShadowOffsetX    int
	ShadowOffsetY    int
	Outline          bool
	OutlineColor     string
	OutlineThickness int
	OffsetX          int
	OffsetY          int
	StartSeconds     *float64
	EndSeconds       *float64
}

// ImageAddition overlays a pre-scaled image (channel logos) on every frame in
// its window.
type ImageAddition struct {
	Image        image.Image
	OffsetX      int
	OffsetY      int
	StartSeconds *float64
	EndSeconds   *float64
}

// Service rasterizes text and image overlays onto a video by streaming its
// frames through decode/encode pipes.
type Service struct {
	log     *logger.Logger
	ff      ffmpegx.Tools
	fontDir string

	mu    sync.Mutex
	fonts map[string]*truetype.Font
}

func NewService(log *logger.Logger, ff ffmpegx.Tools) *Service {
	l := log.With("service", "TextOverlay")
	return &Service{
		log:     l,
		ff:      ff,
		fontDir: envutil.GetEnv("FONT_DIR", "assets/fonts", l),
		fonts:   make(map[string]*truetype.Font),
	}
}

// Render streams inPath frame by frame, draws every active addition, and
// encodes the result to outPath. Audio from the source is muxed back on.
func (s *Service) Render(ctx context.Context, inPath, outPath string, texts []TextAddition, images []ImageAddition) error {
	info, err := s.ff.Probe(ctx, inPath)
	if err != nil {
		return fmt.Errorf("probe overlay source: %w", err)
	}
	silentPath, cleanup, err := s.ff.TempPath("overlay-*.mp4")
	if err != nil {
		return err
	}
	defer cleanup()

	if err := s.renderFrames(ctx, inPath, silentPath, info, texts, images); err != nil {
		return err
	}
	if info.HasAudio {
		return s.ff.MuxCopyVideoAAC(ctx, silentPath, inPath, outPath)
	}
	return copyFile(silentPath, outPath)
}

func (s *Service) renderFrames(ctx context.Context, inPath, outPath string, info ffmpegx.ProbeInfo, texts []TextAddition, images []ImageAddition) error {
	reader, err := frames.NewRGBReader(ctx, inPath, info.Width, info.Height)
	if err != nil {
		return fmt.Errorf("open overlay reader: %w", err)
	}
	defer reader.Close()
	writer, err := frames.NewRGBWriter(ctx, outPath, info.Width, info.Height, info.FPS)
	if err != nil {
		return fmt.Errorf("open overlay writer: %w", err)
	}
	defer writer.Close()

	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}
	pix := make([]byte, info.Width*info.Height*3)
	idx := 0
	for {
		if err := reader.NextInto(pix); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode overlay frame %d: %w", idx, err)
		}
		t := float64(idx) / fps
		img := rgbToImage(pix, info.Width, info.Height)
		dc := gg.NewContextForRGBA(img)
		for i := range images {
			if inWindow(t, images[i].StartSeconds, images[i].EndSeconds) {
				dc.DrawImage(images[i].Image, images[i].OffsetX, images[i].OffsetY)
			}
		}
		for i := range texts {
			if inWindow(t, texts[i].StartSeconds, texts[i].EndSeconds) {
				if err := s.drawText(dc, &texts[i], info.Width); err != nil {
					return fmt.Errorf("draw text %q: %w", texts[i].Text, err)
				}
			}
		}
		if err := writer.Write(imageToRGB(img)); err != nil {
			return fmt.Errorf("encode overlay frame %d: %w", idx, err)
		}
		idx++
	}
	return writer.Close()
}

// drawText draws shadow, then the 4-neighbourhood outline copies, then the
// main glyphs, in that order. Emoji runs render from the emoji font at the
// matching size.
func (s *Service) drawText(dc *gg.Context, add *TextAddition, frameWidth int) error {
	size, err := s.fitSize(add, frameWidth, dc)
	if err != nil {
		return err
	}
	base, err := s.face(fmt.Sprintf("Montserrat-%s.ttf", orDefault(add.Thickness, "Regular")), size)
	if err != nil {
		return err
	}
	emoji, err := s.face("NotoEmoji-Regular.ttf", size)
	if err != nil {
		// Emoji coverage is optional; text-only installs fall back to the
		// base face's replacement glyph.
		emoji = base
	}
	dc.SetFontFace(base)
	x := float64(add.OffsetX)
	// gg draws from the baseline; the offset names the top of the glyphs.
	y := float64(add.OffsetY) + dc.FontHeight()

	if add.ShadowColor != "" {
		dc.SetHexColor(add.ShadowColor)
		s.drawRuns(dc, add.Text, base, emoji, x+float64(add.ShadowOffsetX), y+float64(add.ShadowOffsetY))
	}
	if add.Outline {
		thickness := add.OutlineThickness
		if thickness <= 0 {
			thickness = 2
		}
		dc.SetHexColor(orDefault(add.OutlineColor, "#000000"))
		for r := 1; r <= thickness; r++ {
			s.drawRuns(dc, add.Text, base, emoji, x-float64(r), y)
			s.drawRuns(dc, add.Text, base, emoji, x+float64(r), y)
			s.drawRuns(dc, add.Text, base, emoji, x, y-float64(r))
			s.drawRuns(dc, add.Text, base, emoji, x, y+float64(r))
		}
	}
	dc.SetHexColor(orDefault(add.Color, "#FFFFFF"))
	s.drawRuns(dc, add.Text, base, emoji, x, y)
	return nil
}

type textRun struct {
	text  string
	emoji bool
}

func splitEmojiRuns(text string) []textRun {
	var runs []textRun
	var cur strings.Builder
	curEmoji := false
	for _, r := range text {
		e := isEmoji(r)
		if cur.Len() > 0 && e != curEmoji {
			runs = append(runs, textRun{text: cur.String(), emoji: curEmoji})
			cur.Reset()
		}
		curEmoji = e
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		runs = append(runs, textRun{text: cur.String(), emoji: curEmoji})
	}
	return runs
}

func isEmoji(r rune) bool {
	return r >= 0x1F000 || (r >= 0x2600 && r <= 0x27BF)
}

func (s *Service) drawRuns(dc *gg.Context, text string, base, emoji font.Face, x, y float64) {
	cx := x
	for _, run := range splitEmojiRuns(text) {
		if run.emoji {
			dc.SetFontFace(emoji)
		} else {
			dc.SetFontFace(base)
		}
		dc.DrawString(run.text, cx, y)
		w, _ := dc.MeasureString(run.text)
		cx += w
	}
	dc.SetFontFace(base)
}

// fitSize binary-shrinks from FontScale x 20 to the largest whole-pixel size
// whose rendering fits the frame width.
func (s *Service) fitSize(add *TextAddition, frameWidth int, dc *gg.Context) (int, error) {
	f, err := s.loadFont(fmt.Sprintf("Montserrat-%s.ttf", orDefault(add.Thickness, "Regular")))
	if err != nil {
		return 0, err
	}
	scale := add.FontScale
	if scale <= 0 {
		scale = 1
	}
	maxWidth := float64(frameWidth - 2*add.OffsetX)
	if maxWidth <= 0 {
		maxWidth = float64(frameWidth)
	}
	lo, hi := 1, int(scale*20)
	if hi < lo {
		hi = lo
	}
	best := lo
	for lo <= hi {
		mid := (lo + hi) / 2
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: float64(mid)}))
		w, _ := dc.MeasureString(add.Text)
		if w <= maxWidth {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}

// face returns a cached font at a size.
func (s *Service) face(name string, size int) (font.Face, error) {
	f, err := s.loadFont(name)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: float64(size)}), nil
}

func (s *Service) loadFont(name string) (*truetype.Font, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.fonts[name]; ok {
		return f, nil
	}
	raw, err := os.ReadFile(filepath.Join(s.fontDir, name))
	if err != nil {
		raw = embeddedFont(name)
		if raw == nil {
			return nil, fmt.Errorf("read font %s: %w", name, err)
		}
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	s.fonts[name] = f
	return f, nil
}

// embeddedFont substitutes a bundled Go face for a missing Montserrat file so
// rendering works before the brand fonts are installed under FONT_DIR. The
// emoji face has no substitute; its caller already falls back to the base face.
func embeddedFont(name string) []byte {
	if !strings.HasPrefix(name, "Montserrat") {
		return nil
	}
	switch {
	case strings.Contains(name, "Bold"), strings.Contains(name, "Black"):
		return gobold.TTF
	case strings.Contains(name, "Medium"):
		return gomedium.TTF
	default:
		return goregular.TTF
	}
}

func inWindow(t float64, start, end *float64) bool {
	if start != nil && t < *start {
		return false
	}
	if end != nil && t > *end {
		return false
	}
	return true
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
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

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
