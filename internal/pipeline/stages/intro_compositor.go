package stages

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/yungbote/clipforge-backend/internal/media/overlay"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// IntroCompositor renders the branded intro clip: the short's opening crop
// for the duration of the synthesized intro audio, with the user's titles and
// logo drawn on, and the TTS track muxed in.
type IntroCompositor struct {
	log  *logger.Logger
	deps *Deps
}

func NewIntroCompositor(deps *Deps) *IntroCompositor {
	return &IntroCompositor{log: deps.Log.With("stage", "IntroCompositor"), deps: deps}
}

func (s *IntroCompositor) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("intro compositor requires a short")
	}
	if short.IntroAudioPath == "" {
		return fmt.Errorf("short %s has no intro audio", short.ID)
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
	firstBox := bb.Standard[0]

	s.deps.progress(ctx, sc, 15, "Downloading intro inputs")
	audioPath, audioCleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.IntroAudioPath)
	if err != nil {
		return fmt.Errorf("download intro audio: %w", err)
	}
	defer audioCleanup()
	videoPath, videoCleanup, err := s.deps.Bucket.DownloadToTemp(ctx, short.ShortClippedVideo)
	if err != nil {
		return fmt.Errorf("download clipped video: %w", err)
	}
	defer videoCleanup()

	audioInfo, err := s.deps.FF.Probe(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("probe intro audio: %w", err)
	}
	if audioInfo.DurationSeconds <= 0 {
		return fmt.Errorf("intro audio %s has no duration", short.IntroAudioPath)
	}

	s.deps.progress(ctx, sc, 40, "Cropping intro clip")
	croppedPath, croppedCleanup, err := s.deps.FF.TempPath("intro-crop-*.mp4")
	if err != nil {
		return err
	}
	defer croppedCleanup()
	spec := ffmpegx.CropScaleSpec{
		X: firstBox.X, Y: firstBox.Y,
		W: firstBox.Width, H: firstBox.Height,
		OutW: outputWidth, OutH: outputHeight,
		Start: 0, End: audioInfo.DurationSeconds,
		Mute: true,
	}
	if err := s.deps.FF.SubclipCropScale(ctx, videoPath, croppedPath, spec); err != nil {
		return fmt.Errorf("crop intro clip: %w", err)
	}

	s.deps.progress(ctx, sc, 60, "Rendering brand overlays")
	brandedPath, brandedCleanup, err := s.deps.FF.TempPath("intro-brand-*.mp4")
	if err != nil {
		return err
	}
	defer brandedCleanup()
	texts, images, err := s.brandAdditions(ctx, short)
	if err != nil {
		return err
	}
	if err := s.deps.Overlay.Render(ctx, croppedPath, brandedPath, texts, images); err != nil {
		return fmt.Errorf("render brand overlays: %w", err)
	}

	s.deps.progress(ctx, sc, 80, "Muxing intro audio")
	outPath, outCleanup, err := s.deps.FF.TempPath("intro-*.mp4")
	if err != nil {
		return err
	}
	defer outCleanup()
	if err := s.deps.FF.MuxCopyVideoAAC(ctx, brandedPath, audioPath, outPath); err != nil {
		return fmt.Errorf("mux intro audio: %w", err)
	}

	key := fmt.Sprintf("intro-video/%s/%s-intro.mp4", short.ID, short.ID)
	if err := s.deps.Bucket.UploadFromFile(ctx, outPath, key); err != nil {
		return fmt.Errorf("upload intro video: %w", err)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"intro_video_path": key,
	}); err != nil {
		return fmt.Errorf("persist intro video key: %w", err)
	}
	s.deps.progress(ctx, sc, 95, "Intro video ready")
	return nil
}

// brandAdditions builds the user's title/logo overlays. Missing branding
// fields degrade to fewer overlays rather than failing the stage.
func (s *IntroCompositor) brandAdditions(ctx context.Context, short *types.Short) ([]overlay.TextAddition, []overlay.ImageAddition, error) {
	var texts []overlay.TextAddition
	var images []overlay.ImageAddition
	user, err := s.deps.Users.GetByID(ctx, nil, short.UID)
	if err != nil {
		return nil, nil, fmt.Errorf("load user %s: %w", short.UID, err)
	}
	primary, secondary := "#FFFFFF", "#000000"
	channel := ""
	if user != nil {
		if user.PrimaryColor != "" {
			primary = user.PrimaryColor
		}
		if user.SecondaryColor != "" {
			secondary = user.SecondaryColor
		}
		channel = user.ChannelName
	}

	if short.ShortTitleTop != "" {
		texts = append(texts, overlay.TextAddition{
			Text:          short.ShortTitleTop,
			FontScale:     4,
			Thickness:     "Bold",
			Color:         primary,
			ShadowColor:   secondary,
			ShadowOffsetX: 4,
			ShadowOffsetY: 4,
			OffsetX:       60,
			OffsetY:       180,
		})
	}
	if short.ShortTitleBottom != "" {
		texts = append(texts, overlay.TextAddition{
			Text:          short.ShortTitleBottom,
			FontScale:     4,
			Thickness:     "Bold",
			Color:         primary,
			ShadowColor:   secondary,
			ShadowOffsetX: 4,
			ShadowOffsetY: 4,
			OffsetX:       60,
			OffsetY:       outputHeight - 360,
		})
	}
	if channel != "" {
		texts = append(texts, overlay.TextAddition{
			Text:             channel,
			FontScale:        2,
			Thickness:        "Medium",
			Color:            primary,
			Outline:          true,
			OutlineColor:     secondary,
			OutlineThickness: 2,
			OffsetX:          60,
			OffsetY:          outputHeight / 2,
		})
	}

	if user != nil && user.LogoPath != "" {
		logo, err := s.loadLogo(ctx, user.LogoPath)
		if err != nil {
			s.log.Warn("Logo load failed", "uid", short.UID, "error", err)
		} else {
			images = append(images, overlay.ImageAddition{
				Image:   logo,
				OffsetX: (outputWidth - logo.Bounds().Dx()) / 2,
				OffsetY: outputHeight/2 - logo.Bounds().Dy() - 40,
			})
		}
	}
	return texts, images, nil
}

func (s *IntroCompositor) loadLogo(ctx context.Context, key string) (image.Image, error) {
	rc, err := s.deps.Bucket.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	// Logos render at a fixed height; width follows the source aspect.
	const logoHeight = 200
	w := logoHeight * img.Bounds().Dx() / img.Bounds().Dy()
	scaled := image.NewRGBA(image.Rect(0, 0, w, logoHeight))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return scaled, nil
}
