package ffmpegx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// Tools is the glue around the ffmpeg/ffprobe binaries. Every decode, encode,
// slice, mux, and concat in the pipeline goes through here; stages never shell
// out on their own.
//
// REQUIRED BINARIES in worker runtime: ffmpeg, ffprobe.
//
// This service is synchronous and deterministic; call it from stage handlers,
// which already run off the HTTP hot path.
type Tools interface {
	AssertReady(ctx context.Context) error

	Probe(ctx context.Context, path string) (ProbeInfo, error)
	Run(ctx context.Context, args ...string) error

	ExtractAudioWAV(ctx context.Context, videoPath, outPath string, sampleRateHz int) error
	ConcatAudioSlices(ctx context.Context, audioPath string, slices []Slice, outPath string) error
	MuxCopyVideoAAC(ctx context.Context, videoPath, audioPath, outPath string) error
	MixBackgroundAudio(ctx context.Context, voicePath, musicPath string, musicVolume float64, outPath string) error
	ConcatMP4(ctx context.Context, paths []string, outPath string) error
	SubclipCropScale(ctx context.Context, inPath, outPath string, c CropScaleSpec) error

	TempPath(pattern string) (string, func(), error)
}

// Slice is a half-open [Start, End) interval in seconds on an audio stream.
type Slice struct {
	Start float64
	End   float64
}

type CropScaleSpec struct {
	// Crop rectangle in source pixels. Zero W/H means no crop.
	X, Y, W, H int
	// Output size. Zero means keep.
	OutW, OutH int
	// Subclip window in seconds. End <= 0 means to the end.
	Start, End float64
	// Drop the audio stream when true.
	Mute bool
}

type ProbeInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
	FPS             float64
	FrameCount      int
	HasAudio        bool
}

type tools struct {
	log         *logger.Logger
	ffmpegPath  string
	ffprobePath string
	workRoot    string
	timeout     time.Duration
}

func New(log *logger.Logger) Tools {
	return &tools{
		log:         log.With("service", "FFmpegTools"),
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		workRoot:    filepath.Join(os.TempDir(), "clipforge-media"),
		timeout:     15 * time.Minute,
	}
}

func (t *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{t.ffmpegPath, t.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(t.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (t *tools) TempPath(pattern string) (string, func(), error) {
	if err := os.MkdirAll(t.workRoot, 0o755); err != nil {
		return "", nil, fmt.Errorf("create workRoot: %w", err)
	}
	f, err := os.CreateTemp(t.workRoot, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return name, func() { _ = os.Remove(name) }, nil
}

func (t *tools) Run(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	cmd := exec.CommandContext(ctx, t.ffmpegPath, full...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w; out=%s", strings.Join(args, " "), err, truncate(string(out), 2000))
	}
	return nil
}

func (t *tools) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_entries", "stream=codec_type,width,height,avg_frame_rate,nb_frames",
		"-of", "json",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("ffprobe %q: %w; out=%s", path, err, truncate(string(out), 1000))
	}
	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType    string `json:"codec_type"`
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
			NBFrames     string `json:"nb_frames"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return ProbeInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	info := ProbeInfo{}
	info.DurationSeconds, _ = strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64)
	for _, s := range payload.Streams {
		switch s.CodecType {
		case "video":
			info.Width = s.Width
			info.Height = s.Height
			info.FPS = parseRate(s.AvgFrameRate)
			info.FrameCount, _ = strconv.Atoi(strings.TrimSpace(s.NBFrames))
		case "audio":
			info.HasAudio = true
		}
	}
	if info.FrameCount == 0 && info.FPS > 0 && info.DurationSeconds > 0 {
		info.FrameCount = int(info.DurationSeconds * info.FPS)
	}
	return info, nil
}

func parseRate(r string) float64 {
	r = strings.TrimSpace(r)
	if r == "" || r == "0/0" {
		return 0
	}
	if num, den, ok := strings.Cut(r, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, _ := strconv.ParseFloat(r, 64)
	return f
}

func (t *tools) ExtractAudioWAV(ctx context.Context, videoPath, outPath string, sampleRateHz int) error {
	if sampleRateHz <= 0 {
		sampleRateHz = 44100
	}
	return t.Run(ctx,
		"-i", videoPath,
		"-vn",
		"-ar", strconv.Itoa(sampleRateHz),
		"-ac", "2",
		"-f", "wav",
		outPath,
	)
}

// ConcatAudioSlices pulls each [start, end) out of the source and butts the
// slices together with the concat filter, encoding AAC into an MP4 container.
// The output duration is the sum of the slice lengths, sample-quantized.
func (t *tools) ConcatAudioSlices(ctx context.Context, audioPath string, slices []Slice, outPath string) error {
	if len(slices) == 0 {
		return fmt.Errorf("no audio slices to concatenate")
	}
	var b strings.Builder
	for i, s := range slices {
		fmt.Fprintf(&b, "[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[s%d];",
			fmtSeconds(s.Start), fmtSeconds(s.End), i)
	}
	for i := range slices {
		fmt.Fprintf(&b, "[s%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=0:a=1[out]", len(slices))

	// Filter graphs for long shorts overflow argv comfortably; pass via script file.
	script, cleanup, err := t.TempPath("filter-*.txt")
	if err != nil {
		return err
	}
	defer cleanup()
	if err := os.WriteFile(script, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write filter script: %w", err)
	}
	return t.Run(ctx,
		"-i", audioPath,
		"-filter_complex_script", script,
		"-map", "[out]",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	)
}

func (t *tools) MuxCopyVideoAAC(ctx context.Context, videoPath, audioPath, outPath string) error {
	return t.Run(ctx,
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outPath,
	)
}

// MixBackgroundAudio loops the music under the voice track at the given volume
// and trims the mix to the voice duration.
func (t *tools) MixBackgroundAudio(ctx context.Context, voicePath, musicPath string, musicVolume float64, outPath string) error {
	if musicVolume < 0 {
		musicVolume = 0
	}
	if musicVolume > 1 {
		musicVolume = 1
	}
	filter := fmt.Sprintf(
		"[1:a]aloop=loop=-1:size=2e9,volume=%s[bg];[0:a][bg]amix=inputs=2:duration=first:dropout_transition=0[out]",
		strconv.FormatFloat(musicVolume, 'f', 3, 64),
	)
	return t.Run(ctx,
		"-i", voicePath,
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "[out]",
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	)
}

func (t *tools) ConcatMP4(ctx context.Context, paths []string, outPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no inputs to concatenate")
	}
	list, cleanup, err := t.TempPath("concat-*.txt")
	if err != nil {
		return err
	}
	defer cleanup()
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	if err := os.WriteFile(list, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	// Re-encode; the inputs usually disagree on timebase and SPS.
	return t.Run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	)
}

func (t *tools) SubclipCropScale(ctx context.Context, inPath, outPath string, c CropScaleSpec) error {
	args := []string{}
	if c.Start > 0 {
		args = append(args, "-ss", fmtSeconds(c.Start))
	}
	if c.End > 0 {
		args = append(args, "-to", fmtSeconds(c.End))
	}
	args = append(args, "-i", inPath)

	filters := []string{}
	if c.W > 0 && c.H > 0 {
		filters = append(filters, fmt.Sprintf("crop=%d:%d:%d:%d", c.W, c.H, c.X, c.Y))
	}
	if c.OutW > 0 && c.OutH > 0 {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", c.OutW, c.OutH))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	if c.Mute {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	return t.Run(ctx, args...)
}

func fmtSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
