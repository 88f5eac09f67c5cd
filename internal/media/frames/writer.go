package frames

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// Writer feeds packed RGB24 frames into an ffmpeg encoder pipe producing an
// H.264 MP4 (video only; audio is muxed in a separate pass).
type Writer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	buf    *bufio.Writer
	stderr *limitedBuffer

	frameSize int
	closed    bool
}

func NewRGBWriter(ctx context.Context, outPath string, width, height int, fps float64) (*Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", width, height)
	}
	if fps <= 0 {
		fps = 30
	}
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', 6, 64),
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	stderr := &limitedBuffer{limit: 2048}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg encoder: %w", err)
	}
	return &Writer{
		cmd:       cmd,
		stdin:     stdin,
		buf:       bufio.NewWriterSize(stdin, 1<<20),
		stderr:    stderr,
		frameSize: width * height * 3,
	}, nil
}

func (w *Writer) Write(pix []byte) error {
	if len(pix) != w.frameSize {
		return fmt.Errorf("frame size %d != expected %d", len(pix), w.frameSize)
	}
	if _, err := w.buf.Write(pix); err != nil {
		return fmt.Errorf("write frame: %w; encoder=%s", err, w.stderr.String())
	}
	return nil
}

// Close flushes the pipe and waits for the encoder to finish the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.buf.Flush(); err != nil {
		_ = w.stdin.Close()
		_ = w.cmd.Wait()
		return fmt.Errorf("flush frames: %w", err)
	}
	if err := w.stdin.Close(); err != nil {
		_ = w.cmd.Wait()
		return fmt.Errorf("close encoder pipe: %w", err)
	}
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encoder: %w; out=%s", err, w.stderr.String())
	}
	return nil
}
