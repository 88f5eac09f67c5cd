package frames

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// Reader streams decoded raw frames out of an ffmpeg pipe. The caller probes
// the source first and passes the frame geometry; ffmpeg writes tightly packed
// rawvideo so each frame is exactly w*h*bpp bytes on the pipe.
type Reader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    *bufio.Reader
	stderr *limitedBuffer

	width     int
	height    int
	frameSize int
}

// NewGrayReader decodes the video at path to 8-bit grayscale frames. A stride
// of n > 1 keeps only every n-th frame (frame numbers 0, n, 2n, ...).
func NewGrayReader(ctx context.Context, path string, width, height, stride int) (*Reader, error) {
	return newReader(ctx, path, width, height, stride, "gray", 1)
}

// NewRGBReader decodes the video at path to packed RGB24 frames.
func NewRGBReader(ctx context.Context, path string, width, height int) (*Reader, error) {
	return newReader(ctx, path, width, height, 1, "rgb24", 3)
}

func newReader(ctx context.Context, path string, width, height, stride int, pixFmt string, bpp int) (*Reader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", width, height)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
	}
	if stride > 1 {
		args = append(args,
			"-vf", "select='not(mod(n\\,"+strconv.Itoa(stride)+"))'",
			"-fps_mode", "passthrough",
		)
	}
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"pipe:1",
	)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stderr := &limitedBuffer{limit: 2048}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg decoder: %w", err)
	}
	return &Reader{
		cmd:       cmd,
		stdout:    stdout,
		buf:       bufio.NewReaderSize(stdout, 1<<20),
		stderr:    stderr,
		width:     width,
		height:    height,
		frameSize: width * height * bpp,
	}, nil
}

func (r *Reader) Width() int  { return r.width }
func (r *Reader) Height() int { return r.height }

// Next returns the next frame's pixel data, or io.EOF when the stream ends.
// The returned slice is freshly allocated and safe to retain.
func (r *Reader) Next() ([]byte, error) {
	pix := make([]byte, r.frameSize)
	if _, err := io.ReadFull(r.buf, pix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return pix, nil
}

// NextInto reads the next frame into pix, which must be frame-sized.
func (r *Reader) NextInto(pix []byte) error {
	if len(pix) != r.frameSize {
		return fmt.Errorf("buffer size %d != frame size %d", len(pix), r.frameSize)
	}
	if _, err := io.ReadFull(r.buf, pix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return fmt.Errorf("read frame: %w", err)
	}
	return nil
}

func (r *Reader) Close() error {
	_ = r.stdout.Close()
	if err := r.cmd.Wait(); err != nil {
		// Closing mid-stream kills the pipe; only surface real decode failures.
		if msg := r.stderr.String(); msg != "" {
			return fmt.Errorf("ffmpeg decoder: %s", msg)
		}
	}
	return nil
}

type limitedBuffer struct {
	limit int
	data  []byte
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if len(b.data) < b.limit {
		n := b.limit - len(b.data)
		if n > len(p) {
			n = len(p)
		}
		b.data = append(b.data, p[:n]...)
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string { return string(b.data) }
