package frames

import (
	"context"
	"testing"
)

func TestReaderRejectsInvalidGeometry(t *testing.T) {
	ctx := context.Background()
	if _, err := NewRGBReader(ctx, "missing.mp4", 0, 1080); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := NewRGBReader(ctx, "missing.mp4", 1920, -1); err == nil {
		t.Fatal("expected error for negative height")
	}
	if _, err := NewGrayReader(ctx, "missing.mp4", 0, 0, 5); err == nil {
		t.Fatal("expected error for zero geometry")
	}
}
