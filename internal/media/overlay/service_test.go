package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func newFontTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		fontDir: t.TempDir(),
		fonts:   make(map[string]*truetype.Font),
	}
}

func TestLoadFontFallsBackToBundledFaces(t *testing.T) {
	s := newFontTestService(t)

	// No files on disk: every Montserrat weight must still resolve.
	for _, name := range []string{
		"Montserrat-Regular.ttf",
		"Montserrat-Medium.ttf",
		"Montserrat-Bold.ttf",
		"Montserrat-Black.ttf",
	} {
		if _, err := s.loadFont(name); err != nil {
			t.Fatalf("loadFont(%s) without installed fonts: %v", name, err)
		}
	}
	if _, err := s.face("Montserrat-Regular.ttf", 24); err != nil {
		t.Fatalf("face without installed fonts: %v", err)
	}
}

func TestLoadFontPrefersInstalledFile(t *testing.T) {
	s := newFontTestService(t)
	path := filepath.Join(s.fontDir, "Montserrat-Regular.ttf")
	if err := os.WriteFile(path, gobold.TTF, 0o644); err != nil {
		t.Fatalf("write font file: %v", err)
	}

	got, err := s.loadFont("Montserrat-Regular.ttf")
	if err != nil {
		t.Fatalf("loadFont: %v", err)
	}
	fromDisk, err := truetype.Parse(gobold.TTF)
	if err != nil {
		t.Fatalf("parse reference font: %v", err)
	}
	fallback, err := truetype.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("parse fallback font: %v", err)
	}
	if got.Name(truetype.NameIDFontFullName) != fromDisk.Name(truetype.NameIDFontFullName) {
		t.Fatalf("installed file not preferred: got %q", got.Name(truetype.NameIDFontFullName))
	}
	if got.Name(truetype.NameIDFontFullName) == fallback.Name(truetype.NameIDFontFullName) {
		t.Fatalf("fallback face returned despite installed file")
	}
}

func TestLoadFontEmojiHasNoSubstitute(t *testing.T) {
	s := newFontTestService(t)
	if _, err := s.loadFont("NotoEmoji-Regular.ttf"); err == nil {
		t.Fatal("expected missing emoji font to error so drawText can substitute the base face")
	}
}
