package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

func TestStageCostsDefaults(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	costs, err := LoadStageCosts(log)
	if err != nil {
		t.Fatal(err)
	}
	if got := costs.Cost(EndpointGenerateTestAudio); got != 1 {
		t.Fatalf("generate-test-audio cost %d, want 1", got)
	}
	if got := costs.Cost(EndpointCreateShortVideo); got != 2 {
		t.Fatalf("create-short-video cost %d, want 2", got)
	}
	if got := costs.Cost(EndpointCollectTikTokData); got != 0 {
		t.Fatalf("collect-tiktok-data cost %d, want 0", got)
	}
	if got := costs.Cost("no-such-endpoint"); got != 0 {
		t.Fatalf("unknown endpoint cost %d, want 0", got)
	}
}

func TestStageCostsFileOverride(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "costs.yaml")
	data := "costs:\n  generate-test-audio: 3\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STAGE_COSTS_PATH", path)

	costs, err := LoadStageCosts(log)
	if err != nil {
		t.Fatal(err)
	}
	if got := costs.Cost(EndpointGenerateTestAudio); got != 3 {
		t.Fatalf("overridden cost %d, want 3", got)
	}
}
