package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/db"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// fakeOracle answers every editorial question with canned values.
type fakeOracle struct {
	needsCropping []bool
	deleteRange   IndexRange
	boundaries    IndexRange
	unnecessary   []IndexRange
	hook          IndexRange
	cropCalls     int
}

func (o *fakeOracle) NeedsCropping(ctx context.Context, transcript, idea string) (bool, error) {
	if o.cropCalls >= len(o.needsCropping) {
		return false, nil
	}
	v := o.needsCropping[o.cropCalls]
	o.cropCalls++
	return v, nil
}

func (o *fakeOracle) DeleteRange(ctx context.Context, transcript, idea string) (IndexRange, error) {
	return o.deleteRange, nil
}

func (o *fakeOracle) Boundaries(ctx context.Context, transcript, idea string) (IndexRange, error) {
	return o.boundaries, nil
}

func (o *fakeOracle) Unnecessary(ctx context.Context, transcript, idea string) ([]IndexRange, error) {
	return o.unnecessary, nil
}

func (o *fakeOracle) Hook(ctx context.Context, transcript, idea string) (IndexRange, error) {
	return o.hook, nil
}

func (o *fakeOracle) IntroDecision(ctx context.Context, transcript, idea string) (bool, string, error) {
	return false, "", nil
}

type editorEnv struct {
	deps     *Deps
	shorts   repos.ShortRepo
	segments repos.SegmentRepo
	requests repos.RequestRepo
}

func newEditorEnv(t *testing.T) *editorEnv {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	shorts := repos.NewShortRepo(gdb, log)
	segments := repos.NewSegmentRepo(gdb, log)
	requests := repos.NewRequestRepo(gdb, log)
	users := repos.NewUserRepo(gdb, log)
	ledger := pipeline.NewLedger(log, requests, users)

	deps := &Deps{
		Log:      log,
		Shorts:   shorts,
		Segments: segments,
		Users:    users,
		Ledger:   ledger,
	}
	return &editorEnv{deps: deps, shorts: shorts, segments: segments, requests: requests}
}

func (e *editorEnv) seed(t *testing.T, transcript string) *pipeline.StageContext {
	t.Helper()
	ctx := context.Background()
	tokens := strings.Fields(transcript)
	words := make([]types.Word, len(tokens))
	for i, tok := range tokens {
		words[i] = types.Word{
			Word:      tok,
			StartTime: float64(i) * 0.5,
			EndTime:   float64(i)*0.5 + 0.5,
		}
	}
	raw, err := json.Marshal(words)
	if err != nil {
		t.Fatal(err)
	}
	segment := &types.TopicalSegment{
		ID:      "segment-1",
		VideoID: "video-1",
		UID:     "user-1",
		Words:   raw,
	}
	if err := e.segments.Create(ctx, nil, segment); err != nil {
		t.Fatal(err)
	}
	short := &types.Short{
		ID:          "short-1",
		SegmentID:   segment.ID,
		VideoID:     segment.VideoID,
		UID:         segment.UID,
		ShortIdea:   "test",
		ShortStatus: types.ShortStatusEditTranscript,
	}
	if err := e.shorts.Create(ctx, nil, short); err != nil {
		t.Fatal(err)
	}
	req := &types.Request{
		ID:              "request-1",
		RequestOperand:  types.OperandShort,
		RequestEndpoint: pipeline.EndpointTemporalSegmentation,
		ShortID:         short.ID,
		UID:             short.UID,
		Status:          types.RequestStatusPending,
	}
	if err := e.requests.Create(ctx, nil, req); err != nil {
		t.Fatal(err)
	}
	return &pipeline.StageContext{Request: req, Short: short}
}

func keptIndices(t *testing.T, short *types.Short) []int {
	t.Helper()
	lines, err := short.DecodeLines()
	if err != nil {
		t.Fatal(err)
	}
	var indices []int
	for _, line := range lines {
		for _, w := range line.Words {
			indices = append(indices, w.Index)
		}
	}
	return indices
}

func TestDeterministicEditorHappyPath(t *testing.T) {
	env := newEditorEnv(t)
	sc := env.seed(t, "hello world this is a test of the emergency system")
	oracle := &fakeOracle{
		boundaries:  IndexRange{Start: 0, End: 9},
		unnecessary: []IndexRange{{Start: 3, End: 4}},
		hook:        IndexRange{Start: 0, End: 4},
	}

	editor := NewTranscriptEditor(env.deps, oracle)
	if err := editor.Run(context.Background(), sc); err != nil {
		t.Fatalf("run: %v", err)
	}

	short, err := env.shorts.GetByID(context.Background(), nil, sc.Short.ID)
	if err != nil {
		t.Fatal(err)
	}

	got := keptIndices(t, short)
	want := []int{0, 1, 2, 5, 6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("kept indices %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kept indices %v, want %v", got, want)
		}
	}

	if short.HookStart != 0 || short.HookEnd != 4 {
		t.Fatalf("hook [%d,%d], want [0,4]", short.HookStart, short.HookEnd)
	}
	if short.ShortStatus != types.ShortStatusGenerateAudio {
		t.Fatalf("short status %q, want %q", short.ShortStatus, types.ShortStatusGenerateAudio)
	}

	logs, err := short.DecodeLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Type != types.LogTypeDelete ||
		logs[0].StartIndex != 3 || logs[0].EndIndex != 4 {
		t.Fatalf("logs %+v, want one delete [3,4]", logs)
	}

	lines, err := short.DecodeLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("want 3 lines of at most 3 words, got %d", len(lines))
	}
	if lines[0].StartTime != 0 {
		t.Fatalf("adjusted timeline must start at zero, got %v", lines[0].StartTime)
	}
}

func TestDeterministicEditorTrimsBoundaries(t *testing.T) {
	env := newEditorEnv(t)
	sc := env.seed(t, "hello world this is a test of the emergency system")
	oracle := &fakeOracle{
		boundaries: IndexRange{Start: 2, End: 7},
		hook:       IndexRange{Start: 0, End: 1},
	}

	editor := NewTranscriptEditor(env.deps, oracle)
	if err := editor.Run(context.Background(), sc); err != nil {
		t.Fatalf("run: %v", err)
	}

	short, err := env.shorts.GetByID(context.Background(), nil, sc.Short.ID)
	if err != nil {
		t.Fatal(err)
	}
	got := keptIndices(t, short)
	want := []int{2, 3, 4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("kept indices %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kept indices %v, want %v", got, want)
		}
	}
}

func TestLegacyEditorRespectsKeptFloor(t *testing.T) {
	t.Setenv("TRANSCRIPT_EDITOR_MODE", "legacy")
	env := newEditorEnv(t)
	// Ten words sit far below the floor; the loop must not consult the model.
	sc := env.seed(t, "hello world this is a test of the emergency system")
	oracle := &fakeOracle{needsCropping: []bool{true}, deleteRange: IndexRange{Start: 0, End: 9}}

	editor := NewTranscriptEditor(env.deps, oracle)
	if err := editor.Run(context.Background(), sc); err != nil {
		t.Fatalf("run: %v", err)
	}

	short, err := env.shorts.GetByID(context.Background(), nil, sc.Short.ID)
	if err != nil {
		t.Fatal(err)
	}
	logs, err := short.DecodeLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Fatalf("floor must stop edits, got logs %+v", logs)
	}
	if oracle.cropCalls != 0 {
		t.Fatalf("oracle consulted %d times below the floor", oracle.cropCalls)
	}
	if short.ShortStatus != types.ShortStatusGenerateAudio {
		t.Fatalf("short status %q", short.ShortStatus)
	}
}
