package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/db"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

type recordedTask struct {
	Endpoint string
	EntityID string
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []recordedTask
}

func (d *recordingDispatcher) Enqueue(ctx context.Context, endpoint, entityID string, delay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, recordedTask{Endpoint: endpoint, EntityID: entityID})
	return nil
}

func (d *recordingDispatcher) all() []recordedTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]recordedTask, len(d.tasks))
	copy(out, d.tasks)
	return out
}

type testEnv struct {
	db         *gorm.DB
	requests   repos.RequestRepo
	shorts     repos.ShortRepo
	users      repos.UserRepo
	ledger     *Ledger
	router     *Router
	controller *Controller
	dispatcher *recordingDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
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
	// A single connection serializes access; the admission CAS still decides
	// the race at the row level.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	requestRepo := repos.NewRequestRepo(gdb, log)
	shortRepo := repos.NewShortRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)
	segmentRepo := repos.NewSegmentRepo(gdb, log)
	userRepo := repos.NewUserRepo(gdb, log)

	costs, err := LoadStageCosts(log)
	if err != nil {
		t.Fatalf("load costs: %v", err)
	}
	ledger := NewLedger(log, requestRepo, userRepo)
	guard := NewGuard(log, shortRepo, videoRepo, segmentRepo)
	dispatcher := &recordingDispatcher{}
	chain := NewChain(log, shortRepo, ledger, costs, dispatcher)
	router := NewRouter()
	controller := NewController(log, requestRepo, shortRepo, videoRepo, segmentRepo, userRepo, router, ledger, guard, chain, costs)

	return &testEnv{
		db:         gdb,
		requests:   requestRepo,
		shorts:     shortRepo,
		users:      userRepo,
		ledger:     ledger,
		router:     router,
		controller: controller,
		dispatcher: dispatcher,
	}
}

func (e *testEnv) seedShort(t *testing.T, status string, autoGenerate bool, credits int) *types.Short {
	t.Helper()
	ctx := context.Background()
	user := &types.User{ID: "user-1", CreditsCurrent: credits, CreditsTotal: credits}
	if err := e.db.WithContext(ctx).Create(user).Error; err != nil {
		t.Fatal(err)
	}
	short := &types.Short{
		ID:           "short-1",
		SegmentID:    "segment-1",
		VideoID:      "video-1",
		UID:          user.ID,
		ShortStatus:  status,
		AutoGenerate: autoGenerate,
	}
	if err := e.db.WithContext(ctx).Create(short).Error; err != nil {
		t.Fatal(err)
	}
	return short
}

func TestAdmissionSingleFlight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	short := env.seedShort(t, types.ShortStatusGenerateAudio, false, 10)

	req1, err := env.ledger.CreateForEntity(ctx, EndpointGenerateTestAudio, BindRequest, short.ID, short.UID, 1)
	if err != nil {
		t.Fatal(err)
	}
	req2, err := env.ledger.CreateForEntity(ctx, EndpointGenerateTestAudio, BindRequest, short.ID, short.UID, 1)
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	env.router.Register(EndpointGenerateTestAudio, StageFunc(func(ctx context.Context, sc *StageContext) error {
		close(started)
		<-release
		return nil
	}))

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = env.controller.Process(ctx, EndpointGenerateTestAudio, req1.ID)
	}()
	<-started

	_, err = env.controller.Process(ctx, EndpointGenerateTestAudio, req2.ID)
	if !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("second caller: want ErrAlreadyProcessing, got %v", err)
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first caller failed: %v", firstErr)
	}

	got1, err := env.requests.GetByID(ctx, nil, req1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got1.ServerStartedTimestamp == nil {
		t.Fatal("winner's server_started_timestamp not set")
	}
	if got1.Status != types.RequestStatusCompleted || got1.Progress != 100 {
		t.Fatalf("winner status %s progress %d", got1.Status, got1.Progress)
	}

	got2, err := env.requests.GetByID(ctx, nil, req2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got2.ServerStartedTimestamp != nil {
		t.Fatal("loser's server_started_timestamp must stay unset")
	}
	if got2.Status != types.RequestStatusPending {
		t.Fatalf("loser status %s, want pending", got2.Status)
	}

	reloaded, err := env.shorts.GetByID(ctx, nil, short.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.BackendStatus == types.BackendProcessing {
		t.Fatal("lock not released after the stage")
	}
}

func TestCreditExhaustionStopsChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	short := env.seedShort(t, types.ShortStatusGenerateAudio, true, 1)

	advanceTo := func(next string) StageFunc {
		return func(ctx context.Context, sc *StageContext) error {
			return env.shorts.UpdateFields(ctx, nil, sc.Short.ID, map[string]any{
				"short_status": next,
			})
		}
	}
	env.router.Register(EndpointGenerateTestAudio, advanceTo(types.ShortStatusGenerateIntro))
	env.router.Register(EndpointGenerateIntro, advanceTo(types.ShortStatusCreateShortVideo))

	req1, err := env.ledger.CreateForEntity(ctx, EndpointGenerateTestAudio, BindRequest, short.ID, short.UID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.controller.Process(ctx, EndpointGenerateTestAudio, req1.ID); err != nil {
		t.Fatalf("generate-test-audio: %v", err)
	}

	// The pre-debit balance of 1 funds the intro even though the account is
	// now empty.
	tasks := env.dispatcher.all()
	if len(tasks) != 1 || tasks[0].Endpoint != EndpointGenerateIntro {
		t.Fatalf("tasks after first stage: %+v", tasks)
	}
	user, err := env.users.GetByID(ctx, nil, short.UID)
	if err != nil {
		t.Fatal(err)
	}
	if user.CreditsCurrent != 0 {
		t.Fatalf("credits %d, want 0 after debit", user.CreditsCurrent)
	}

	if _, err := env.controller.Process(ctx, EndpointGenerateIntro, tasks[0].EntityID); err != nil {
		t.Fatalf("generate-intro: %v", err)
	}

	// Create Short Video costs 2 against a balance of 0: the chain cancels.
	if got := env.dispatcher.all(); len(got) != 1 {
		t.Fatalf("chain enqueued past exhaustion: %+v", got)
	}
	reloaded, err := env.shorts.GetByID(ctx, nil, short.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.AutoGenerate {
		t.Fatal("auto_generate must be cleared on credit exhaustion")
	}
	if reloaded.ShortStatus != types.ShortStatusCreateShortVideo {
		t.Fatalf("short status %s", reloaded.ShortStatus)
	}
	open, err := env.requests.FindOpen(ctx, nil, EndpointCreateShortVideo, types.OperandShort, short.ID)
	if err != nil {
		t.Fatal(err)
	}
	if open != nil {
		t.Fatalf("no create-short-video request should exist, got %+v", open)
	}
}

func TestStageFailureClosesLedgerAndLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	short := env.seedShort(t, types.ShortStatusGenerateAudio, true, 5)

	boom := errors.New("encode failed")
	env.router.Register(EndpointGenerateTestAudio, StageFunc(func(ctx context.Context, sc *StageContext) error {
		return boom
	}))
	req, err := env.ledger.CreateForEntity(ctx, EndpointGenerateTestAudio, BindRequest, short.ID, short.UID, 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.controller.Process(ctx, EndpointGenerateTestAudio, req.ID); !errors.Is(err, boom) {
		t.Fatalf("want stage error, got %v", err)
	}

	got, err := env.requests.GetByID(ctx, nil, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.RequestStatusFailed || got.Progress != 100 {
		t.Fatalf("request status %s progress %d", got.Status, got.Progress)
	}
	if got.CreditCost != 0 {
		t.Fatalf("failed request must not charge: credit_cost %d", got.CreditCost)
	}

	reloaded, err := env.shorts.GetByID(ctx, nil, short.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Error || reloaded.ErrorMessage == "" {
		t.Fatalf("short error not surfaced: %+v", reloaded)
	}
	if reloaded.AutoGenerate {
		t.Fatal("auto_generate must be cleared on failure")
	}
	if reloaded.BackendStatus == types.BackendProcessing {
		t.Fatal("lock not released on failure")
	}
	user, err := env.users.GetByID(ctx, nil, short.UID)
	if err != nil {
		t.Fatal(err)
	}
	if user.CreditsCurrent != 5 {
		t.Fatalf("credits %d, failure must not debit", user.CreditsCurrent)
	}
}

func TestStagePanicIsContained(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	short := env.seedShort(t, types.ShortStatusGenerateAudio, false, 5)

	env.router.Register(EndpointGenerateTestAudio, StageFunc(func(ctx context.Context, sc *StageContext) error {
		panic("nil frame")
	}))
	req, err := env.ledger.CreateForEntity(ctx, EndpointGenerateTestAudio, BindRequest, short.ID, short.UID, 1)
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.controller.Process(ctx, EndpointGenerateTestAudio, req.ID)
	if err == nil {
		t.Fatal("panic must surface as an error")
	}

	got, err := env.requests.GetByID(ctx, nil, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.RequestStatusFailed {
		t.Fatalf("request status %s, want failed", got.Status)
	}
	reloaded, err := env.shorts.GetByID(ctx, nil, short.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.BackendStatus == types.BackendProcessing {
		t.Fatal("lock not released after panic")
	}
}

func TestEntityBoundEndpointOpensRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	short := env.seedShort(t, types.ShortStatusCreateShortVideo, false, 5)

	env.router.Register(EndpointCreateShortVideo, StageFunc(func(ctx context.Context, sc *StageContext) error {
		return nil
	}))

	result, err := env.controller.Process(ctx, EndpointCreateShortVideo, short.ID)
	if err != nil {
		t.Fatal(err)
	}
	got, err := env.requests.GetByID(ctx, nil, result.RequestID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ShortID != short.ID || got.RequestEndpoint != EndpointCreateShortVideo {
		t.Fatalf("auto-opened request %+v", got)
	}
	if got.Status != types.RequestStatusCompleted {
		t.Fatalf("request status %s", got.Status)
	}
	if got.CreditCost != 2 {
		t.Fatalf("credit cost %d, want 2", got.CreditCost)
	}
}
