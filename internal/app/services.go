package app

import (
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/dispatch"
	"github.com/yungbote/clipforge-backend/internal/media/overlay"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/pipeline/stages"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

type Services struct {
	Ledger     *pipeline.Ledger
	Guard      *pipeline.Guard
	Chain      *pipeline.Chain
	Costs      *pipeline.StageCosts
	Router     *pipeline.Router
	Controller *pipeline.Controller
	Overlay    *overlay.Service
	Worker     *dispatch.Worker
}

func wireServices(log *logger.Logger, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	costs, err := pipeline.LoadStageCosts(log)
	if err != nil {
		return Services{}, fmt.Errorf("load stage costs: %w", err)
	}

	ledger := pipeline.NewLedger(log, reposet.Request, reposet.User)
	guard := pipeline.NewGuard(log, reposet.Short, reposet.Video, reposet.Segment)
	chain := pipeline.NewChain(log, reposet.Short, ledger, costs, clients.Dispatcher)
	overlaySvc := overlay.NewService(log, clients.FF)

	deps := &stages.Deps{
		Log:       log,
		Shorts:    reposet.Short,
		Videos:    reposet.Video,
		Segments:  reposet.Segment,
		Users:     reposet.User,
		Stock:     reposet.StockAudio,
		Analytics: reposet.Analytics,
		Bucket:    clients.Bucket,
		FF:        clients.FF,
		Ledger:    ledger,
		LLM:       clients.LLM,
		TTS:       clients.TTS,
		Saliency:  clients.Saliency,
		Apify:     clients.Apify,
		Overlay:   overlaySvc,
	}
	oracle := stages.NewTranscriptOracle(clients.LLM)

	router := pipeline.NewRouter()
	router.Register(pipeline.EndpointTemporalSegmentation, stages.NewTranscriptEditor(deps, oracle))
	router.Register(pipeline.EndpointGenerateTestAudio, stages.NewAudioRebuilder(deps))
	router.Register(pipeline.EndpointGenerateIntro, stages.NewIntroGenerator(deps, oracle))
	router.Register(pipeline.EndpointGenerateIntroVideo, stages.NewIntroCompositor(deps))
	router.Register(pipeline.EndpointCreateShortVideo, stages.NewShortVideoCreator(deps))
	router.Register(pipeline.EndpointGetSaliency, stages.NewSaliencyStage(deps))
	router.Register(pipeline.EndpointDetermineBoundaries, stages.NewCutDetector(deps))
	router.Register(pipeline.EndpointGetBoundingBoxes, stages.NewBoundingBoxGenerator(deps))
	router.Register(pipeline.EndpointGenerateARoll, stages.NewVideoCropper(deps))
	router.Register(pipeline.EndpointGenerateBRoll, stages.NewBRollCompositor(deps))
	router.Register(pipeline.EndpointCreateCroppedVideo, stages.NewFinalCompositor(deps))
	router.Register(pipeline.EndpointCropSegment, stages.NewSegmentCropper(deps))
	router.Register(pipeline.EndpointManualOverride, stages.NewManualOverride(deps))
	router.Register(pipeline.EndpointCollectTikTokData, stages.NewAnalyticsPoller(deps))

	controller := pipeline.NewController(
		log,
		reposet.Request,
		reposet.Short,
		reposet.Video,
		reposet.Segment,
		reposet.User,
		router,
		ledger,
		guard,
		chain,
		costs,
	)

	return Services{
		Ledger:     ledger,
		Guard:      guard,
		Chain:      chain,
		Costs:      costs,
		Router:     router,
		Controller: controller,
		Overlay:    overlaySvc,
		Worker:     dispatch.NewWorker(log, clients.Queue),
	}, nil
}
