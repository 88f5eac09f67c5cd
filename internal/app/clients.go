package app

import (
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/auth"
	"github.com/yungbote/clipforge-backend/internal/dispatch"
	"github.com/yungbote/clipforge-backend/internal/platform/apify"
	"github.com/yungbote/clipforge-backend/internal/platform/elevenlabs"
	"github.com/yungbote/clipforge-backend/internal/platform/ffmpegx"
	"github.com/yungbote/clipforge-backend/internal/platform/gcp"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/platform/openai"
	"github.com/yungbote/clipforge-backend/internal/platform/saliency"
)

// Clients holds every external surface: blob store, media tools, model
// providers, the auth token service, and the redis task queue.
type Clients struct {
	Bucket     gcp.BucketService
	FF         ffmpegx.Tools
	LLM        openai.Client
	TTS        elevenlabs.Client
	Saliency   saliency.Client
	Apify      apify.Client
	Tokens     *auth.TokenService
	Queue      dispatch.Queue
	Dispatcher dispatch.Dispatcher
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket service: %w", err)
	}
	llm, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	tts, err := elevenlabs.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init elevenlabs client: %w", err)
	}
	sal, err := saliency.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init saliency client: %w", err)
	}
	apifyClient, err := apify.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init apify client: %w", err)
	}
	tokens, err := auth.NewTokenService()
	if err != nil {
		return Clients{}, fmt.Errorf("init token service: %w", err)
	}
	queue, err := dispatch.NewQueue(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init task queue: %w", err)
	}
	dispatcher, err := dispatch.NewDispatcher(log, queue, tokens)
	if err != nil {
		return Clients{}, fmt.Errorf("init dispatcher: %w", err)
	}

	return Clients{
		Bucket:     bucket,
		FF:         ffmpegx.New(log),
		LLM:        llm,
		TTS:        tts,
		Saliency:   sal,
		Apify:      apifyClient,
		Tokens:     tokens,
		Queue:      queue,
		Dispatcher: dispatcher,
	}, nil
}
