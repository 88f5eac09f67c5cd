package pipeline

import (
	"context"
	"fmt"

	"github.com/yungbote/clipforge-backend/internal/types"
)

// Pipeline endpoints. The set is closed: the router refuses anything else.
const (
	EndpointTemporalSegmentation = "temporal-segmentation"
	EndpointGenerateTestAudio    = "generate-test-audio"
	EndpointGenerateIntro        = "generate-intro"
	EndpointCreateShortVideo     = "create-short-video"
	EndpointGetSaliency          = "get_saliency_for_short"
	EndpointDetermineBoundaries  = "determine-boundaries"
	EndpointGetBoundingBoxes     = "get-bounding-boxes"
	EndpointGenerateARoll        = "generate-a-roll"
	EndpointGenerateBRoll        = "generate-b-roll"
	EndpointGenerateIntroVideo   = "generate-intro-video"
	EndpointCreateCroppedVideo   = "create-cropped-video"
	EndpointCropSegment          = "crop-segment"
	EndpointManualOverride       = "manual-override-transcript"
	EndpointCollectTikTokData    = "collect-tiktok-data"
)

// Binding says what the id in the route names for a given endpoint: either a
// request document, or the target entity itself.
type Binding int

const (
	BindRequest Binding = iota
	BindShort
	BindVideo
	BindSegment
)

// endpointBindings is the closed route table. Request-bound endpoints resolve
// their entity through the request document; entity-bound endpoints look up
// (or create) their request by endpoint and entity id.
var endpointBindings = map[string]Binding{
	EndpointTemporalSegmentation: BindRequest,
	EndpointGenerateTestAudio:    BindRequest,
	EndpointGenerateIntro:        BindRequest,
	EndpointGenerateIntroVideo:   BindRequest,
	EndpointManualOverride:       BindRequest,
	EndpointCreateShortVideo:     BindShort,
	EndpointGetSaliency:          BindShort,
	EndpointDetermineBoundaries:  BindShort,
	EndpointGetBoundingBoxes:     BindShort,
	EndpointGenerateARoll:        BindShort,
	EndpointGenerateBRoll:        BindShort,
	EndpointCreateCroppedVideo:   BindShort,
	EndpointCollectTikTokData:    BindShort,
	EndpointCropSegment:          BindSegment,
}

// BindingFor reports how an endpoint's route id resolves.
func BindingFor(endpoint string) (Binding, bool) {
	b, ok := endpointBindings[endpoint]
	return b, ok
}

// operandFor maps a binding to the request operand that rides on the ledger.
func operandFor(b Binding) string {
	switch b {
	case BindVideo:
		return types.OperandVideo
	case BindSegment:
		return types.OperandSegment
	default:
		return types.OperandShort
	}
}

// StageContext carries everything a stage handler may touch: the ledger
// request plus the admitted entity snapshot taken under the Processing lock.
type StageContext struct {
	Request *types.Request
	Short   *types.Short
	Segment *types.TopicalSegment
	Video   *types.Video
}

// StageHandler is one pipeline stage. Run must be idempotent: the dispatcher
// is at-least-once and user retries reach the same entry point.
type StageHandler interface {
	Run(ctx context.Context, sc *StageContext) error
}

// StageFunc adapts a plain function to StageHandler.
type StageFunc func(ctx context.Context, sc *StageContext) error

func (f StageFunc) Run(ctx context.Context, sc *StageContext) error { return f(ctx, sc) }

// Router holds the closed endpoint → handler map.
type Router struct {
	handlers map[string]StageHandler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]StageHandler)}
}

func (r *Router) Register(endpoint string, h StageHandler) {
	if _, ok := endpointBindings[endpoint]; !ok {
		panic(fmt.Sprintf("register: unknown pipeline endpoint %q", endpoint))
	}
	r.handlers[endpoint] = h
}

func (r *Router) Resolve(endpoint string) (StageHandler, error) {
	h, ok := r.handlers[endpoint]
	if !ok {
		return nil, fmt.Errorf("no handler registered for endpoint %q", endpoint)
	}
	return h, nil
}

// Endpoints lists all registered endpoints, for route wiring.
func (r *Router) Endpoints() []string {
	out := make([]string, 0, len(r.handlers))
	for endpoint := range r.handlers {
		out = append(out, endpoint)
	}
	return out
}
