package types

// BackendStatus is the per-entity admission lock. Exactly one stage handler
// may hold Processing on an entity at a time; admission is a compare-and-set
// on this field.
type BackendStatus string

const (
	BackendPending    BackendStatus = "Pending"
	BackendProcessing BackendStatus = "Processing"
	BackendCompleted  BackendStatus = "Completed"
)

// ShortStatus values form the closed production chain. The controller advances
// a short strictly along this order; user resets are the only way back.
const (
	ShortStatusEditTranscript    = "Edit Transcript"
	ShortStatusGenerateAudio     = "Generate Audio"
	ShortStatusGenerateIntro     = "Generate Intro"
	ShortStatusCreateShortVideo  = "Create Short Video"
	ShortStatusGenerateSaliency  = "Generate Saliency"
	ShortStatusDetermineBounds   = "Determine Video Boundaries"
	ShortStatusGetBoundingBoxes  = "Get Bounding Boxes"
	ShortStatusGenerateARoll     = "Generate A-Roll"
	ShortStatusGenerateBRoll     = "Generate B-Roll"
	ShortStatusPreviewVideo      = "Preview Video"
	ShortStatusFinished          = "Finished"
	ShortStatusClippingFailed    = "Clipping Failed"
)

// Request lifecycle.
const (
	RequestStatusPending    = "pending"
	RequestStatusProcessing = "processing"
	RequestStatusCompleted  = "completed"
	RequestStatusFailed     = "failed"
)

// Request operands.
const (
	OperandShort   = "short"
	OperandVideo   = "video"
	OperandSegment = "segment"
	OperandNiche   = "niche"
	OperandQuery   = "query"
)
