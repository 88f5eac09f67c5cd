package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/clipforge-backend/internal/platform/openai"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// IndexRange is a closed word-index range returned by an editorial decision.
type IndexRange struct {
	Start       int    `json:"start_index"`
	End         int    `json:"end_index"`
	Explanation string `json:"explanation,omitempty"`
}

// TranscriptOracle answers the editorial questions the transcript editor
// asks. The production implementation is backed by the chat model; tests
// inject deterministic oracles.
type TranscriptOracle interface {
	// NeedsCropping reports whether the transcript still needs trimming.
	NeedsCropping(ctx context.Context, transcript, idea string) (bool, error)
	// DeleteRange picks the next range to remove from the current transcript.
	DeleteRange(ctx context.Context, transcript, idea string) (IndexRange, error)
	// Boundaries picks the span of the transcript the short should keep.
	Boundaries(ctx context.Context, transcript, idea string) (IndexRange, error)
	// Unnecessary lists filler ranges inside the kept span.
	Unnecessary(ctx context.Context, transcript, idea string) ([]IndexRange, error)
	// Hook picks the opening hook inside the kept, re-indexed stream.
	Hook(ctx context.Context, transcript, idea string) (IndexRange, error)
	// IntroDecision decides whether the short needs a spoken intro and, if
	// so, writes its transcript.
	IntroDecision(ctx context.Context, transcript, idea string) (bool, string, error)
}

type llmOracle struct {
	llm openai.Client
}

func NewTranscriptOracle(llm openai.Client) TranscriptOracle {
	return &llmOracle{llm: llm}
}

// indexedTranscript renders words with their index labels so the model can
// answer in ranges.
func indexedTranscript(words []types.Word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "[%d]%s", w.Index, w.Word)
	}
	return b.String()
}

func (o *llmOracle) NeedsCropping(ctx context.Context, transcript, idea string) (bool, error) {
	var out struct {
		NeedsCropping bool   `json:"needs_cropping"`
		Reason        string `json:"reason"`
	}
	system := "You judge whether a short-form video transcript still contains content that should be cut. Answer as JSON {\"needs_cropping\": bool, \"reason\": string}."
	user := fmt.Sprintf("Idea: %s\n\nTranscript (words labelled [index]word):\n%s", idea, transcript)
	if err := o.llm.ChatJSON(ctx, system, user, &out); err != nil {
		return false, err
	}
	return out.NeedsCropping, nil
}

func (o *llmOracle) DeleteRange(ctx context.Context, transcript, idea string) (IndexRange, error) {
	var out IndexRange
	system := "You pick the single worst span of a transcript to delete for a short-form video. Answer as JSON {\"start_index\": int, \"end_index\": int, \"explanation\": string} using the [index] labels."
	user := fmt.Sprintf("Idea: %s\n\nTranscript:\n%s", idea, transcript)
	if err := o.llm.ChatJSON(ctx, system, user, &out); err != nil {
		return IndexRange{}, err
	}
	return out, nil
}

func (o *llmOracle) Boundaries(ctx context.Context, transcript, idea string) (IndexRange, error) {
	var out IndexRange
	system := "You pick the span of a transcript a short-form video should keep. Answer as JSON {\"start_index\": int, \"end_index\": int, \"explanation\": string} using the [index] labels."
	user := fmt.Sprintf("Idea: %s\n\nTranscript:\n%s", idea, transcript)
	if err := o.llm.ChatJSON(ctx, system, user, &out); err != nil {
		return IndexRange{}, err
	}
	return out, nil
}

func (o *llmOracle) Unnecessary(ctx context.Context, transcript, idea string) ([]IndexRange, error) {
	var out struct {
		Ranges []IndexRange `json:"ranges"`
	}
	system := "You list filler spans to remove from a transcript. Answer as JSON {\"ranges\": [{\"start_index\": int, \"end_index\": int, \"explanation\": string}]} using the [index] labels. An empty list is a valid answer."
	user := fmt.Sprintf("Idea: %s\n\nTranscript:\n%s", idea, transcript)
	if err := o.llm.ChatJSON(ctx, system, user, &out); err != nil {
		return nil, err
	}
	return out.Ranges, nil
}

func (o *llmOracle) Hook(ctx context.Context, transcript, idea string) (IndexRange, error) {
	var out IndexRange
	system := "You pick the opening hook of a short-form video from its final transcript. Answer as JSON {\"start_index\": int, \"end_index\": int, \"explanation\": string} using the [index] labels."
	user := fmt.Sprintf("Idea: %s\n\nTranscript:\n%s", idea, transcript)
	if err := o.llm.ChatJSON(ctx, system, user, &out); err != nil {
		return IndexRange{}, err
	}
	return out, nil
}

func (o *llmOracle) IntroDecision(ctx context.Context, transcript, idea string) (bool, string, error) {
	var out struct {
		NeedsContext    bool   `json:"needs_context"`
		IntroTranscript string `json:"intro_transcript"`
	}
	system := "You decide whether a short-form video needs a one-sentence spoken intro for context. Answer as JSON {\"needs_context\": bool, \"intro_transcript\": string}."
	user := fmt.Sprintf("Idea: %s\n\nTranscript:\n%s", idea, transcript)
	if err := o.llm.ChatJSON(ctx, system, user, &out); err != nil {
		return false, "", err
	}
	return out.NeedsContext, strings.TrimSpace(out.IntroTranscript), nil
}
