package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/clipforge-backend/internal/platform/envutil"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// StageCosts maps request endpoints to credit costs. Loaded from a YAML file
// when STAGE_COSTS_PATH is set, otherwise the built-in defaults apply.
type StageCosts struct {
	Costs map[string]int `yaml:"costs"`
}

func defaultStageCosts() map[string]int {
	return map[string]int{
		EndpointTemporalSegmentation: 1,
		EndpointGenerateTestAudio:    1,
		EndpointGenerateIntro:        1,
		EndpointCreateShortVideo:     2,
		EndpointGetSaliency:          1,
		EndpointDetermineBoundaries:  1,
		EndpointGetBoundingBoxes:     1,
		EndpointGenerateARoll:        2,
		EndpointGenerateBRoll:        1,
		EndpointGenerateIntroVideo:   1,
		EndpointCreateCroppedVideo:   2,
		EndpointCropSegment:          0,
		EndpointManualOverride:       0,
		EndpointCollectTikTokData:    0,
	}
}

func LoadStageCosts(log *logger.Logger) (*StageCosts, error) {
	costs := &StageCosts{Costs: defaultStageCosts()}
	path := envutil.GetEnv("STAGE_COSTS_PATH", "", log)
	if path == "" {
		return costs, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage costs %s: %w", path, err)
	}
	var file StageCosts
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse stage costs %s: %w", path, err)
	}
	// File entries override defaults endpoint by endpoint.
	for endpoint, cost := range file.Costs {
		if cost < 0 {
			return nil, fmt.Errorf("stage cost for %s is negative", endpoint)
		}
		costs.Costs[endpoint] = cost
	}
	return costs, nil
}

// Cost returns the credit cost of an endpoint; unknown endpoints cost nothing.
func (c *StageCosts) Cost(endpoint string) int {
	return c.Costs[endpoint]
}
