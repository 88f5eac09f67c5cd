package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// Client drives the third-party TikTok scraper actors: start a run, long-poll
// until it reaches a terminal state, then page the dataset items out.
type Client interface {
	StartActor(ctx context.Context, actorID string, input any) (runID string, err error)
	WaitForRun(ctx context.Context, runID string) (*RunInfo, error)
	DatasetItems(ctx context.Context, datasetID string, limit int, out any) error
}

type RunInfo struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusAborted   = "ABORTED"
	RunStatusTimedOut  = "TIMED-OUT"
)

func (r *RunInfo) Terminal() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusAborted, RunStatusTimedOut:
		return true
	default:
		return false
	}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	token      string
	httpClient *http.Client
	pollEvery  time.Duration
}

func NewClient(log *logger.Logger) (Client, error) {
	token := strings.TrimSpace(os.Getenv("APIFY_TOKEN"))
	if token == "" {
		return nil, fmt.Errorf("missing APIFY_TOKEN")
	}
	baseURL := strings.TrimSpace(os.Getenv("APIFY_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.apify.com"
	}
	return &client{
		log:        log.With("service", "ApifyClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		pollEvery:  5 * time.Second,
	}, nil
}

func (c *client) StartActor(ctx context.Context, actorID string, input any) (string, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal actor input: %w", err)
	}
	url := fmt.Sprintf("%s/v2/acts/%s/runs?token=%s", c.baseURL, actorID, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	var payload struct {
		Data RunInfo `json:"data"`
	}
	if err := c.do(req, &payload); err != nil {
		return "", err
	}
	if payload.Data.ID == "" {
		return "", fmt.Errorf("actor run did not return an id")
	}
	return payload.Data.ID, nil
}

func (c *client) WaitForRun(ctx context.Context, runID string) (*RunInfo, error) {
	for {
		url := fmt.Sprintf("%s/v2/actor-runs/%s?token=%s", c.baseURL, runID, c.token)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Data RunInfo `json:"data"`
		}
		if err := c.do(req, &payload); err != nil {
			return nil, err
		}
		if payload.Data.Terminal() {
			return &payload.Data, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollEvery):
		}
	}
}

func (c *client) DatasetItems(ctx context.Context, datasetID string, limit int, out any) error {
	if limit <= 0 {
		limit = 100
	}
	url := fmt.Sprintf("%s/v2/datasets/%s/items?token=%s&limit=%d&clean=true", c.baseURL, datasetID, c.token, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apify request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read apify response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("apify status=%d body=%s", resp.StatusCode, truncate(string(raw), 400))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode apify response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
