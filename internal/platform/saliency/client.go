package saliency

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

// Client fires the external saliency inference for a short. The endpoint
// writes the per-pixel saliency video to blob storage itself and records the
// key on the short document; this client only triggers and waits.
type Client interface {
	GenerateForShort(ctx context.Context, shortID string) error
}

type client struct {
	log         *logger.Logger
	endpoint    string
	bearerToken string
	httpClient  *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	endpoint := strings.TrimSpace(os.Getenv("SALIENCY_ENDPOINT_ADDRESS"))
	if endpoint == "" {
		return nil, fmt.Errorf("missing SALIENCY_ENDPOINT_ADDRESS")
	}
	token := strings.TrimSpace(os.Getenv("SALIENCY_BEARER_TOKEN"))
	if token == "" {
		return nil, fmt.Errorf("missing SALIENCY_BEARER_TOKEN")
	}
	return &client{
		log:         log.With("service", "SaliencyClient"),
		endpoint:    strings.TrimRight(endpoint, "/"),
		bearerToken: token,
		// Saliency inference decodes the whole clip; it is the slowest
		// external call in the pipeline.
		httpClient: &http.Client{Timeout: 20 * time.Minute},
	}, nil
}

func (c *client) GenerateForShort(ctx context.Context, shortID string) error {
	body, err := json.Marshal(map[string]string{"short_id": shortID})
	if err != nil {
		return fmt.Errorf("marshal saliency request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("saliency request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("saliency status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
