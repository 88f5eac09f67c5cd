package gcp

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv resolves GCP credentials. Deployments carry the service
// account as base64 JSON in SERVICE_ACCOUNT_ENCODED; local runs may point
// GOOGLE_APPLICATION_CREDENTIALS at a file instead.
func ClientOptionsFromEnv() ([]option.ClientOption, error) {
	encoded := strings.TrimSpace(os.Getenv("SERVICE_ACCOUNT_ENCODED"))
	if encoded != "" {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode SERVICE_ACCOUNT_ENCODED: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(raw)}, nil
	}
	if path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}, nil
	}
	return nil, nil
}
