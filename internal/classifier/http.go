package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient calls a remote model service to classify threat text. The
// service contract is a simple POST returning {"threat_class": "..."}.
type HTTPClient struct {
	URL    string
	Client *http.Client
}

// NewHTTPClient returns a classifier client with a bounded request timeout.
func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	ThreatClass string `json:"threat_class"`
}

// Classify sends the text to the model service and returns its label.
func (c *HTTPClient) Classify(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyInput
	}

	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned HTTP %d", resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode classify response: %w", err)
	}
	if parsed.ThreatClass == "" {
		return "", fmt.Errorf("classifier returned empty label")
	}

	return parsed.ThreatClass, nil
}
