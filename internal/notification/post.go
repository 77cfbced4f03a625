package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// poster delivers JSON bodies for the HTTP-based notifiers.
type poster struct {
	name   string
	client *http.Client
	logger *slog.Logger
}

func newPoster(name string) poster {
	return poster{
		name:   name,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: slog.Default().With(slog.String("component", "notify"), slog.String("backend", name)),
	}
}

// post sends payload to url and fails on any non-2xx status.
func (p poster) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", p.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", p.name, resp.StatusCode)
	}
	return nil
}
