package lookup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/KakuleMalambo/voice-assistant/internal/httpc"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 64 << 10

// WeatherClient looks up current conditions on a wttr.in style endpoint,
// which answers GET /<location>?format=3 with a single line of text.
type WeatherClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewWeatherClient creates a WeatherClient. A nil client uses httpc.Client.
func NewWeatherClient(baseURL string, client *http.Client, logger *slog.Logger) *WeatherClient {
	if client == nil {
		client = httpc.Client
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With("component", "lookup.weather"),
	}
}

// Lookup returns a one-line description of the weather at location.
func (w *WeatherClient) Lookup(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", ErrEmptyQuery
	}

	endpoint := fmt.Sprintf("%s/%s?format=3", w.baseURL, url.PathEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	w.logger.Debug("weather lookup", "location", location)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{
			Service:    "weather service",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("The weather service returned no conditions for %s.", location), nil
	}
	if strings.Contains(text, "Unknown location") {
		return fmt.Sprintf("I couldn't find the weather for %s.", location), nil
	}
	return fmt.Sprintf("The weather in %s is %s", location, conditions(text)), nil
}

// conditions strips the "<location>:" prefix wttr.in puts in front of the
// report.
func conditions(text string) string {
	if i := strings.Index(text, ":"); i >= 0 {
		if rest := strings.TrimSpace(text[i+1:]); rest != "" {
			return rest
		}
	}
	return text
}
