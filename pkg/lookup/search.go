package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/KakuleMalambo/voice-assistant/internal/httpc"
)

// MaxSearchResults is the most results ever included in an answer.
const MaxSearchResults = 5

// SearchConfig configures a SearchClient.
type SearchConfig struct {
	BaseURL  string
	APIKey   string
	Count    int
	Language string
	Client   *http.Client
	Logger   *slog.Logger
}

// SearchResult is one ranked web result.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchClient queries the Brave Search web endpoint.
type SearchClient struct {
	baseURL  string
	apiKey   string
	count    int
	language string
	client   *http.Client
	logger   *slog.Logger
}

// NewSearchClient creates a SearchClient. An empty APIKey is allowed; every
// Search then fails with ErrMissingCredential without touching the network.
func NewSearchClient(cfg SearchConfig) *SearchClient {
	if cfg.Client == nil {
		cfg.Client = httpc.Client
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Count <= 0 || cfg.Count > MaxSearchResults {
		cfg.Count = MaxSearchResults
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &SearchClient{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		count:    cfg.Count,
		language: cfg.Language,
		client:   cfg.Client,
		logger:   cfg.Logger.With("component", "lookup.search"),
	}
}

// Configured reports whether an API key is present.
func (s *SearchClient) Configured() bool {
	return s.apiKey != ""
}

// Search runs query and formats up to MaxSearchResults results.
func (s *SearchClient) Search(ctx context.Context, query string) (string, error) {
	if !s.Configured() {
		return "", ErrMissingCredential
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	results, err := s.fetch(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatResults(query, results), nil
}

func (s *SearchClient) fetch(ctx context.Context, query string) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(s.count))
	q.Set("search_lang", s.language)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	s.logger.Debug("web search", "query", query, "count", s.count)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{
			Service:    "search service",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var data struct {
		Web struct {
			Results []SearchResult `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes*16)).Decode(&data); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return data.Web.Results, nil
}

// FormatResults renders results as numbered entries. It never returns an
// empty string: zero results produce an explicit "no results" sentence.
func FormatResults(query string, results []SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No search results found for %q.", query)
	}
	if len(results) > MaxSearchResults {
		results = results[:MaxSearchResults]
	}

	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = fmt.Sprintf("%d. %s\n URL: %s\n Description: %s", i+1, r.Title, r.URL, r.Description)
	}
	return strings.Join(entries, "\n\n")
}
