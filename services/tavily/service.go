package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vaibhav23244/multi-agent-backend/models"
)

const (
	DefaultAPIURL = "https://api.tavily.com"

	GreetingReply = "Hello! I can look up GitHub repositories and search the web for you. How can I assist you today?"
	FarewellReply = "Goodbye! Have a great day!"
	NoAnswer      = "No answer found."

	searchFailure = "There was an error performing the search. Error: %s"
)

var (
	greetings = []string{"hello", "hi", "hey", "greetings"}
	farewells = []string{"bye", "goodbye", "see you", "take care"}
)

type Service struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewService(apiKey, baseURL string, timeout time.Duration) *Service {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Service{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeImages     bool     `json:"include_images"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
}

type searchResponse struct {
	Answer *string `json:"answer"`
}

// CannedReply returns the fixed reply for greetings and farewells. Matching is
// a case-insensitive substring test, greetings first.
func CannedReply(query string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	contains := func(phrase string) bool { return strings.Contains(normalized, phrase) }

	if lo.SomeBy(greetings, contains) {
		return GreetingReply, true
	}
	if lo.SomeBy(farewells, contains) {
		return FarewellReply, true
	}
	return "", false
}

// Search answers query with a single synthesized web search answer. Failures
// are returned as *models.ToolError carrying the text to narrate to the model.
func (s *Service) Search(ctx context.Context, query string) (string, error) {
	logger := zerolog.Ctx(ctx)

	if reply, ok := CannedReply(query); ok {
		logger.Info().Msg("Answering greeting or farewell without a search")
		return reply, nil
	}

	logger.Info().Str("query", query).Msg("Starting web search")

	payload, err := json.Marshal(searchRequest{
		APIKey:         s.apiKey,
		Query:          query,
		SearchDepth:    "advanced",
		IncludeAnswer:  true,
		MaxResults:     1,
		IncludeDomains: []string{},
		ExcludeDomains: []string{},
	})
	if err != nil {
		return "", searchError(models.ToolErrorTransport, err.Error(), err)
	}

	url := s.baseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", searchError(models.ToolErrorTransport, err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reach Tavily")
		return "", searchError(models.ToolErrorTransport, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := models.ToolErrorUpstream
		if resp.StatusCode == http.StatusNotFound {
			kind = models.ToolErrorNotFound
		}
		logger.Error().Int("status", resp.StatusCode).Msg("Tavily returned an error status")
		return "", searchError(kind, fmt.Sprintf("%s for url: %s", resp.Status, url), nil)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		logger.Error().Err(err).Msg("Failed to decode Tavily response")
		return "", searchError(models.ToolErrorDecode, err.Error(), err)
	}

	if data.Answer == nil {
		logger.Info().Msg("Search returned no answer")
		return NoAnswer, nil
	}

	logger.Info().Int("answer_length", len(*data.Answer)).Msg("Successfully completed web search")
	return *data.Answer, nil
}

func searchError(kind models.ToolErrorKind, detail string, err error) *models.ToolError {
	return &models.ToolError{
		Kind:    kind,
		Message: fmt.Sprintf(searchFailure, detail),
		Err:     err,
	}
}
