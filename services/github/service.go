package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vaibhav23244/multi-agent-backend/models"
)

const (
	DefaultAPIURL = "https://api.github.com"
	apiVersion    = "2022-11-28"

	parseGuidance = "Could not parse the repository information from the query. Please ensure you mention the repository in the format 'owner/repo'."
	fetchFailure  = "There was an error fetching the repository. Please check the owner and repo names. Error: %s"
	noUseCases    = "No relevant use cases were found."
)

var repoPattern = regexp.MustCompile(`([a-zA-Z0-9-]+)/([a-zA-Z0-9-]+)`)

type Service struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewService(token, baseURL string, timeout time.Duration) *Service {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Service{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// ParseRepoQuery extracts the first owner/repo pair mentioned in a free-text query.
func ParseRepoQuery(query string) (owner, repo string, ok bool) {
	m := repoPattern.FindStringSubmatch(query)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

type repoResponse struct {
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
}

// DescribeRepo looks up the repository mentioned in query. Failures are
// returned as *models.ToolError carrying the text to narrate to the model.
func (s *Service) DescribeRepo(ctx context.Context, query string) (*models.RepoSummary, error) {
	logger := zerolog.Ctx(ctx)

	owner, repo, ok := ParseRepoQuery(query)
	if !ok {
		logger.Info().Str("query", query).Msg("No owner/repo pair found in query")
		return nil, &models.ToolError{Kind: models.ToolErrorInvalidQuery, Message: parseGuidance}
	}

	logger.Info().Str("owner", owner).Str("repo", repo).Msg("Starting repository lookup")

	url := fmt.Sprintf("%s/repos/%s/%s", s.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fetchError(models.ToolErrorTransport, err.Error(), err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("url", url).Msg("Failed to reach GitHub")
		return nil, fetchError(models.ToolErrorTransport, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := models.ToolErrorUpstream
		if resp.StatusCode == http.StatusNotFound {
			kind = models.ToolErrorNotFound
		}
		detail := fmt.Sprintf("%s for url: %s", resp.Status, url)
		logger.Error().Int("status", resp.StatusCode).Str("url", url).Msg("GitHub returned an error status")
		return nil, fetchError(kind, detail, nil)
	}

	var data repoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		logger.Error().Err(err).Msg("Failed to decode GitHub response")
		return nil, fetchError(models.ToolErrorDecode, err.Error(), err)
	}

	summary := &models.RepoSummary{
		Owner:             owner,
		Repo:              repo,
		Description:       data.Description,
		Stars:             data.StargazersCount,
		Language:          data.Language,
		SuggestedUseCases: SuggestUseCases(data.Description, data.Language),
	}

	logger.Info().Str("owner", owner).Str("repo", repo).Int("stars", summary.Stars).Msg("Successfully fetched repository")
	return summary, nil
}

func fetchError(kind models.ToolErrorKind, detail string, err error) *models.ToolError {
	return &models.ToolError{
		Kind:    kind,
		Message: fmt.Sprintf(fetchFailure, detail),
		Err:     err,
	}
}

type field int

const (
	fieldDescription field = iota
	fieldLanguage
)

// useCaseRule fires when any keyword is a case-insensitive substring of the
// selected field. Short keywords like "ui" and "ai" match inside longer words
// ("SwiftUI", "OpenAI") as well.
type useCaseRule struct {
	field    field
	keywords []string
	useCase  string
}

var useCaseRules = []useCaseRule{
	{
		field:    fieldDescription,
		keywords: []string{"ui", "frontend", "front-end", "user interface"},
		useCase:  "Can be used as a reference for building user interfaces",
	},
	{
		field:    fieldLanguage,
		keywords: []string{"typescript"},
		useCase:  "Useful for learning TypeScript best practices in web development",
	},
	{
		field:    fieldDescription,
		keywords: []string{"langchain"},
		useCase:  "Can be studied to understand LangChain implementation in web applications",
	},
	{
		field:    fieldDescription,
		keywords: []string{"ai", "generative"},
		useCase:  "Provides insights into integrating AI capabilities in web applications",
	},
}

// SuggestUseCases derives heuristic use cases from repository metadata.
func SuggestUseCases(description, language string) []string {
	matched := lo.Filter(useCaseRules, func(rule useCaseRule, _ int) bool {
		text := description
		if rule.field == fieldLanguage {
			text = language
		}
		return rule.matches(text)
	})

	useCases := lo.Map(matched, func(rule useCaseRule, _ int) string {
		return rule.useCase
	})
	if len(useCases) == 0 {
		return []string{noUseCases}
	}
	return useCases
}

func (r useCaseRule) matches(text string) bool {
	lower := strings.ToLower(text)
	return lo.SomeBy(r.keywords, func(k string) bool {
		return strings.Contains(lower, k)
	})
}
