package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"

	"github.com/vaibhav23244/multi-agent-backend/models"
)

// AgentTool interface that all tools must implement
type AgentTool interface {
	Name() string
	Description() string
	// Call runs the tool with the raw JSON arguments produced by the model.
	// Lookup failures are reported inside the output; a returned error means
	// the call itself could not be made.
	Call(ctx context.Context, input string) (models.ToolOutput, error)
	InputSchema() *jsonschema.Schema
}

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// toolParameters renders a tool schema as the plain JSON-schema object that
// function-calling APIs expect.
func toolParameters(schema *jsonschema.Schema) map[string]any {
	params := map[string]any{
		"type":       "object",
		"properties": schema.Properties,
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	return params
}

// Registry holds the tools advertised to the model. It is built once at
// startup and never modified afterwards.
type Registry struct {
	tools      []AgentTool
	byName     map[string]AgentTool
	validators map[string]*gojsonschema.Schema
}

func NewRegistry(tools ...AgentTool) (*Registry, error) {
	r := &Registry{
		byName:     make(map[string]AgentTool, len(tools)),
		validators: make(map[string]*gojsonschema.Schema, len(tools)),
	}

	for _, tool := range tools {
		name := tool.Name()
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}

		raw, err := json.Marshal(toolParameters(tool.InputSchema()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for tool %s: %w", name, err)
		}
		validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for tool %s: %w", name, err)
		}

		r.tools = append(r.tools, tool)
		r.byName[name] = tool
		r.validators[name] = validator
	}

	return r, nil
}

func (r *Registry) Lookup(name string) (AgentTool, bool) {
	tool, ok := r.byName[name]
	return tool, ok
}

func (r *Registry) Tools() []AgentTool {
	return append([]AgentTool(nil), r.tools...)
}

func (r *Registry) Names() []string {
	return lo.Map(r.tools, func(t AgentTool, _ int) string {
		return t.Name()
	})
}

// Validate checks raw JSON tool arguments against the tool's input schema.
func (r *Registry) Validate(name string, args []byte) error {
	return r.validate(name, gojsonschema.NewBytesLoader(args))
}

// ValidateValue is Validate for arguments that were already decoded.
func (r *Registry) ValidateValue(name string, args any) error {
	return r.validate(name, gojsonschema.NewGoLoader(args))
}

func (r *Registry) validate(name string, doc gojsonschema.JSONLoader) error {
	validator, ok := r.validators[name]
	if !ok {
		return fmt.Errorf("tool %s not found", name)
	}

	result, err := validator.Validate(doc)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := lo.Map(result.Errors(), func(e gojsonschema.ResultError, _ int) string {
			return e.String()
		})
		return fmt.Errorf("invalid arguments for %s: %s", name, strings.Join(msgs, "; "))
	}
	return nil
}

// Suggest returns the registered tool name closest to name, if any is close.
func (r *Registry) Suggest(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	names := r.Names()
	if ranks := fuzzy.RankFindFold(name, names); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target, true
	}

	best, bestDist := "", -1
	for _, candidate := range names {
		d := fuzzy.LevenshteinDistance(strings.ToLower(name), candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist >= 0 && bestDist <= len(best)/3 {
		return best, true
	}
	return "", false
}

// narrate converts a lookup failure into tool output, leaving other errors
// to the caller.
func narrate(err error) (models.ToolOutput, bool) {
	var toolErr *models.ToolError
	if !errors.As(err, &toolErr) {
		return models.ToolOutput{}, false
	}
	return models.ToolOutput{Content: toolErr.Message, ErrorKind: toolErr.Kind}, true
}

type RepoDescriber interface {
	DescribeRepo(ctx context.Context, query string) (*models.RepoSummary, error)
}

type GithubRepoToolInput struct {
	Query string `json:"query" jsonschema:"required,description=A natural language query about a GitHub repository."`
}

type GithubRepoTool struct {
	service RepoDescriber
}

func NewGithubRepoTool(service RepoDescriber) GithubRepoTool {
	return GithubRepoTool{service: service}
}

func (g GithubRepoTool) Name() string {
	return "github-repo"
}

func (g GithubRepoTool) Description() string {
	return "Get brief information about a GitHub repository based on a natural language query."
}

func (g GithubRepoTool) Call(ctx context.Context, input string) (models.ToolOutput, error) {
	var params GithubRepoToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutput{}, fmt.Errorf("failed to parse github repo tool input: %w", err)
	}

	summary, err := g.service.DescribeRepo(ctx, params.Query)
	if err != nil {
		if out, ok := narrate(err); ok {
			return out, nil
		}
		return models.ToolOutput{}, fmt.Errorf("failed to describe repository: %w", err)
	}

	result, err := json.Marshal(summary)
	if err != nil {
		return models.ToolOutput{}, fmt.Errorf("failed to marshal repository summary: %w", err)
	}

	return models.ToolOutput{Content: string(result)}, nil
}

func (g GithubRepoTool) InputSchema() *jsonschema.Schema {
	return generateSchema[GithubRepoToolInput]()
}

type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type TavilySearchToolInput struct {
	Query string `json:"query" jsonschema:"required,description=A natural language query."`
}

type TavilySearchTool struct {
	service WebSearcher
}

func NewTavilySearchTool(service WebSearcher) TavilySearchTool {
	return TavilySearchTool{service: service}
}

func (t TavilySearchTool) Name() string {
	return "tavily-search"
}

func (t TavilySearchTool) Description() string {
	return "Perform a web search using the Tavily API to answer user queries."
}

func (t TavilySearchTool) Call(ctx context.Context, input string) (models.ToolOutput, error) {
	var params TavilySearchToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutput{}, fmt.Errorf("failed to parse tavily search tool input: %w", err)
	}

	answer, err := t.service.Search(ctx, params.Query)
	if err != nil {
		if out, ok := narrate(err); ok {
			return out, nil
		}
		return models.ToolOutput{}, fmt.Errorf("failed to search: %w", err)
	}

	return models.ToolOutput{Content: answer}, nil
}

func (t TavilySearchTool) InputSchema() *jsonschema.Schema {
	return generateSchema[TavilySearchToolInput]()
}
