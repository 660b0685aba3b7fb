package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav23244/multi-agent-backend/models"
)

// scriptedGateway replays canned replies and records every transcript it was sent.
type scriptedGateway struct {
	replies []Message
	err     error
	repeat  bool
	seen    []Transcript
}

func (g *scriptedGateway) Send(ctx context.Context, transcript Transcript) (Message, error) {
	g.seen = append(g.seen, append(Transcript(nil), transcript...))
	if g.err != nil {
		return Message{}, g.err
	}
	if len(g.replies) == 0 {
		return Message{}, errors.New("no scripted reply left")
	}
	reply := g.replies[0]
	if !g.repeat {
		g.replies = g.replies[1:]
	}
	return reply, nil
}

type fakeToolInput struct {
	Query string `json:"query" jsonschema:"required"`
}

type fakeTool struct {
	name   string
	out    models.ToolOutput
	err    error
	panics bool
	inputs []string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }

func (f *fakeTool) Call(ctx context.Context, input string) (models.ToolOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.panics {
		panic("kaboom")
	}
	return f.out, f.err
}

func (f *fakeTool) InputSchema() *jsonschema.Schema {
	return generateSchema[fakeToolInput]()
}

func newTestController(t *testing.T, gw Gateway, opts Options, tools ...AgentTool) *Controller {
	t.Helper()
	registry, err := NewRegistry(tools...)
	require.NoError(t, err)
	return NewController(gw, registry, opts)
}

func repoRequest(args string) Message {
	return ToolRequestMessage(ToolCall{ID: "call_1", Name: "github-repo", Arguments: args})
}

func TestRun_GreetingAnsweredDirectly(t *testing.T) {
	gw := &scriptedGateway{replies: []Message{AssistantMessage("Hello! How can I help you today?")}}
	repo := &fakeTool{name: "github-repo"}
	c := newTestController(t, gw, Options{MaxToolCalls: 5}, repo)

	outcome, err := c.Run(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help you today?", outcome.Answer)
	assert.True(t, outcome.Status)
	assert.Zero(t, outcome.ToolCalls)
	assert.NotEmpty(t, outcome.TurnID)
	assert.Empty(t, repo.inputs)
	require.Len(t, gw.seen, 1)
	assert.Equal(t, Transcript{SystemMessage(DefaultSystemPrompt), UserMessage("Hello")}, gw.seen[0])
}

func TestRun_RepositoryRoundTrip(t *testing.T) {
	summary := `{"owner":"octocat","repo":"Hello-World","description":"My first repository on GitHub!","stars":2500,"language":"","suggested_use_cases":["No relevant use cases were found."]}`
	gw := &scriptedGateway{replies: []Message{
		repoRequest(`{"query":"octocat/Hello-World"}`),
		AssistantMessage("octocat/Hello-World has 2500 stars."),
	}}
	repo := &fakeTool{name: "github-repo", out: models.ToolOutput{Content: summary}}
	c := newTestController(t, gw, Options{MaxToolCalls: 5}, repo)

	outcome, err := c.Run(context.Background(), "Tell me about octocat/Hello-World")
	require.NoError(t, err)

	assert.Equal(t, "octocat/Hello-World has 2500 stars.", outcome.Answer)
	assert.True(t, outcome.Status)
	assert.Equal(t, 1, outcome.ToolCalls)
	assert.Equal(t, []string{`{"query":"octocat/Hello-World"}`}, repo.inputs)

	require.Len(t, gw.seen, 2)
	last, ok := gw.seen[1].Last()
	require.True(t, ok)
	assert.Equal(t, KindToolResult, last.Kind)
	assert.Equal(t, summary, last.Content)
	assert.Equal(t, "call_1", last.ToolCall.ID)
	assert.Equal(t, "github-repo", last.ToolCall.Name)

	kinds := make([]Kind, 0, len(outcome.Transcript))
	for _, m := range outcome.Transcript {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []Kind{KindSystem, KindUser, KindAssistantToolRequest, KindToolResult, KindAssistantPlain}, kinds)
	assert.Equal(t, 1, outcome.Transcript.ToolCalls())
}

func TestRun_NarratedToolFailureReachesModel(t *testing.T) {
	narrated := "There was an error fetching the repository. Please check the owner and repo names. Error: 404 Not Found for url: https://api.github.com/repos/nobody/nothing"
	gw := &scriptedGateway{replies: []Message{
		repoRequest(`{"query":"nobody/nothing"}`),
		AssistantMessage("I couldn't find nobody/nothing. Do you want to try another repository?"),
	}}
	repo := &fakeTool{name: "github-repo", out: models.ToolOutput{Content: narrated, ErrorKind: models.ToolErrorNotFound}}
	c := newTestController(t, gw, Options{MaxToolCalls: 5}, repo)

	outcome, err := c.Run(context.Background(), "Tell me about nobody/nothing")
	require.NoError(t, err)

	assert.True(t, outcome.Status)
	assert.Equal(t, "I couldn't find nobody/nothing. Do you want to try another repository?", outcome.Answer)
	require.Len(t, gw.seen, 2)
	last, _ := gw.seen[1].Last()
	assert.Equal(t, narrated, last.Content)
	assert.Equal(t, models.ToolErrorNotFound, last.ErrorKind)
}

func TestRun_StrictModeEscalatesNarratedFailure(t *testing.T) {
	gw := &scriptedGateway{replies: []Message{repoRequest(`{"query":"nobody/nothing"}`)}}
	repo := &fakeTool{name: "github-repo", out: models.ToolOutput{Content: "not there", ErrorKind: models.ToolErrorNotFound}}
	c := newTestController(t, gw, Options{MaxToolCalls: 5, EscalateToolErrors: true}, repo)

	outcome, err := c.Run(context.Background(), "Tell me about nobody/nothing")
	require.NoError(t, err)

	assert.Equal(t, "An error occurred while using the tool: not there", outcome.Answer)
	assert.True(t, outcome.Status)
	assert.Len(t, gw.seen, 1)
}

func TestRun_UnknownTool(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		expected string
	}{
		{"no close match", "weather", "Attempted to call unknown function: weather"},
		{"close match hinted", "github_repo", `Attempted to call unknown function: github_repo (did you mean "github-repo"?)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &scriptedGateway{replies: []Message{
				ToolRequestMessage(ToolCall{ID: "call_1", Name: tt.tool, Arguments: `{"query":"x"}`}),
			}}
			repo := &fakeTool{name: "github-repo"}
			search := &fakeTool{name: "tavily-search"}
			c := newTestController(t, gw, Options{MaxToolCalls: 5}, repo, search)

			outcome, err := c.Run(context.Background(), "What's the weather?")
			require.NoError(t, err)

			assert.Equal(t, tt.expected, outcome.Answer)
			assert.True(t, outcome.Status)
			assert.Zero(t, outcome.ToolCalls)
			assert.Len(t, gw.seen, 1)
			assert.Empty(t, repo.inputs)
			assert.Empty(t, search.inputs)
		})
	}
}

func TestRun_ArgumentFailuresEndTurn(t *testing.T) {
	tests := []struct {
		name   string
		args   string
		prefix string
	}{
		{"malformed json", `{"query":`, "An error occurred while using the tool: malformed tool arguments: "},
		{"empty payload", ``, "An error occurred while using the tool: malformed tool arguments: "},
		{"missing query", `{}`, "An error occurred while using the tool: invalid arguments for github-repo"},
		{"wrong type", `{"query":42}`, "An error occurred while using the tool: invalid arguments for github-repo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &scriptedGateway{replies: []Message{repoRequest(tt.args)}}
			repo := &fakeTool{name: "github-repo"}
			c := newTestController(t, gw, Options{MaxToolCalls: 5}, repo)

			outcome, err := c.Run(context.Background(), "Tell me about octocat/Hello-World")
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(outcome.Answer, tt.prefix), outcome.Answer)
			assert.True(t, outcome.Status)
			assert.Zero(t, outcome.ToolCalls)
			assert.Empty(t, repo.inputs)
			assert.Len(t, gw.seen, 1)
		})
	}
}

func TestRun_CallLevelFailures(t *testing.T) {
	tests := []struct {
		name     string
		tool     *fakeTool
		expected string
	}{
		{
			name:     "returned error",
			tool:     &fakeTool{name: "github-repo", err: errors.New("connection reset")},
			expected: "An error occurred while using the tool: connection reset",
		},
		{
			name:     "panic",
			tool:     &fakeTool{name: "github-repo", panics: true},
			expected: "An error occurred while using the tool: tool github-repo panicked: kaboom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &scriptedGateway{replies: []Message{repoRequest(`{"query":"octocat/Hello-World"}`)}}
			c := newTestController(t, gw, Options{MaxToolCalls: 5}, tt.tool)

			outcome, err := c.Run(context.Background(), "Tell me about octocat/Hello-World")
			require.NoError(t, err)

			assert.Equal(t, tt.expected, outcome.Answer)
			assert.Equal(t, 1, outcome.ToolCalls)
			assert.Len(t, tt.tool.inputs, 1)
			assert.Len(t, gw.seen, 1)
		})
	}
}

func TestRun_GatewayFailure(t *testing.T) {
	gw := &scriptedGateway{err: gatewayError(errors.New("429 rate limited"))}
	c := newTestController(t, gw, Options{MaxToolCalls: 5}, &fakeTool{name: "github-repo"})

	outcome, err := c.Run(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "An error occurred while processing your request: model gateway failure: 429 rate limited", outcome.Answer)
	assert.True(t, outcome.Status)
	assert.Len(t, gw.seen, 1)
}

func TestRun_ToolCallLimit(t *testing.T) {
	gw := &scriptedGateway{replies: []Message{repoRequest(`{"query":"octocat/Hello-World"}`)}, repeat: true}
	repo := &fakeTool{name: "github-repo", out: models.ToolOutput{Content: "{}"}}
	c := newTestController(t, gw, Options{MaxToolCalls: 2}, repo)

	outcome, err := c.Run(context.Background(), "Tell me about octocat/Hello-World forever")
	require.NoError(t, err)

	assert.Equal(t, "I stopped after reaching the limit of 2 tool calls for a single request. Please try again with a more specific question.", outcome.Answer)
	assert.Equal(t, 2, outcome.ToolCalls)
	assert.Len(t, repo.inputs, 2)
	assert.Len(t, gw.seen, 3)
}

func TestRun_CancelledContext(t *testing.T) {
	gw := &scriptedGateway{replies: []Message{AssistantMessage("unused")}}
	c := newTestController(t, gw, Options{}, &fakeTool{name: "github-repo"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := c.Run(ctx, "Hello")
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gw.seen)
}

func TestRun_CustomSystemPrompt(t *testing.T) {
	gw := &scriptedGateway{replies: []Message{AssistantMessage("ok")}}
	c := newTestController(t, gw, Options{SystemPrompt: "Be brief."})

	_, err := c.Run(context.Background(), "Hi")
	require.NoError(t, err)

	require.Len(t, gw.seen, 1)
	assert.Equal(t, SystemMessage("Be brief."), gw.seen[0][0])
}

func TestFinish_FallbackWithoutAssistantReply(t *testing.T) {
	c := newTestController(t, &scriptedGateway{}, Options{})
	outcome := c.finish(context.Background(), "turn-1", &turn{
		transcript: Transcript{SystemMessage("sys"), UserMessage("Hello")},
	})

	assert.Equal(t, FallbackAnswer, outcome.Answer)
	assert.False(t, outcome.Status)
	assert.Equal(t, "turn-1", outcome.TurnID)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name       string
		transcript Transcript
		expected   state
	}{
		{"empty", nil, stateDone},
		{"system", Transcript{SystemMessage("s")}, stateAwaitModel},
		{"user", Transcript{UserMessage("u")}, stateAwaitModel},
		{"tool result", Transcript{ToolResultMessage(ToolCall{Name: "x"}, models.ToolOutput{Content: "r"})}, stateAwaitModel},
		{"tool request", Transcript{ToolRequestMessage(ToolCall{Name: "x"})}, stateAwaitTool},
		{"plain answer", Transcript{AssistantMessage("a")}, stateDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, route(tt.transcript))
		})
	}
}
