package models

// ToolErrorKind classifies a failure reported by a tool adapter. The empty
// kind means the tool succeeded.
type ToolErrorKind string

const (
	ToolErrorNone         ToolErrorKind = ""
	ToolErrorInvalidQuery ToolErrorKind = "invalid_query"
	ToolErrorNotFound     ToolErrorKind = "not_found"
	ToolErrorUpstream     ToolErrorKind = "upstream"
	ToolErrorTransport    ToolErrorKind = "transport"
	ToolErrorDecode       ToolErrorKind = "decode"
)

// ToolError is returned by the lookup services. Message is the human-readable
// text that is narrated back to the model.
type ToolError struct {
	Kind    ToolErrorKind
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ToolOutput is what a tool hands back to the conversation loop. A failed
// lookup still produces Content, with ErrorKind set.
type ToolOutput struct {
	Content   string        `json:"content"`
	ErrorKind ToolErrorKind `json:"error_kind,omitempty"`
}

func (o ToolOutput) Failed() bool {
	return o.ErrorKind != ToolErrorNone
}

// RepoSummary is the structured result of a repository lookup.
type RepoSummary struct {
	Owner             string   `json:"owner"`
	Repo              string   `json:"repo"`
	Description       string   `json:"description"`
	Stars             int      `json:"stars"`
	Language          string   `json:"language"`
	SuggestedUseCases []string `json:"suggested_use_cases"`
}
