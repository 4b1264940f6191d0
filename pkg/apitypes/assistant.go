package apitypes

import "strings"

// Tool enables a built-in capability on an assistant or run.
type Tool struct {
	Type     string     `json:"type"`
	Function JSONObject `json:"function,omitempty"`
}

type CodeInterpreterResources struct {
	FileIDs []string `json:"file_ids,omitempty"`
}

type FileSearchResources struct {
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

// ToolResources binds files and vector stores to assistant tools.
type ToolResources struct {
	CodeInterpreter *CodeInterpreterResources `json:"code_interpreter,omitempty"`
	FileSearch      *FileSearchResources      `json:"file_search,omitempty"`
}

// SearchVectorStores returns ToolResources that attach the given vector stores
// to the file_search tool. It returns nil when ids is empty.
func SearchVectorStores(ids ...string) *ToolResources {
	if len(ids) == 0 {
		return nil
	}
	return &ToolResources{FileSearch: &FileSearchResources{VectorStoreIDs: ids}}
}

// AssistantPayload is the body of POST /assistants.
type AssistantPayload struct {
	Model          string            `json:"model"`
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	Tools          []Tool            `json:"tools,omitempty"`
	ToolResources  *ToolResources    `json:"tool_resources,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	ResponseFormat any               `json:"response_format,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func (p AssistantPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "assistant payload")
}

type Assistant struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	CreatedAt     int64             `json:"created_at"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Model         string            `json:"model"`
	Instructions  string            `json:"instructions,omitempty"`
	Tools         []Tool            `json:"tools,omitempty"`
	ToolResources *ToolResources    `json:"tool_resources,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type AssistantList struct {
	ListPage
	Data []Assistant `json:"data"`
}

// Attachment links an uploaded file to a message.
type Attachment struct {
	FileID string `json:"file_id"`
	Tools  []Tool `json:"tools,omitempty"`
}

// MessagePayload is the body of POST /threads/{id}/messages.
type MessagePayload struct {
	Role        string            `json:"role"`
	Content     any               `json:"content"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (p MessagePayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "message payload")
}

// ThreadPayload is the body of POST /threads.
type ThreadPayload struct {
	Messages      []MessagePayload  `json:"messages,omitempty"`
	ToolResources *ToolResources    `json:"tool_resources,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (p ThreadPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "thread payload")
}

type Thread struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	CreatedAt     int64             `json:"created_at"`
	ToolResources *ToolResources    `json:"tool_resources,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// MessageContent is one content block of a thread message.
type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Value       string `json:"value"`
	Annotations []any  `json:"annotations,omitempty"`
}

type Message struct {
	ID          string           `json:"id"`
	Object      string           `json:"object"`
	CreatedAt   int64            `json:"created_at"`
	ThreadID    string           `json:"thread_id"`
	Role        string           `json:"role"`
	Content     []MessageContent `json:"content"`
	AssistantID string           `json:"assistant_id,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	Attachments []Attachment     `json:"attachments,omitempty"`
}

// Text joins the text blocks of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, c := range m.Content {
		if c.Type != "text" || c.Text == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.Text.Value)
	}
	return b.String()
}

type MessageList struct {
	ListPage
	Data []Message `json:"data"`
}

// RunPayload is the body of POST /threads/{id}/runs.
type RunPayload struct {
	AssistantID            string   `json:"assistant_id"`
	Model                  string   `json:"model,omitempty"`
	Instructions           string   `json:"instructions,omitempty"`
	AdditionalInstructions string   `json:"additional_instructions,omitempty"`
	Tools                  []Tool   `json:"tools,omitempty"`
	Temperature            *float64 `json:"temperature,omitempty"`
	TopP                   *float64 `json:"top_p,omitempty"`
	MaxPromptTokens        int      `json:"max_prompt_tokens,omitempty"`
	MaxCompletionTokens    int      `json:"max_completion_tokens,omitempty"`
	Stream                 bool     `json:"stream,omitempty"`
}

func (p RunPayload) Data() (JSONObject, error) { return ToJSONObject(p, "run payload") }

// Run statuses.
const (
	RunQueued         = "queued"
	RunInProgress     = "in_progress"
	RunRequiresAction = "requires_action"
	RunCancelling     = "cancelling"
	RunCancelled      = "cancelled"
	RunFailed         = "failed"
	RunCompleted      = "completed"
	RunIncomplete     = "incomplete"
	RunExpired        = "expired"
)

type Run struct {
	ID          string     `json:"id"`
	Object      string     `json:"object"`
	CreatedAt   int64      `json:"created_at"`
	ThreadID    string     `json:"thread_id"`
	AssistantID string     `json:"assistant_id"`
	Status      string     `json:"status"`
	Model       string     `json:"model,omitempty"`
	LastError   *ErrorBody `json:"last_error,omitempty"`
	Usage       *Usage     `json:"usage,omitempty"`
}

// Terminal reports whether the run will not change status without client action.
func (r Run) Terminal() bool {
	switch r.Status {
	case RunCompleted, RunFailed, RunCancelled, RunExpired, RunRequiresAction, RunIncomplete:
		return true
	default:
		return false
	}
}
