// Package usage turns reply usage blocks into one shape and estimates token
// counts for replies that carry none.
package usage

import (
	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

// chatMessageOverhead is the per-message framing cost of chat requests.
const chatMessageOverhead = 3

type Result struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	// Estimated is set when the counts came from EstimateTokens.
	Estimated bool
}

// Input is what a caller knows about one call.
type Input struct {
	// Reply is the usage block of the response, if any.
	Reply *apitypes.Usage
	// Prompt and Completion hold the texts sent and received.
	Prompt     []string
	Completion []string
	// Messages is the chat message count, zero for non-chat calls.
	Messages int
}

// Normalize folds the legacy prompt/completion fields into input/output and
// fills in a missing total.
func Normalize(u *apitypes.Usage) Result {
	if u == nil {
		return Result{}
	}
	r := Result{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
	if r.InputTokens == 0 {
		r.InputTokens = u.PromptTokens
	}
	if r.OutputTokens == 0 {
		r.OutputTokens = u.CompletionTokens
	}
	if r.TotalTokens == 0 {
		r.TotalTokens = r.InputTokens + r.OutputTokens
	}
	return r
}

// Resolve returns the reply's usage when it has any, otherwise an estimate.
func Resolve(in Input) Result {
	if r := Normalize(in.Reply); !r.IsZero() {
		return r
	}
	r := Result{Estimated: true}
	for _, s := range in.Prompt {
		r.InputTokens += EstimateTokens(s)
	}
	for _, s := range in.Completion {
		r.OutputTokens += EstimateTokens(s)
	}
	if in.Messages > 0 {
		r.InputTokens += in.Messages*chatMessageOverhead + chatMessageOverhead
	}
	r.TotalTokens = r.InputTokens + r.OutputTokens
	if r.TotalTokens == 0 {
		r.Estimated = false
	}
	return r
}

func (r Result) IsZero() bool {
	return r.InputTokens == 0 && r.OutputTokens == 0 && r.TotalTokens == 0
}

// Fields returns the log fields of r.
func (r Result) Fields() map[string]any {
	return map[string]any{
		"input_tokens":  r.InputTokens,
		"output_tokens": r.OutputTokens,
		"total_tokens":  r.TotalTokens,
		"estimated":     r.Estimated,
	}
}
