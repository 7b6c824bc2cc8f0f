// Package chatconvenience is an explicitly non-core helper that builds
// chat-completions-shaped upstream payloads and reshapes a successful
// {kind:"ok"} gateway result into a chat-completions-style response. It
// consumes the client package; the client package does not import it.
package chatconvenience

import (
	"encoding/json"
	"fmt"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest builds the upstream_payload accepted by client.GatewayClient's
// Infer/InferWithTicket: a direct chat-style object.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// NewChatRequest builds a single-prompt chat request with the given model.
func NewChatRequest(model, prompt string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}
}

// gatewayOutput mirrors the decrypted {kind:"ok"}.response shape, per §6.
type gatewayOutput struct {
	RequestID        string `json:"request_id"`
	Model            string `json:"model"`
	Output           string `json:"output"`
	BilledTokenClass string `json:"billed_token_class"`
}

// ChatCompletion mirrors a single-choice chat-completions response.
type ChatCompletion struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []ChatChoice   `json:"choices"`
	Usage   map[string]int `json:"usage,omitempty"`
}

// ChatChoice is the single choice produced by ToChatCompletion.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ToChatCompletion reshapes a decrypted {kind:"ok", response:{...}} payload
// (already unwrapped to its "response" field by the orchestrator) into a
// chat-completions-style response with a single "stop" choice authored by
// the assistant.
func ToChatCompletion(result json.RawMessage) (ChatCompletion, error) {
	var out gatewayOutput
	if err := json.Unmarshal(result, &out); err != nil {
		return ChatCompletion{}, fmt.Errorf("decode gateway output: %w", err)
	}

	return ChatCompletion{
		ID:     out.RequestID,
		Object: "chat.completion",
		Model:  out.Model,
		Choices: []ChatChoice{
			{
				Index: 0,
				Message: Message{
					Role:    "assistant",
					Content: out.Output,
				},
				FinishReason: "stop",
			},
		},
	}, nil
}
