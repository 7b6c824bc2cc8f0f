package chatconvenience

import (
	"encoding/json"
	"testing"
)

func TestNewChatRequest(t *testing.T) {
	req := NewChatRequest("gpt-test", "hello there")

	if req.Model != "gpt-test" {
		t.Errorf("Model = %q, want gpt-test", req.Model)
	}
	if len(req.Messages) != 1 {
		t.Fatalf("Messages len = %d, want 1", len(req.Messages))
	}
	if req.Messages[0].Role != "user" {
		t.Errorf("Messages[0].Role = %q, want user", req.Messages[0].Role)
	}
	if req.Messages[0].Content != "hello there" {
		t.Errorf("Messages[0].Content = %q, want %q", req.Messages[0].Content, "hello there")
	}
}

func TestToChatCompletion(t *testing.T) {
	raw := []byte(`{
		"request_id": "req-123",
		"model": "gpt-test",
		"output": "hi back",
		"billed_token_class": "c512"
	}`)

	completion, err := ToChatCompletion(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("ToChatCompletion error = %v", err)
	}

	if completion.ID != "req-123" {
		t.Errorf("ID = %q, want req-123", completion.ID)
	}
	if completion.Object != "chat.completion" {
		t.Errorf("Object = %q, want chat.completion", completion.Object)
	}
	if len(completion.Choices) != 1 {
		t.Fatalf("Choices len = %d, want 1", len(completion.Choices))
	}
	choice := completion.Choices[0]
	if choice.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", choice.FinishReason)
	}
	if choice.Message.Role != "assistant" {
		t.Errorf("Message.Role = %q, want assistant", choice.Message.Role)
	}
	if choice.Message.Content != "hi back" {
		t.Errorf("Message.Content = %q, want %q", choice.Message.Content, "hi back")
	}
}

func TestToChatCompletionRejectsMalformedJSON(t *testing.T) {
	_, err := ToChatCompletion(json.RawMessage(`not json`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
