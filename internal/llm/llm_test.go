package llm

import (
	"context"
	"strings"
	"testing"
)

func TestNewProviderFallsBackToLocal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	provider := NewProvider()
	if provider.Name() != "local" {
		t.Fatalf("expected local provider without an API key, got %q", provider.Name())
	}
	reply, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "oi"}})
	if err != nil {
		t.Fatalf("local chat: %v", err)
	}
	if !strings.HasPrefix(reply, "[local-stub]") {
		t.Fatalf("unexpected local reply: %q", reply)
	}
}

func TestNewProviderSelectsOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_ENDPOINT", "http://localhost:9999/v1")
	provider := NewProvider()
	if provider.Name() != "openai" {
		t.Fatalf("expected openai provider with an API key, got %q", provider.Name())
	}
}

func TestNormalizeMessages(t *testing.T) {
	messages := []Message{
		{Role: "SYSTEM", Content: "a"},
		{Role: "User", Content: "b"},
	}
	normalized, err := NormalizeMessages(messages)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized[0].Role != "system" || normalized[1].Role != "user" {
		t.Fatalf("roles not lowercased: %+v", normalized)
	}
	if _, err := NormalizeMessages(nil); err == nil {
		t.Fatal("expected error for empty message list")
	}
}

func TestLocalProviderRejectsEmptyInput(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	provider := NewProvider()
	if _, err := provider.Chat(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty message list")
	}
}
