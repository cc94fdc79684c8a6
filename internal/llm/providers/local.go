package providers

import (
	"context"
	"fmt"
	"strings"
)

// Message is a single conversation turn sent to a chat completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider abstracts the external chat completion collaborator. A call either
// returns the assistant reply text or fails; the pipeline performs no retries.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// LocalProvider is an offline stand-in used when no API key is configured.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1].Content
	return "[local-stub] " + strings.TrimSpace(last), nil
}

func (l *LocalProvider) Name() string {
	return "local"
}
