package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/prompts"

	"github.com/noxuslabs/noxus/internal/common"
	ctxbuilder "github.com/noxuslabs/noxus/internal/context"
	"github.com/noxuslabs/noxus/internal/llm"
	"github.com/noxuslabs/noxus/internal/model"
)

var (
	// ErrBusy rejects a send while a previous one is still in flight.
	ErrBusy = errors.New("consulta à IA já em andamento")
	// ErrEmptyMessage rejects blank user input.
	ErrEmptyMessage = errors.New("mensagem vazia")
)

const basePrompt = "Você é um assistente de IA focado em gerar insights práticos sobre clientes, projetos, agenda e financeiro da Noxus."

var contextTemplate = prompts.NewPromptTemplate(
	"{{.base}}\n\nContexto do sistema (30d):\n{{.context}}\n\nUse o contexto acima para responder com recomendações práticas.",
	[]string{"base", "context"},
)

// SnapshotFunc supplies the trailing-window record collections for context
// injection. An error means the data is mid-load; the turn proceeds without
// context.
type SnapshotFunc func(ctx context.Context) (model.Snapshot, error)

// Session is one interactive conversation. The history lives in memory for
// the life of the session; the injected context never becomes part of it.
type Session struct {
	provider llm.Provider
	builder  *ctxbuilder.Builder
	snapshot SnapshotFunc

	mu             sync.Mutex
	busy           bool
	includeContext bool
	messages       []llm.Message
	lastError      string
}

// NewSession starts a conversation holding only the base system instruction.
func NewSession(provider llm.Provider, builder *ctxbuilder.Builder, snapshot SnapshotFunc) *Session {
	return &Session{
		provider:       provider,
		builder:        builder,
		snapshot:       snapshot,
		includeContext: true,
		messages:       []llm.Message{{Role: "system", Content: basePrompt}},
	}
}

// SetIncludeContext toggles window-context injection for subsequent turns.
func (s *Session) SetIncludeContext(enabled bool) {
	s.mu.Lock()
	s.includeContext = enabled
	s.mu.Unlock()
}

// History returns a copy of the full message sequence, system turn included.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastError returns the error message of the most recent failed turn, or ""
// when the last turn succeeded.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Send appends the user turn, assembles the outgoing message sequence and
// performs the chat call. On failure the user turn stays in the history and
// the provider error is returned verbatim; nothing else is appended.
func (s *Session) Send(ctx context.Context, text string) (llm.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return llm.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return llm.Message{}, ErrBusy
	}
	s.busy = true
	s.lastError = ""
	s.messages = append(s.messages, llm.Message{Role: "user", Content: trimmed})
	system := s.messages[0]
	turns := make([]llm.Message, len(s.messages)-1)
	copy(turns, s.messages[1:])
	include := s.includeContext
	s.mu.Unlock()

	outgoing := make([]llm.Message, 0, len(turns)+1)
	outgoing = append(outgoing, s.systemTurn(ctx, system, include))
	outgoing = append(outgoing, turns...)

	reply, err := s.provider.Chat(ctx, outgoing)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.lastError = err.Error()
		return llm.Message{}, err
	}
	assistant := llm.Message{Role: "assistant", Content: reply}
	s.messages = append(s.messages, assistant)
	return assistant, nil
}

// systemTurn injects the window digest into the base system instruction when
// context is enabled and the collections are ready.
func (s *Session) systemTurn(ctx context.Context, base llm.Message, include bool) llm.Message {
	if !include || s.snapshot == nil {
		return base
	}
	logger := common.Logger()
	snap, err := s.snapshot(ctx)
	if err != nil {
		logger.Debug("chat: window snapshot unavailable, sending without context", "error", err)
		return base
	}
	digest := s.builder.Summarize(snap)
	if digest == "" {
		return base
	}
	content, err := contextTemplate.Format(map[string]any{"base": base.Content, "context": digest})
	if err != nil {
		logger.Warn("chat: context template failed, sending without context", "error", err)
		return base
	}
	return llm.Message{Role: "system", Content: content}
}
