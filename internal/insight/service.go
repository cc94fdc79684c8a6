package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langgraphgo/graph"

	"github.com/noxuslabs/noxus/internal/common"
	ctxbuilder "github.com/noxuslabs/noxus/internal/context"
	"github.com/noxuslabs/noxus/internal/llm"
	"github.com/noxuslabs/noxus/internal/model"
)

// ErrRefreshBusy rejects a refresh while another one is still in flight.
// There is no queueing and no cancellation; the running call always delivers
// its result before the flag clears.
var ErrRefreshBusy = errors.New("geração de insights já em andamento")

const systemPrompt = `Você é uma IA de estratégia de negócios. Gere insights práticos baseados nos dados do sistema. Retorne APENAS JSON válido no formato: {"insights":[{"id":"string","type":"warning|opportunity|trend|recommendation","title":"string","description":"string","impact":"high|medium|low","action":"string"}]}.`

var userTemplate = prompts.NewPromptTemplate(
	"Contexto (30d):\n{{.context}}\n\nRegras:\n- Foque em recomendações acionáveis e sucintas.\n- Use títulos objetivos.\n- Não inclua dados sensíveis.\n- Priorize 4-6 itens.",
	[]string{"context"},
)

// SnapshotFunc supplies the trailing-window record collections. A non-nil
// error means the data is not ready; the refresh fails soft.
type SnapshotFunc func(ctx context.Context) (model.Snapshot, error)

// Service owns the current insight list. Refresh replaces it wholesale on
// success and leaves it untouched on any failure.
type Service struct {
	provider llm.Provider
	builder  *ctxbuilder.Builder
	snapshot SnapshotFunc

	mu          sync.Mutex
	busy        bool
	insights    []Insight
	refreshedAt time.Time
	lastError   string
}

// NewService seeds the service with the baseline insight list.
func NewService(provider llm.Provider, builder *ctxbuilder.Builder, snapshot SnapshotFunc) *Service {
	return &Service{
		provider: provider,
		builder:  builder,
		snapshot: snapshot,
		insights: Defaults(),
	}
}

// Insights returns a copy of the current list with the last refresh time and
// last error message (empty when the last refresh succeeded).
func (s *Service) Insights() ([]Insight, time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Insight, len(s.insights))
	copy(out, s.insights)
	return out, s.refreshedAt, s.lastError
}

// Refresh regenerates the insight list from a fresh window snapshot. The
// stored list is only replaced when the reply parses to at least one insight.
func (s *Service) Refresh(ctx context.Context) ([]Insight, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrRefreshBusy
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	logger := common.Logger()
	reply, err := s.generate(ctx)
	if err != nil {
		logger.Error("insight: generation failed", "error", err)
		s.recordError(err)
		return nil, err
	}
	items, err := ParseReply(reply)
	if err != nil {
		logger.Warn("insight: reply produced no valid insights", "reply_length", len(reply))
		s.recordError(err)
		return nil, err
	}

	s.mu.Lock()
	s.insights = items
	s.refreshedAt = time.Now()
	s.lastError = ""
	out := make([]Insight, len(items))
	copy(out, items)
	s.mu.Unlock()
	logger.Info("insight: list refreshed", "items", len(items))
	return out, nil
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// generate runs the single-node generation graph: window snapshot in, raw
// assistant reply out. The chat call is the only suspension point.
func (s *Service) generate(ctx context.Context) (string, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("load window snapshot: %w", err)
	}
	digest := s.builder.Summarize(snap)
	userPrompt, err := userTemplate.Format(map[string]any{"context": digest})
	if err != nil {
		return "", fmt.Errorf("format insight prompt: %w", err)
	}

	g := graph.NewMessageGraph()
	g.AddNode("generate", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		reply, err := s.provider.Chat(ctx, toProviderMessages(state))
		if err != nil {
			return nil, err
		}
		return append(state, llms.TextParts(llms.ChatMessageTypeAI, reply)), nil
	})
	g.AddEdge("generate", graph.END)
	g.SetEntryPoint("generate")
	runnable, err := g.Compile()
	if err != nil {
		return "", fmt.Errorf("compile insight graph: %w", err)
	}

	state := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}
	out, err := runnable.Invoke(ctx, state)
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("empty graph result")
	}
	return messageText(out[len(out)-1]), nil
}

func toProviderMessages(state []llms.MessageContent) []llm.Message {
	messages := make([]llm.Message, 0, len(state))
	for _, mc := range state {
		role := "user"
		switch mc.Role {
		case llms.ChatMessageTypeSystem:
			role = "system"
		case llms.ChatMessageTypeAI:
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: messageText(mc)})
	}
	return messages
}

func messageText(mc llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range mc.Parts {
		if text, ok := part.(llms.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}
