package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	ctxbuilder "github.com/noxuslabs/noxus/internal/context"
	"github.com/noxuslabs/noxus/internal/llm"
	"github.com/noxuslabs/noxus/internal/model"
)

type stubProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	block    chan struct{}
	outgoing []llm.Message
	calls    int
}

func (s *stubProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.mu.Lock()
	s.calls++
	s.outgoing = append([]llm.Message(nil), messages...)
	reply, err, block := s.reply, s.err, s.block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (s *stubProvider) Name() string { return "stub" }

func strPtr(s string) *string { return &s }

func clientSnapshot(context.Context) (model.Snapshot, error) {
	return model.Snapshot{Clients: []model.Client{{Name: strPtr("Acme")}}}, nil
}

func newTestSession(provider llm.Provider) *Session {
	return NewSession(provider, ctxbuilder.NewBuilder(ctxbuilder.DefaultConfig()), clientSnapshot)
}

func TestSendAppendsTurnsAndInjectsContext(t *testing.T) {
	provider := &stubProvider{reply: "Recomendo priorizar o cliente Acme."}
	session := newTestSession(provider)

	reply, err := session.Send(context.Background(), "  Como estão meus clientes?  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Role != "assistant" || reply.Content != provider.reply {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	history := session.History()
	if len(history) != 3 {
		t.Fatalf("expected system+user+assistant, got %d turns", len(history))
	}
	if history[1].Role != "user" || history[1].Content != "Como estão meus clientes?" {
		t.Fatalf("user turn not trimmed into history: %+v", history[1])
	}
	// The digest rides along on the outgoing system turn only; the stored
	// history keeps the bare instruction.
	if strings.Contains(history[0].Content, "Contexto do sistema") {
		t.Fatalf("context leaked into stored history: %q", history[0].Content)
	}
	if len(provider.outgoing) != 2 {
		t.Fatalf("expected 2 outgoing messages, got %d", len(provider.outgoing))
	}
	system := provider.outgoing[0]
	if system.Role != "system" {
		t.Fatalf("first outgoing message must be the system turn: %+v", system)
	}
	for _, want := range []string{"Contexto do sistema (30d):", "Clientes (30d): 1", "Clientes em foco: Acme"} {
		if !strings.Contains(system.Content, want) {
			t.Fatalf("system turn missing %q:\n%s", want, system.Content)
		}
	}
}

func TestSendWithoutContext(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	session := newTestSession(provider)
	session.SetIncludeContext(false)

	if _, err := session.Send(context.Background(), "oi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	system := provider.outgoing[0]
	if strings.Contains(system.Content, "Contexto do sistema") {
		t.Fatalf("context must not be injected when disabled:\n%s", system.Content)
	}
}

func TestSendWithoutSnapshotFallsBackToBarePrompt(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	session := NewSession(provider, ctxbuilder.NewBuilder(ctxbuilder.DefaultConfig()), func(context.Context) (model.Snapshot, error) {
		return model.Snapshot{}, errors.New("still loading")
	})

	if _, err := session.Send(context.Background(), "oi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(provider.outgoing[0].Content, "Contexto do sistema") {
		t.Fatalf("snapshot failure must fall back to the bare prompt:\n%s", provider.outgoing[0].Content)
	}
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	session := newTestSession(provider)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := session.Send(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("text %q: expected ErrEmptyMessage, got %v", text, err)
		}
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called for empty input, calls=%d", provider.calls)
	}
	if len(session.History()) != 1 {
		t.Fatalf("empty input must not enter the history: %+v", session.History())
	}
}

func TestSendFailureKeepsUserTurn(t *testing.T) {
	provider := &stubProvider{err: errors.New("provider offline")}
	session := newTestSession(provider)

	if _, err := session.Send(context.Background(), "oi"); err == nil {
		t.Fatal("expected send error")
	}
	history := session.History()
	if len(history) != 2 {
		t.Fatalf("expected system+user after failure, got %d turns", len(history))
	}
	if history[1].Role != "user" || history[1].Content != "oi" {
		t.Fatalf("user turn must survive the failure: %+v", history[1])
	}
	if session.LastError() != "provider offline" {
		t.Fatalf("unexpected lastError: %q", session.LastError())
	}

	// A later successful turn clears the recorded error.
	provider.mu.Lock()
	provider.err = nil
	provider.reply = "tudo certo"
	provider.mu.Unlock()
	if _, err := session.Send(context.Background(), "e agora?"); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if session.LastError() != "" {
		t.Fatalf("lastError should clear on success, got %q", session.LastError())
	}
}

func TestSendRejectsConcurrentCall(t *testing.T) {
	provider := &stubProvider{reply: "ok", block: make(chan struct{})}
	session := newTestSession(provider)

	firstDone := make(chan error, 1)
	go func() {
		_, err := session.Send(context.Background(), "primeira")
		firstDone <- err
	}()

	for {
		provider.mu.Lock()
		started := provider.calls > 0
		provider.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := session.Send(context.Background(), "segunda"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(provider.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first send: %v", err)
	}
	history := session.History()
	if len(history) != 3 {
		t.Fatalf("rejected send must not touch the history, got %d turns", len(history))
	}
}
