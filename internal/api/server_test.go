package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/noxuslabs/noxus/internal/llm"
	"github.com/noxuslabs/noxus/internal/store"
)

type mockProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	outgoing []llm.Message
	calls    int
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.outgoing = append([]llm.Message(nil), messages...)
	return m.reply, m.err
}

func (m *mockProvider) Name() string { return "mock" }

func newTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "noxus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	srv, err := NewServer(context.Background(), st, provider, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &mockProvider{reply: "ok"})
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestChatRoundTrip(t *testing.T) {
	provider := &mockProvider{reply: "Foque nos clientes recentes."}
	srv := newTestServer(t, provider)

	rec := doJSON(t, srv, http.MethodPost, "/v1/chat", map[string]any{"message": "Como estão as finanças?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	decodeBody(t, rec, &resp)
	if resp.Reply.Role != "assistant" || resp.Reply.Content != provider.reply {
		t.Fatalf("unexpected reply: %+v", resp.Reply)
	}
	if resp.Provider != "mock" {
		t.Fatalf("unexpected provider: %q", resp.Provider)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/chat/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var history historyResponse
	decodeBody(t, rec, &history)
	if len(history.Messages) != 2 {
		t.Fatalf("expected user+assistant in history, got %+v", history.Messages)
	}
	for _, msg := range history.Messages {
		if msg.Role == "system" {
			t.Fatalf("system turn must not leak into history: %+v", history.Messages)
		}
	}
}

func TestChatRequiresMessage(t *testing.T) {
	provider := &mockProvider{reply: "ok"}
	srv := newTestServer(t, provider)

	rec := doJSON(t, srv, http.MethodPost, "/v1/chat", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing message status = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/v1/chat", map[string]any{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank message status = %d", rec.Code)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called, calls=%d", provider.calls)
	}
}

func TestChatProviderFailureMapsToBadGateway(t *testing.T) {
	srv := newTestServer(t, &mockProvider{err: errors.New("provider offline")})

	rec := doJSON(t, srv, http.MethodPost, "/v1/chat", map[string]any{"message": "oi"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("provider failure status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/chat/history", nil)
	var history historyResponse
	decodeBody(t, rec, &history)
	if history.LastError != "provider offline" {
		t.Fatalf("history should surface the last error, got %q", history.LastError)
	}
	if len(history.Messages) != 1 || history.Messages[0].Role != "user" {
		t.Fatalf("failed turn should keep only the user message: %+v", history.Messages)
	}
}

func TestChatIncludeContextFlag(t *testing.T) {
	provider := &mockProvider{reply: "ok"}
	srv := newTestServer(t, provider)

	if rec := doJSON(t, srv, http.MethodPost, "/v1/clientes", map[string]any{"nome": "Acme"}); rec.Code != http.StatusCreated {
		t.Fatalf("create client status = %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodPost, "/v1/chat", map[string]any{"message": "oi", "include_context": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}
	if !strings.Contains(provider.outgoing[0].Content, "Contexto do sistema (30d):") {
		t.Fatalf("context missing from system turn:\n%s", provider.outgoing[0].Content)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/chat", map[string]any{"message": "de novo", "include_context": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}
	if strings.Contains(provider.outgoing[0].Content, "Contexto do sistema") {
		t.Fatalf("context must be off when disabled:\n%s", provider.outgoing[0].Content)
	}
}

func TestInsightsStartWithDefaults(t *testing.T) {
	srv := newTestServer(t, &mockProvider{reply: "ok"})

	rec := doJSON(t, srv, http.MethodGet, "/v1/insights", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("insights status = %d", rec.Code)
	}
	var resp insightsResponse
	decodeBody(t, rec, &resp)
	if len(resp.Insights) != 2 {
		t.Fatalf("expected seeded insights, got %d", len(resp.Insights))
	}
	if resp.RefreshedAt != "" {
		t.Fatalf("refreshed_at must be empty before the first refresh, got %q", resp.RefreshedAt)
	}
	first := resp.Insights[0]
	if first.Icon != "alert-triangle" || first.Color != "text-red-600" {
		t.Fatalf("warning style missing: %+v", first)
	}
}

func TestInsightsRefreshReplacesList(t *testing.T) {
	provider := &mockProvider{
		reply: `{"insights":[{"type":"trend","title":"Receita em alta","description":"Crescimento constante.","impact":"medium","action":"Manter"}]}`,
	}
	srv := newTestServer(t, provider)

	rec := doJSON(t, srv, http.MethodPost, "/v1/insights/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp insightsResponse
	decodeBody(t, rec, &resp)
	if len(resp.Insights) != 1 || resp.Insights[0].Title != "Receita em alta" {
		t.Fatalf("unexpected refreshed list: %+v", resp.Insights)
	}
	if resp.Insights[0].Icon != "trending-up" {
		t.Fatalf("trend style missing: %+v", resp.Insights[0])
	}
	if resp.RefreshedAt == "" {
		t.Fatal("refreshed_at must be set after a successful refresh")
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/insights", nil)
	decodeBody(t, rec, &resp)
	if len(resp.Insights) != 1 || resp.LastError != "" {
		t.Fatalf("stored list should match the refresh: %+v", resp)
	}
}

func TestInsightsRefreshSoftFailureKeepsList(t *testing.T) {
	provider := &mockProvider{reply: "não consegui gerar nada agora"}
	srv := newTestServer(t, provider)

	rec := doJSON(t, srv, http.MethodPost, "/v1/insights/refresh", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("soft failure status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/insights", nil)
	var resp insightsResponse
	decodeBody(t, rec, &resp)
	if len(resp.Insights) != 2 {
		t.Fatalf("seed list must survive a failed refresh: %+v", resp.Insights)
	}
	if resp.LastError == "" {
		t.Fatal("last_error should report the failed refresh")
	}
}

func TestRecordEndpointsRoundTrip(t *testing.T) {
	srv := newTestServer(t, &mockProvider{reply: "ok"})

	rec := doJSON(t, srv, http.MethodPost, "/v1/clientes", map[string]any{"nome": "Acme"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created createdResponse
	decodeBody(t, rec, &created)
	if created.ID == 0 {
		t.Fatal("expected non-zero client id")
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/agendamentos", map[string]any{
		"cliente_id": created.ID, "status": "confirmado",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create appointment status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/transacoes", map[string]any{
		"tipo": "receita", "valor": 1200.5, "categoria": "consultoria",
		"data_vencimento": "2026-09-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/clientes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list clients status = %d", rec.Code)
	}
	var clientList struct {
		Clients []struct {
			Name *string `json:"nome"`
		} `json:"clientes"`
	}
	decodeBody(t, rec, &clientList)
	if len(clientList.Clients) != 1 || clientList.Clients[0].Name == nil || *clientList.Clients[0].Name != "Acme" {
		t.Fatalf("unexpected client list: %+v", clientList)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/transacoes", nil)
	var txList struct {
		Transactions []struct {
			Kind   *string  `json:"tipo"`
			Amount *float64 `json:"valor"`
		} `json:"transacoes"`
	}
	decodeBody(t, rec, &txList)
	if len(txList.Transactions) != 1 {
		t.Fatalf("unexpected transaction list: %+v", txList)
	}
	if *txList.Transactions[0].Kind != "receita" || *txList.Transactions[0].Amount != 1200.5 {
		t.Fatalf("transaction fields lost: %+v", txList.Transactions[0])
	}
}

func TestRecordEndpointsRejectBadInput(t *testing.T) {
	srv := newTestServer(t, &mockProvider{reply: "ok"})

	rec := doJSON(t, srv, http.MethodPost, "/v1/transacoes", map[string]any{
		"tipo": "receita", "data_vencimento": "10/09/2026",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d body=%s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/clientes", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	bad := httptest.NewRecorder()
	srv.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("broken json status = %d", bad.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/clientes?days=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad days status = %d", rec.Code)
	}
}

func TestListWindowParam(t *testing.T) {
	srv := newTestServer(t, &mockProvider{reply: "ok"})

	if rec := doJSON(t, srv, http.MethodPost, "/v1/clientes", map[string]any{
		"nome": "Antigo", "created_at": "2024-01-01",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("create old client status = %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/v1/clientes", nil)
	var inWindow struct {
		Clients []json.RawMessage `json:"clientes"`
	}
	decodeBody(t, rec, &inWindow)
	if len(inWindow.Clients) != 0 {
		t.Fatalf("old client must be outside the default window: %+v", inWindow)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/clientes?days=2000", nil)
	var wide struct {
		Clients []json.RawMessage `json:"clientes"`
	}
	decodeBody(t, rec, &wide)
	if len(wide.Clients) != 1 {
		t.Fatalf("wide window should include the old client: %+v", wide)
	}
}
