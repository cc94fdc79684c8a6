package api

import (
	"github.com/noxuslabs/noxus/internal/insight"
	"github.com/noxuslabs/noxus/internal/llm"
)

type chatRequest struct {
	Message        string `json:"message"`
	IncludeContext *bool  `json:"include_context,omitempty"`
}

type chatResponse struct {
	Reply    llm.Message `json:"reply"`
	Provider string      `json:"provider"`
}

type historyResponse struct {
	Messages  []llm.Message `json:"messages"`
	LastError string        `json:"last_error,omitempty"`
}

// insightView joins the domain record with the display treatment derived
// from its type.
type insightView struct {
	insight.Insight
	Icon    string `json:"icon"`
	Color   string `json:"color"`
	BgColor string `json:"bg_color"`
}

type insightsResponse struct {
	Insights    []insightView `json:"insights"`
	RefreshedAt string        `json:"refreshed_at,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}

type clientRequest struct {
	Name      string `json:"nome"`
	CreatedAt string `json:"created_at,omitempty"`
}

type projectRequest struct {
	Title     string `json:"titulo"`
	CreatedAt string `json:"created_at,omitempty"`
}

type appointmentRequest struct {
	ClientID  *int64 `json:"cliente_id,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type transactionRequest struct {
	Kind        string   `json:"tipo,omitempty"`
	Amount      *float64 `json:"valor,omitempty"`
	Category    string   `json:"categoria,omitempty"`
	Description string   `json:"descricao,omitempty"`
	DueDate     string   `json:"data_vencimento,omitempty"`
	SettledAt   string   `json:"data_liquidacao,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}
