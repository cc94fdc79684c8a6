package insight

// Insight kinds the generation prompt enumerates. Replies may still carry
// other values; they are accepted and rendered with the neutral style.
const (
	TypeWarning        = "warning"
	TypeOpportunity    = "opportunity"
	TypeTrend          = "trend"
	TypeRecommendation = "recommendation"
)

const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// Insight is one AI-generated business observation. Presentation attributes
// are not part of the record; they derive from Type via StyleFor at render
// time.
type Insight struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Action      string `json:"action,omitempty"`
}

// Style is the display treatment derived from an insight type.
type Style struct {
	Icon       string `json:"icon"`
	Color      string `json:"color"`
	Background string `json:"bg_color"`
}

// StyleFor maps an insight type to its display treatment. Unknown types get
// the neutral default rather than an error.
func StyleFor(kind string) Style {
	switch kind {
	case TypeWarning:
		return Style{Icon: "alert-triangle", Color: "text-red-600", Background: "bg-red-500/10"}
	case TypeOpportunity:
		return Style{Icon: "lightbulb", Color: "text-green-600", Background: "bg-green-500/10"}
	case TypeTrend:
		return Style{Icon: "trending-up", Color: "text-blue-600", Background: "bg-blue-500/10"}
	case TypeRecommendation:
		return Style{Icon: "brain", Color: "text-purple-600", Background: "bg-purple-500/10"}
	default:
		return Style{Icon: "brain", Color: "text-muted-foreground", Background: "bg-muted/20"}
	}
}

// Defaults returns the baseline insights shown before the first successful
// generation, and kept whenever generation fails.
func Defaults() []Insight {
	return []Insight{
		{
			ID:          "1",
			Type:        TypeWarning,
			Title:       "Clientes Inativos Detectados",
			Description: "Parte dos clientes está inativa há mais de 60 dias. Risco de churn alto.",
			Impact:      ImpactHigh,
			Action:      "Enviar campanha de reativação",
		},
		{
			ID:          "2",
			Type:        TypeOpportunity,
			Title:       "Oportunidade de Upsell",
			Description: "Clientes com histórico de pequenos serviços podem aceitar projetos maiores.",
			Impact:      ImpactHigh,
			Action:      "Criar proposta personalizada",
		},
	}
}
