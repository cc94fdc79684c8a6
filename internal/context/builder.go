package context

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noxuslabs/noxus/internal/common"
	"github.com/noxuslabs/noxus/internal/model"
)

// Config bounds the sample sizes rendered into the digest.
type Config struct {
	ClientSample       int
	ProjectSample      int
	AgendaSample       int
	RecentTransactions int

	// Now supplies the fallback timestamp for transactions without any date.
	Now func() time.Time
}

// DefaultConfig returns the sample bounds used by the dashboard.
func DefaultConfig() Config {
	return Config{
		ClientSample:       5,
		ProjectSample:      5,
		AgendaSample:       3,
		RecentTransactions: 10,
		Now:                time.Now,
	}
}

// Builder reduces one window snapshot into a bounded, human-readable text
// digest safe to embed in a prompt.
type Builder struct {
	config Config
}

// NewBuilder wires the provided configuration into a digest builder, filling
// unset bounds from DefaultConfig.
func NewBuilder(cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.ClientSample <= 0 {
		cfg.ClientSample = def.ClientSample
	}
	if cfg.ProjectSample <= 0 {
		cfg.ProjectSample = def.ProjectSample
	}
	if cfg.AgendaSample <= 0 {
		cfg.AgendaSample = def.AgendaSample
	}
	if cfg.RecentTransactions <= 0 {
		cfg.RecentTransactions = def.RecentTransactions
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Builder{config: cfg}
}

// Summarize renders the snapshot as newline-joined digest lines. It never
// fails: any internal panic degrades the whole digest to the empty string.
func (b *Builder) Summarize(snap model.Snapshot) (digest string) {
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Warn("context: digest build recovered, returning empty context", "panic", r)
			digest = ""
		}
	}()

	lines := []string{
		fmt.Sprintf("Clientes (30d): %d", len(snap.Clients)),
		fmt.Sprintf("Projetos (30d): %d", len(snap.Projects)),
		fmt.Sprintf("Agendamentos (30d): %d", len(snap.Appointments)),
		fmt.Sprintf("Transações (30d): %d", len(snap.Transactions)),
	}

	if names := clientSample(snap.Clients, b.config.ClientSample); len(names) > 0 {
		lines = append(lines, "Clientes em foco: "+strings.Join(names, ", "))
	}
	if titles := projectSample(snap.Projects, b.config.ProjectSample); len(titles) > 0 {
		lines = append(lines, "Projetos em destaque: "+strings.Join(titles, ", "))
	}
	if statuses := agendaSample(snap.Appointments, b.config.AgendaSample); len(statuses) > 0 {
		lines = append(lines, "Agenda (amostra): "+strings.Join(statuses, ", "))
	}

	lines = append(lines, engagementLines(snap)...)
	lines = append(lines, financialLines(snap.Transactions)...)

	if recent := b.recentTransactionLines(snap.Transactions); len(recent) > 0 {
		lines = append(lines, "Últimas transações (amostra):")
		lines = append(lines, recent...)
	}

	return strings.Join(lines, "\n")
}

func clientSample(clients []model.Client, limit int) []string {
	names := make([]string, 0, limit)
	for _, c := range clients {
		if !model.HasText(c.Name) {
			continue
		}
		names = append(names, *c.Name)
		if len(names) >= limit {
			break
		}
	}
	return names
}

func projectSample(projects []model.Project, limit int) []string {
	titles := make([]string, 0, limit)
	for _, p := range projects {
		if !model.HasText(p.Title) {
			continue
		}
		titles = append(titles, *p.Title)
		if len(titles) >= limit {
			break
		}
	}
	return titles
}

func agendaSample(appointments []model.Appointment, limit int) []string {
	statuses := make([]string, 0, limit)
	for _, a := range appointments {
		if !model.HasText(a.Status) {
			continue
		}
		statuses = append(statuses, *a.Status)
		if len(statuses) >= limit {
			break
		}
	}
	return statuses
}

// engagementLines covers the insight panel metrics: average revenue ticket,
// client recurrence over non-cancelled appointments, and cancellation rate.
func engagementLines(snap model.Snapshot) []string {
	var lines []string

	var revenueTotal float64
	revenueCount := 0
	for _, t := range snap.Transactions {
		if t.NormKind() == model.KindRevenue {
			revenueTotal += t.Value()
			revenueCount++
		}
	}
	if revenueCount > 0 {
		ticket := revenueTotal / float64(revenueCount)
		lines = append(lines, fmt.Sprintf("Ticket médio: R$ %.0f", math.Round(ticket)))
	}

	perClient := make(map[int64]int)
	cancelled := 0
	for _, a := range snap.Appointments {
		status := strings.ToLower(strings.TrimSpace(model.Text(a.Status)))
		if status == "cancelado" {
			cancelled++
			continue
		}
		if a.ClientID == nil {
			continue
		}
		perClient[*a.ClientID]++
	}
	unique := len(perClient)
	recurrent := 0
	for _, n := range perClient {
		if n >= 2 {
			recurrent++
		}
	}
	if unique > 0 {
		rate := int(math.Round(float64(recurrent) / float64(unique) * 100))
		lines = append(lines, fmt.Sprintf("Recorrência: %d%% (%d/%d)", rate, recurrent, unique))
	}
	if total := len(snap.Appointments); total > 0 {
		rate := int(math.Round(float64(cancelled) / float64(total) * 100))
		lines = append(lines, fmt.Sprintf("Cancelamentos: %d (%d%%)", cancelled, rate))
	}
	return lines
}

func financialLines(transactions []model.Transaction) []string {
	var revenue, expense float64
	var revenueSettled, revenuePending float64
	var expenseSettled, expensePending float64
	for _, t := range transactions {
		switch t.NormKind() {
		case model.KindRevenue:
			revenue += t.Value()
			if t.Settled() {
				revenueSettled += t.Value()
			} else {
				revenuePending += t.Value()
			}
		case model.KindExpense:
			expense += t.Value()
			if t.Settled() {
				expenseSettled += t.Value()
			} else {
				expensePending += t.Value()
			}
		}
	}
	return []string{
		fmt.Sprintf("Receitas (30d): R$ %.2f", revenue),
		fmt.Sprintf("Despesas (30d): R$ %.2f", expense),
		fmt.Sprintf("Saldo (30d): R$ %.2f", revenue-expense),
		fmt.Sprintf("Receitas liquidadas: R$ %.2f | pendentes: R$ %.2f", revenueSettled, revenuePending),
		fmt.Sprintf("Despesas liquidadas: R$ %.2f | pendentes: R$ %.2f", expenseSettled, expensePending),
	}
}

func (b *Builder) recentTransactionLines(transactions []model.Transaction) []string {
	if len(transactions) == 0 {
		return nil
	}
	now := b.config.Now()
	ranked := append([]model.Transaction(nil), transactions...)
	// Stable sort keeps input order as the deterministic tie break.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EffectiveDate(now).After(ranked[j].EffectiveDate(now))
	})
	if len(ranked) > b.config.RecentTransactions {
		ranked = ranked[:b.config.RecentTransactions]
	}
	lines := make([]string, 0, len(ranked))
	for _, t := range ranked {
		lines = append(lines, renderTransaction(t, now))
	}
	return lines
}

func renderTransaction(t model.Transaction, now time.Time) string {
	date := t.EffectiveDate(now).Format("02/01/2006")
	kind := model.Text(t.Kind)
	if kind == "" {
		kind = "-"
	}
	category := model.Text(t.Category)
	if category == "" {
		category = "-"
	}
	status := "pendente"
	if t.Settled() {
		status = "liquidada"
	}
	line := fmt.Sprintf("%s • %s • R$ %.2f • %s • %s", date, kind, t.Value(), category, status)
	if desc := model.Text(t.Description); desc != "" {
		line += " • " + desc
	}
	return line
}
