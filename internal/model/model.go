package model

import (
	"strings"
	"time"
)

// Transaction kinds as stored by the backing catalog. Comparison is always
// case-insensitive; any other value matches neither side of the ledger.
const (
	KindRevenue = "receita"
	KindExpense = "despesa"
)

// Client is a CRM record. Name may be absent.
type Client struct {
	ID        int64      `db:"id" json:"id"`
	Name      *string    `db:"nome" json:"nome,omitempty"`
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// Project is a tracked engagement. Title may be absent.
type Project struct {
	ID        int64      `db:"id" json:"id"`
	Title     *string    `db:"titulo" json:"titulo,omitempty"`
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// Appointment is a scheduled engagement, optionally linked to a client.
type Appointment struct {
	ID        int64      `db:"id" json:"id"`
	ClientID  *int64     `db:"cliente_id" json:"cliente_id,omitempty"`
	Status    *string    `db:"status" json:"status,omitempty"`
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// Transaction is a financial record. Every field beyond the identifier may be
// absent; coercion to usable values happens through the accessor methods so
// aggregation code never touches the raw pointers.
type Transaction struct {
	ID          int64      `db:"id" json:"id"`
	Kind        *string    `db:"tipo" json:"tipo,omitempty"`
	Amount      *float64   `db:"valor" json:"valor,omitempty"`
	Category    *string    `db:"categoria" json:"categoria,omitempty"`
	Description *string    `db:"descricao" json:"descricao,omitempty"`
	DueDate     *time.Time `db:"data_vencimento" json:"data_vencimento,omitempty"`
	SettledAt   *time.Time `db:"data_liquidacao" json:"data_liquidacao,omitempty"`
	CreatedAt   *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// NormKind returns the lowercased transaction kind, or "" when absent.
func (t Transaction) NormKind() string {
	if t.Kind == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*t.Kind))
}

// Value returns the transaction amount, treating a missing amount as zero.
func (t Transaction) Value() float64 {
	if t.Amount == nil {
		return 0
	}
	return *t.Amount
}

// Settled reports whether the transaction carries a settlement timestamp.
func (t Transaction) Settled() bool {
	return t.SettledAt != nil
}

// EffectiveDate ranks the transaction in time: due date when present, else
// creation time, else the supplied fallback clock value.
func (t Transaction) EffectiveDate(now time.Time) time.Time {
	if t.DueDate != nil {
		return *t.DueDate
	}
	if t.CreatedAt != nil {
		return *t.CreatedAt
	}
	return now
}

// Snapshot bundles the four record collections for one trailing window. The
// window itself is chosen by the store; consumers never re-filter by date
// except to rank recency.
type Snapshot struct {
	Clients      []Client
	Projects     []Project
	Appointments []Appointment
	Transactions []Transaction
}

// Text returns the dereferenced string, or "" when absent.
func Text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// HasText reports whether the pointer holds a non-blank string.
func HasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
