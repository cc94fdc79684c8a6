package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/noxuslabs/noxus/internal/model"
)

// Store wraps a pooled sqlx.DB connection to the SQLite catalog holding the
// four record collections.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the SQLite database at the provided path.
// The schema is migrated on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clientes (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                nome TEXT,
                created_at DATETIME NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS projetos (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                titulo TEXT,
                created_at DATETIME NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS agendamentos (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                cliente_id INTEGER,
                status TEXT,
                created_at DATETIME NOT NULL,
                FOREIGN KEY(cliente_id) REFERENCES clientes(id) ON DELETE SET NULL
        );`,
	`CREATE TABLE IF NOT EXISTS transacoes (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                tipo TEXT,
                valor REAL,
                categoria TEXT,
                descricao TEXT,
                data_vencimento DATETIME,
                data_liquidacao DATETIME,
                created_at DATETIME NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_agendamentos_created ON agendamentos(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_transacoes_created ON transacoes(created_at);`,
}

// InsertClient stores a client record and returns its identifier.
func (s *Store) InsertClient(ctx context.Context, c model.Client) (int64, error) {
	createdAt := normalizeCreatedAt(c.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clientes (nome, created_at) VALUES (?, ?)`, c.Name, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert client: %w", err)
	}
	return res.LastInsertId()
}

// InsertProject stores a project record and returns its identifier.
func (s *Store) InsertProject(ctx context.Context, p model.Project) (int64, error) {
	createdAt := normalizeCreatedAt(p.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projetos (titulo, created_at) VALUES (?, ?)`, p.Title, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	return res.LastInsertId()
}

// InsertAppointment stores an appointment record and returns its identifier.
func (s *Store) InsertAppointment(ctx context.Context, a model.Appointment) (int64, error) {
	createdAt := normalizeCreatedAt(a.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO agendamentos (cliente_id, status, created_at) VALUES (?, ?, ?)`,
		a.ClientID, a.Status, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert appointment: %w", err)
	}
	return res.LastInsertId()
}

// InsertTransaction stores a financial record and returns its identifier.
func (s *Store) InsertTransaction(ctx context.Context, t model.Transaction) (int64, error) {
	createdAt := normalizeCreatedAt(t.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transacoes (tipo, valor, categoria, descricao, data_vencimento, data_liquidacao, created_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Kind, t.Amount, t.Category, t.Description, t.DueDate, t.SettledAt, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

// Clients returns clients created at or after the window start.
func (s *Store) Clients(ctx context.Context, since time.Time) ([]model.Client, error) {
	var out []model.Client
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM clientes WHERE created_at >= ? ORDER BY created_at, id`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("select clients: %w", err)
	}
	return out, nil
}

// Projects returns projects created at or after the window start.
func (s *Store) Projects(ctx context.Context, since time.Time) ([]model.Project, error) {
	var out []model.Project
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM projetos WHERE created_at >= ? ORDER BY created_at, id`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	return out, nil
}

// Appointments returns appointments created at or after the window start.
func (s *Store) Appointments(ctx context.Context, since time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM agendamentos WHERE created_at >= ? ORDER BY created_at, id`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("select appointments: %w", err)
	}
	return out, nil
}

// Transactions returns transactions created at or after the window start.
func (s *Store) Transactions(ctx context.Context, since time.Time) ([]model.Transaction, error) {
	var out []model.Transaction
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM transacoes WHERE created_at >= ? ORDER BY created_at, id`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return out, nil
}

// Snapshot assembles the four collections for the trailing window starting at
// since. This is the read contract the summarization pipeline consumes.
func (s *Store) Snapshot(ctx context.Context, since time.Time) (model.Snapshot, error) {
	var snap model.Snapshot
	var err error
	if snap.Clients, err = s.Clients(ctx, since); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Projects, err = s.Projects(ctx, since); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Appointments, err = s.Appointments(ctx, since); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Transactions, err = s.Transactions(ctx, since); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

func normalizeCreatedAt(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
