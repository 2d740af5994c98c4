package activity

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed activity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the login_activities table.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS login_activities (
        id UUID PRIMARY KEY,
        account_id UUID NOT NULL,
        ip TEXT NOT NULL DEFAULT '',
        user_agent TEXT NOT NULL DEFAULT '',
        date TIMESTAMPTZ NOT NULL
    )`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS login_activities_account_idx
        ON login_activities (account_id, date DESC)`)
	return err
}

// Create inserts a login record.
func (r *PostgresRepository) Create(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx, `INSERT INTO login_activities (id, account_id, ip, user_agent, date)
        VALUES ($1, $2, $3, $4, $5)`, rec.ID, rec.AccountID, rec.IP, rec.UserAgent, rec.Date.UTC())
	return err
}

// ListByAccount pages through an account's records, newest first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, page, limit int) ([]Record, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `SELECT id, account_id, ip, user_agent, date
        FROM login_activities WHERE account_id = $1
        ORDER BY date DESC OFFSET $2 LIMIT $3`, accountID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.IP, &rec.UserAgent, &rec.Date); err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM login_activities WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

type memoryRepository struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryRepository builds an in-memory activity store for tests and
// dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *memoryRepository) ListByAccount(_ context.Context, accountID string, page, limit int) ([]Record, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []Record
	for _, rec := range r.records {
		if rec.AccountID == accountID {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })

	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, len(matched), nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}
