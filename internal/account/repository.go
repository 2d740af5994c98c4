package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts. Implementations must enforce uniqueness
// of email and full phone and surface violations as ErrDuplicateIdentity.
type Repository interface {
	Create(ctx context.Context, a Account) error
	Update(ctx context.Context, a Account) error
	// FindByID returns the account regardless of its deleted flag.
	FindByID(ctx context.Context, id string) (Account, error)
	// FindByEmailOrPhone matches the value against email or full phone.
	// Soft-deleted accounts are skipped unless includeDeleted is set.
	FindByEmailOrPhone(ctx context.Context, value string, includeDeleted bool) (Account, error)
	// FindByEmailAndPhone matches both fields at once, including deleted
	// accounts. Used by the idempotent re-registration check.
	FindByEmailAndPhone(ctx context.Context, email, phoneFull string) (Account, error)
	// FindAdmins returns non-deleted admins with a verified email.
	FindAdmins(ctx context.Context) ([]Account, error)
	// ListByRequests pages through accounts ordered by request count
	// descending, excluding the given account.
	ListByRequests(ctx context.Context, excludeID string, page, limit int) ([]Account, int, error)
	// IncrementRequests bumps the per-account request counter.
	IncrementRequests(ctx context.Context, id string) error
}

const duplicateKeyCode = "23505"

// PostgresRepository implements Repository using PostgreSQL. The four
// verification slots and the notification inbox are stored as JSONB
// documents alongside the scalar columns.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the accounts table and its unique indexes.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS accounts (
        id UUID PRIMARY KEY,
        auth_type TEXT NOT NULL,
        avatar_url TEXT NOT NULL DEFAULT '',
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        phone_full TEXT NOT NULL UNIQUE,
        phone_icc TEXT NOT NULL,
        phone_nsn TEXT NOT NULL,
        password_hash TEXT NOT NULL DEFAULT '',
        role TEXT NOT NULL,
        language TEXT NOT NULL,
        email_verified BOOLEAN NOT NULL DEFAULT FALSE,
        phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
        notifications JSONB NOT NULL DEFAULT '[]',
        device_token TEXT NOT NULL DEFAULT '',
        last_login TIMESTAMPTZ NOT NULL,
        deleted BOOLEAN NOT NULL DEFAULT FALSE,
        no_of_requests BIGINT NOT NULL DEFAULT 0,
        verification JSONB NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`)
	return err
}

const accountColumns = `id, auth_type, avatar_url, name, email, phone_full, phone_icc, phone_nsn,
    password_hash, role, language, email_verified, phone_verified, notifications,
    device_token, last_login, deleted, no_of_requests, verification, created_at, updated_at`

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, a Account) error {
	verification, notifications, err := marshalDocuments(a)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		a.ID, a.AuthType, a.AvatarURL, a.Name, a.Email, a.Phone.Full(), a.Phone.ICC, a.Phone.NSN,
		a.PasswordHash, a.Role, a.Language, a.EmailVerified, a.PhoneVerified, notifications,
		a.DeviceToken, a.LastLogin.UTC(), a.Deleted, a.NoOfRequests, verification,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	return mapDuplicate(err)
}

// Update replaces the stored account document.
func (r *PostgresRepository) Update(ctx context.Context, a Account) error {
	verification, notifications, err := marshalDocuments(a)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET
        auth_type = $2, avatar_url = $3, name = $4, email = $5, phone_full = $6,
        phone_icc = $7, phone_nsn = $8, password_hash = $9, role = $10, language = $11,
        email_verified = $12, phone_verified = $13, notifications = $14, device_token = $15,
        last_login = $16, deleted = $17, no_of_requests = $18, verification = $19,
        updated_at = $20
        WHERE id = $1`,
		a.ID, a.AuthType, a.AvatarURL, a.Name, a.Email, a.Phone.Full(),
		a.Phone.ICC, a.Phone.NSN, a.PasswordHash, a.Role, a.Language,
		a.EmailVerified, a.PhoneVerified, notifications, a.DeviceToken,
		a.LastLogin.UTC(), a.Deleted, a.NoOfRequests, verification,
		time.Now().UTC())
	if err != nil {
		return mapDuplicate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID fetches an account by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// FindByEmailOrPhone fetches an account by exact email or full phone match.
func (r *PostgresRepository) FindByEmailOrPhone(ctx context.Context, value string, includeDeleted bool) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE (email = $1 OR phone_full = $1)`
	if !includeDeleted {
		query += ` AND deleted = FALSE`
	}
	return scanAccount(r.db.QueryRow(ctx, query, value))
}

// FindByEmailAndPhone fetches the account holding both identifiers.
func (r *PostgresRepository) FindByEmailAndPhone(ctx context.Context, email, phoneFull string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE email = $1 AND phone_full = $2`, email, phoneFull)
	return scanAccount(row)
}

// FindAdmins returns all active admins with a verified email.
func (r *PostgresRepository) FindAdmins(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE role = $1 AND email_verified = TRUE AND deleted = FALSE`, RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListByRequests pages through accounts by request count descending.
func (r *PostgresRepository) ListByRequests(ctx context.Context, excludeID string, page, limit int) ([]Account, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE id <> $1 ORDER BY no_of_requests DESC OFFSET $2 LIMIT $3`,
		excludeID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE id <> $1`, excludeID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// IncrementRequests bumps the request counter without touching the rest
// of the document.
func (r *PostgresRepository) IncrementRequests(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET no_of_requests = no_of_requests + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalDocuments(a Account) ([]byte, []byte, error) {
	verification, err := json.Marshal(a.Verification)
	if err != nil {
		return nil, nil, fmt.Errorf("encode verification slots: %w", err)
	}
	inbox := a.Notifications
	if inbox == nil {
		inbox = []Notification{}
	}
	notifications, err := json.Marshal(inbox)
	if err != nil {
		return nil, nil, fmt.Errorf("encode notifications: %w", err)
	}
	return verification, notifications, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a             Account
		verification  []byte
		notifications []byte
	)
	err := row.Scan(&a.ID, &a.AuthType, &a.AvatarURL, &a.Name, &a.Email,
		new(string), &a.Phone.ICC, &a.Phone.NSN,
		&a.PasswordHash, &a.Role, &a.Language, &a.EmailVerified, &a.PhoneVerified,
		&notifications, &a.DeviceToken, &a.LastLogin, &a.Deleted, &a.NoOfRequests,
		&verification, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	if err := json.Unmarshal(verification, &a.Verification); err != nil {
		return Account{}, fmt.Errorf("decode verification slots: %w", err)
	}
	if err := json.Unmarshal(notifications, &a.Notifications); err != nil {
		return Account{}, fmt.Errorf("decode notifications: %w", err)
	}
	return a, nil
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == duplicateKeyCode {
		return ErrDuplicateIdentity
	}
	return err
}
