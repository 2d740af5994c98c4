package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoActivities is returned when a page holds no login records.
var ErrNoActivities = errors.New("no login activities")

// Record is one captured login event.
type Record struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Date      time.Time `json:"date"`
}

// Repository persists login activity records.
type Repository interface {
	Create(ctx context.Context, r Record) error
	// ListByAccount pages through an account's records, newest first.
	ListByAccount(ctx context.Context, accountID string, page, limit int) ([]Record, int, error)
}

// Service records and lists login activity.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the login-activity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record captures one login event.
func (s *Service) Record(ctx context.Context, accountID, ip, userAgent string) (Record, error) {
	r := Record{
		ID:        uuid.NewString(),
		AccountID: accountID,
		IP:        ip,
		UserAgent: userAgent,
		Date:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Page is one page of login records.
type Page struct {
	Records     []Record
	CurrentPage int
	TotalPages  int
}

// List returns a page of the account's login activity, newest first.
func (s *Service) List(ctx context.Context, accountID string, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	records, total, err := s.repo.ListByAccount(ctx, accountID, page, limit)
	if err != nil {
		return Page{}, err
	}
	if len(records) == 0 {
		return Page{}, ErrNoActivities
	}
	return Page{
		Records:     records,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}
