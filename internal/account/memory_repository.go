package account

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryRepository builds an in-memory account store used by tests and
// dev mode. It mirrors the unique-index semantics of the Postgres store.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email || existing.Phone.Full() == a.Phone.Full() {
			return ErrDuplicateIdentity
		}
	}
	r.accounts[a.ID] = a
	return nil
}

func (r *memoryRepository) Update(_ context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range r.accounts {
		if id == a.ID {
			continue
		}
		if existing.Email == a.Email || existing.Phone.Full() == a.Phone.Full() {
			return ErrDuplicateIdentity
		}
	}
	r.accounts[a.ID] = a
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *memoryRepository) FindByEmailOrPhone(_ context.Context, value string, includeDeleted bool) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email != value && a.Phone.Full() != value {
			continue
		}
		if a.Deleted && !includeDeleted {
			continue
		}
		return a, nil
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) FindByEmailAndPhone(_ context.Context, email, phoneFull string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email && a.Phone.Full() == phoneFull {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) FindAdmins(_ context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var admins []Account
	for _, a := range r.accounts {
		if a.Role == RoleAdmin && a.EmailVerified && !a.Deleted {
			admins = append(admins, a)
		}
	}
	return admins, nil
}

func (r *memoryRepository) ListByRequests(_ context.Context, excludeID string, page, limit int) ([]Account, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []Account
	for _, a := range r.accounts {
		if a.ID != excludeID {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].NoOfRequests > all[j].NoOfRequests })

	start := (page - 1) * limit
	if start >= len(all) {
		return nil, len(all), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r *memoryRepository) IncrementRequests(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.NoOfRequests++
	r.accounts[id] = a
	return nil
}
