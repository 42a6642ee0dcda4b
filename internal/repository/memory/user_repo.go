package memory

import (
	"context"
	"errors"
	"sort"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(u.Email, 0) {
		return repository.ErrDuplicate
	}
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepo) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; !ok {
		return errors.New("user does not exist")
	}
	if r.emailTaken(u.Email, u.ID) {
		return repository.ErrDuplicate
	}
	u.UpdatedAt = r.s.now()
	r.s.users[u.ID] = *u
	return nil
}

// emailTaken must be called with the store lock held.
func (r *userRepo) emailTaken(email string, except uint64) bool {
	for id, existing := range r.s.users {
		if id != except && existing.Email == email {
			return true
		}
	}
	return false
}

func (r *userRepo) FindByID(_ context.Context, id uint64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *userRepo) FindByIDs(_ context.Context, ids []uint64) (map[uint64]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[uint64]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			found := u
			out[id] = &found
		}
	}
	return out, nil
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *userRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.users)), nil
}
