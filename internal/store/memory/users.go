package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()

	for _, u := range s.data.users {
		if strings.EqualFold(u.Username, user.Username) {
			return errs.Conflictf("username %q already taken", user.Username)
		}
		if strings.EqualFold(u.Email, user.Email) {
			return errs.Conflictf("email %q already registered", user.Email)
		}
	}

	s.data.nextUserID++
	now := s.now()
	user.ID = s.data.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1

	stored := *user
	s.data.users[user.ID] = &stored
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	defer s.lock()()

	u, ok := s.data.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	defer s.lock()()

	_, ok := s.data.users[id]
	return ok, nil
}

// ListUsers returns users newest first.
func (s *Store) ListUsers(ctx context.Context, page models.PageRequest) (*models.Page[models.User], error) {
	defer s.lock()()

	users := make([]models.User, 0, len(s.data.users))
	for _, u := range s.data.users {
		users = append(users, *u)
	}
	slices.SortFunc(users, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return window(users, page), nil
}
