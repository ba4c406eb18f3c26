package memory

import (
	"context"
	"sync"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo"
)

// UsersMemoryRepo keeps users in registration order. Lookups are linear.
type UsersMemoryRepo struct {
	mu    sync.RWMutex
	users []models.User
}

func New() *UsersMemoryRepo {
	return &UsersMemoryRepo{} //nolint:exhaustruct
}

func (ur *UsersMemoryRepo) CreateUser(_ context.Context, u models.User) error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	if ur.indexOf(u.Username) != -1 {
		return userrepo.ErrAlreadyExists
	}

	ur.users = append(ur.users, u.Clone())

	return nil
}

func (ur *UsersMemoryRepo) GetUser(_ context.Context, username string) (models.User, error) {
	ur.mu.RLock()
	defer ur.mu.RUnlock()

	i := ur.indexOf(username)
	if i == -1 {
		return models.User{}, userrepo.ErrNotFound
	}

	return ur.users[i].Clone(), nil
}

func (ur *UsersMemoryRepo) UpdateUser(_ context.Context, u models.User) error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	i := ur.indexOf(u.Username)
	if i == -1 {
		return userrepo.ErrNotFound
	}

	ur.users[i] = u.Clone()

	return nil
}

func (ur *UsersMemoryRepo) DeleteUser(_ context.Context, username string) error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	i := ur.indexOf(username)
	if i == -1 {
		return userrepo.ErrNotFound
	}

	ur.users = append(ur.users[:i], ur.users[i+1:]...)

	return nil
}

func (ur *UsersMemoryRepo) ListUsers(_ context.Context) ([]models.User, error) {
	ur.mu.RLock()
	defer ur.mu.RUnlock()

	users := make([]models.User, 0, len(ur.users))
	for _, u := range ur.users {
		users = append(users, u.Clone())
	}

	return users, nil
}

func (ur *UsersMemoryRepo) CountUsers(_ context.Context) (int, error) {
	ur.mu.RLock()
	defer ur.mu.RUnlock()

	return len(ur.users), nil
}

func (ur *UsersMemoryRepo) Shutdown(_ context.Context) error {
	return nil
}

func (ur *UsersMemoryRepo) indexOf(username string) int {
	for i, u := range ur.users {
		if u.Username == username {
			return i
		}
	}

	return -1
}
