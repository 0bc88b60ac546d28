package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/ichigozero/focusflow/authsvc"
	"github.com/twinj/uuid"
)

type userRepository struct {
	mtx     sync.RWMutex
	users   map[string]authsvc.User
	byEmail map[string]string
	byName  map[string]string
}

// NewUserRepository returns a UserRepository backed by process memory.
func NewUserRepository() authsvc.UserRepository {
	return &userRepository{
		users:   make(map[string]authsvc.User),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
	}
}

func (r *userRepository) Create(_ context.Context, u authsvc.User) (authsvc.User, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.byName[u.Username]; ok {
		return authsvc.User{}, authsvc.ErrUserExists
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return authsvc.User{}, authsvc.ErrUserExists
	}

	now := time.Now().UTC()
	u.ID = uuid.NewV4().String()
	u.CreatedAt, u.UpdatedAt = now, now

	r.users[u.ID] = u
	r.byName[u.Username] = u.ID
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (authsvc.User, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return authsvc.User{}, authsvc.ErrUserNotFound
	}
	return r.users[id], nil
}
