package gorm

import (
	"context"
	"errors"

	"github.com/ichigozero/focusflow/authsvc"
	"github.com/jackc/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/twinj/uuid"
	libgorm "gorm.io/gorm"
)

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) authsvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) Create(ctx context.Context, user authsvc.User) (authsvc.User, error) {
	db := u.db.WithContext(ctx)

	var n int64
	result := db.Model(&authsvc.User{}).
		Where("username = ? OR email = ?", user.Username, user.Email).
		Count(&n)
	if result.Error != nil {
		return authsvc.User{}, result.Error
	}
	if n > 0 {
		return authsvc.User{}, authsvc.ErrUserExists
	}

	user.ID = uuid.NewV4().String()
	result = db.Create(&user)
	if isUniqueViolation(result.Error) {
		return authsvc.User{}, authsvc.ErrUserExists
	}

	return user, result.Error
}

func (u *userRepository) FindByEmail(ctx context.Context, email string) (authsvc.User, error) {
	var user authsvc.User
	result := u.db.WithContext(ctx).Where("email = ?", email).First(&user)

	return user, notFound(result.Error)
}

func notFound(err error) error {
	if errors.Is(err, libgorm.ErrRecordNotFound) {
		return authsvc.ErrUserNotFound
	}
	return err
}

// isUniqueViolation catches the race where two registrations pass the
// existence check together.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
