package authservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-playground/validator/v10"
	"github.com/ichigozero/focusflow/authsvc"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, username, email, password string) (string, authsvc.User, error)
	Login(ctx context.Context, email, password string) (string, authsvc.User, error)
}

func New(users authsvc.UserRepository, t Tokenizer, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users, t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users     authsvc.UserRepository
	tokenizer Tokenizer
	cost      int
}

func NewBasicService(users authsvc.UserRepository, t Tokenizer) Service {
	return &basicService{users: users, tokenizer: t, cost: bcrypt.DefaultCost}
}

type registration struct {
	Username string `validate:"required,min=3,max=30"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

var validate = validator.New()

func (s *basicService) Register(ctx context.Context, username, email, password string) (string, authsvc.User, error) {
	r := registration{
		Username: strings.TrimSpace(username),
		Email:    normalizeEmail(email),
		Password: password,
	}
	if err := validate.Struct(r); err != nil {
		return "", authsvc.User{}, invalidRegistration(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return "", authsvc.User{}, err
	}

	u, err := s.users.Create(ctx, authsvc.User{
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return "", authsvc.User{}, err
	}

	token, err := s.tokenizer.Issue(u.ID)
	if err != nil {
		return "", authsvc.User{}, err
	}
	return token, u, nil
}

func (s *basicService) Login(ctx context.Context, email, password string) (string, authsvc.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", authsvc.User{}, authsvc.ErrLoginFailed
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, authsvc.ErrUserNotFound) {
		return "", authsvc.User{}, authsvc.ErrLoginFailed
	}
	if err != nil {
		return "", authsvc.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", authsvc.User{}, authsvc.ErrLoginFailed
	}

	token, err := s.tokenizer.Issue(u.ID)
	if err != nil {
		return "", authsvc.User{}, err
	}
	return token, u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidRegistration(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return authsvc.ErrInvalidArgument
	}

	fe := errs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", authsvc.ErrInvalidArgument, field)
	case "email":
		return fmt.Errorf("%w: email is malformed", authsvc.ErrInvalidArgument)
	case "min":
		return fmt.Errorf("%w: %s must be at least %s characters", authsvc.ErrInvalidArgument, field, fe.Param())
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", authsvc.ErrInvalidArgument, field, fe.Param())
	}
	return fmt.Errorf("%w: %s is invalid", authsvc.ErrInvalidArgument, field)
}
