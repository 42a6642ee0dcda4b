package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"dairy-service/internal/auth"
	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Address  domain.Address
}

type UpdateProfileInput struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *domain.Address
	Password *string
}

// Session is a user together with a freshly issued bearer token.
type Session struct {
	User  *domain.User
	Token string
}

type UserDetail struct {
	User   *domain.User   `json:"user"`
	Orders []domain.Order `json:"orders"`
}

var validate = validator.New()

type UserService struct {
	users  repository.UserRepository
	orders repository.OrderRepository
	tokens *auth.TokenIssuer
	log    *zap.SugaredLogger
}

func NewUserService(users repository.UserRepository, orders repository.OrderRepository, tokens *auth.TokenIssuer, log *zap.SugaredLogger) *UserService {
	return &UserService{
		users:  users,
		orders: orders,
		tokens: tokens,
		log:    log,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      in.Address.Normalized(),
		Role:         domain.RoleCustomer,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.Infow("user registered", "user_id", u.ID)
	return s.session(u)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// Authenticate resolves a bearer token to its user. A token for a user that
// no longer exists is rejected.
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	id, _ := claims.UserID()

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}
	return u, nil
}

func (s *UserService) Profile(ctx context.Context, id uint64) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint64, in UpdateProfileInput) (*Session, error) {
	u, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		u.Name = name
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		u.Address = in.Address.Normalized()
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if email != u.Email {
			other, err := s.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, ErrEmailTaken
			}
			u.Email = email
		}
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.session(u)
}

func (s *UserService) ChangePassword(ctx context.Context, id uint64, current, next string) error {
	u, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.log.Infow("password changed", "user_id", id)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) UserDetail(ctx context.Context, id uint64) (*UserDetail, error) {
	u, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, repository.OrderFilter{UserID: id})
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: u, Orders: orders}, nil
}

func (s *UserService) session(u *domain.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return email, nil
}

func hashPassword(raw string) (string, error) {
	hash, err := auth.HashPassword(raw)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return "", ErrWeakPassword
	}
	return hash, err
}
