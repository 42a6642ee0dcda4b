package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dairy-service/internal/auth"
	"dairy-service/internal/domain"
	"dairy-service/internal/mocks"
	"dairy-service/internal/repository"
	"dairy-service/internal/repository/memory"
)

func newUserService(t *testing.T) (*UserService, *auth.TokenIssuer, repository.UserRepository) {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour, "dairy-service")
	return NewUserService(store.Users(), store.Orders(), tokens, zap.NewNop().Sugar()), tokens, store.Users()
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:    "  Jane@Example.com ",
		Password: "correct-horse",
		Name:     "Jane Doe",
		Phone:    "555-0100",
		Address:  domain.Address{Street: "1 Farm Rd", City: "Lasso", State: "TX", ZipCode: "75001"},
	}
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*RegisterInput)
		expectedError error
	}{
		{name: "valid", mutate: func(*RegisterInput) {}},
		{name: "bad email", mutate: func(in *RegisterInput) { in.Email = "not-an-email" }, expectedError: ErrValidation},
		{name: "short password", mutate: func(in *RegisterInput) { in.Password = "short" }, expectedError: ErrWeakPassword},
		{name: "blank name", mutate: func(in *RegisterInput) { in.Name = "  " }, expectedError: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tokens, _ := newUserService(t)
			in := registerInput()
			tt.mutate(&in)

			session, err := svc.Register(context.Background(), in)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "jane@example.com", session.User.Email)
			assert.Equal(t, domain.RoleCustomer, session.User.Role)
			assert.Equal(t, domain.DefaultCountry, session.User.Address.Country)
			assert.NotEqual(t, in.Password, session.User.PasswordHash)

			claims, err := tokens.Parse(session.Token)
			require.NoError(t, err)
			id, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, session.User.ID, id)
		})
	}
}

func TestUserService_RegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	in := registerInput()
	in.Email = "JANE@example.com"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserService_Login(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	tests := []struct {
		name          string
		email         string
		password      string
		expectedError error
	}{
		{name: "valid", email: "jane@example.com", password: "correct-horse"},
		{name: "case insensitive email", email: "JANE@EXAMPLE.COM", password: "correct-horse"},
		{name: "wrong password", email: "jane@example.com", password: "battery-staple", expectedError: ErrInvalidCredentials},
		{name: "unknown user", email: "bob@example.com", password: "correct-horse", expectedError: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(ctx, tt.email, tt.password)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.Token)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	svc, tokens, _ := newUserService(t)
	ctx := context.Background()
	session, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, u.ID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	ghost, err := tokens.Issue(&domain.User{ID: 999, Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrUnauthorized, "token for a deleted user")
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	jane, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	other := registerInput()
	other.Email = "bob@example.com"
	_, err = svc.Register(ctx, other)
	require.NoError(t, err)

	name := "Jane Q. Doe"
	password := "new-password-1"
	session, err := svc.UpdateProfile(ctx, jane.User.ID, UpdateProfileInput{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, name, session.User.Name)

	_, err = svc.Login(ctx, "jane@example.com", password)
	assert.NoError(t, err, "new password is active")

	taken := "bob@example.com"
	_, err = svc.UpdateProfile(ctx, jane.User.ID, UpdateProfileInput{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.UpdateProfile(ctx, 999, UpdateProfileInput{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	session, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	id := session.User.ID

	assert.ErrorIs(t, svc.ChangePassword(ctx, id, "wrong-current", "another-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, id, "correct-horse", "short"), ErrWeakPassword)
	require.NoError(t, svc.ChangePassword(ctx, id, "correct-horse", "another-pass"))

	_, err = svc.Login(ctx, "jane@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "jane@example.com", "another-pass")
	assert.NoError(t, err)
}

func TestUserService_UserDetail(t *testing.T) {
	f := newFixture(t)
	milk := f.addProduct(t, TestProductName, "3.50", map[string]int{TestDeliveryDate: 10})
	f.placeOrder(t, PlaceOrderInput{Items: []OrderItemInput{{ProductID: milk.ID, Quantity: 1}}})
	svc := NewUserService(f.users, f.orders, auth.NewTokenIssuer("s", time.Hour, "i"), zap.NewNop().Sugar())

	detail, err := svc.UserDetail(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, detail.User.ID)
	assert.Len(t, detail.Orders, 1)

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.UserDetail(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_RegisterStoreRace(t *testing.T) {
	users := &mocks.MockUserRepository{}
	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, nil)
	users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(repository.ErrDuplicate)
	svc := NewUserService(users, nil, auth.NewTokenIssuer("s", time.Hour, "i"), zap.NewNop().Sugar())

	_, err := svc.Register(context.Background(), registerInput())
	assert.ErrorIs(t, err, ErrEmailTaken)
	users.AssertExpectations(t)
}

func TestUserService_StoreFailure(t *testing.T) {
	users := &mocks.MockUserRepository{}
	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, errors.New("connection refused"))
	svc := NewUserService(users, nil, auth.NewTokenIssuer("s", time.Hour, "i"), zap.NewNop().Sugar())

	_, err := svc.Login(context.Background(), "jane@example.com", "whatever")
	assert.EqualError(t, err, "connection refused")
}
