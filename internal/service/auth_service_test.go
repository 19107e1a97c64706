package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/security"
	"github.com/charly05tr/ClassMatchAPI/internal/service"
)

func newAuthService(userRepo *MockUserRepo) *service.AuthService {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	return service.NewAuthService(userRepo, tokenSvc, hasher)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newAuthService(userRepo)

		userRepo.On("GetByEmail", mock.Anything, "ana@example.com").Return(nil, nil)
		userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "ana@example.com" && u.HashedPassword != "Password1!"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 1
		}).Return(nil)

		resp, err := svc.Register(ctx, service.RegisterInput{
			Email:     "ana@example.com",
			Name:      "Perez",
			FirstName: "Ana",
			Password:  "Password1!",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		// username defaults to email when not provided
		assert.Equal(t, "ana@example.com", resp.User.Username)
	})

	t.Run("MissingFields", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newAuthService(userRepo)

		_, err := svc.Register(ctx, service.RegisterInput{Email: "ana@example.com"})
		assert.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeInvalidArgument))
	})

	t.Run("EmailTaken", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newAuthService(userRepo)

		userRepo.On("GetByEmail", mock.Anything, "taken@example.com").
			Return(&domain.User{ID: 2, Email: "taken@example.com"}, nil)

		_, err := svc.Register(ctx, service.RegisterInput{
			Email:     "taken@example.com",
			Name:      "Perez",
			FirstName: "Ana",
			Password:  "Password1!",
		})
		assert.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeAlreadyExists))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newAuthService(userRepo)
		hasher := security.NewPasswordHasher(4)
		hashed, err := hasher.Hash("Password1!")
		assert.NoError(t, err)

		userRepo.On("GetByEmail", mock.Anything, "ana@example.com").
			Return(&domain.User{ID: 1, Email: "ana@example.com", HashedPassword: hashed}, nil)

		resp, err := svc.Login(ctx, service.LoginInput{Email: "ana@example.com", Password: "Password1!"})
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)

		// the token subject must resolve back to the user id
		tokenSvc := security.NewTokenService("secret", time.Hour)
		userID, err := tokenSvc.ParseUserID(resp.AccessToken)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), userID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newAuthService(userRepo)
		hasher := security.NewPasswordHasher(4)
		hashed, _ := hasher.Hash("Password1!")

		userRepo.On("GetByEmail", mock.Anything, "ana@example.com").
			Return(&domain.User{ID: 1, HashedPassword: hashed}, nil)

		_, err := svc.Login(ctx, service.LoginInput{Email: "ana@example.com", Password: "nope"})
		assert.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeUnauthenticated))
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newAuthService(userRepo)

		userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		_, err := svc.Login(ctx, service.LoginInput{Email: "ghost@example.com", Password: "x"})
		assert.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeUnauthenticated))
	})
}
