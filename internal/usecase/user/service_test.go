package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/icancar/fleet-management-sub000/internal/config"
	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	userMocks "github.com/icancar/fleet-management-sub000/internal/domain/user/mocks"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

const strongPassword = "Str0ng!Pass"

func newTestService(t *testing.T) (*Service, *userMocks.MockRepository, *userMocks.MockRefreshTokenRepository) {
	ctrl := gomock.NewController(t)
	users := userMocks.NewMockRepository(ctrl)
	tokens := userMocks.NewMockRefreshTokenRepository(ctrl)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, RefreshExpiryHours: 24}}
	return NewService(users, tokens, cfg), users, tokens
}

func registerRequest(role string) *RegisterRequest {
	return &RegisterRequest{
		Email:           "Driver@Example.com",
		Password:        strongPassword,
		ConfirmPassword: strongPassword,
		FullName:        "Dana Driver",
		Role:            role,
	}
}

func TestRegister_FirstAccountBecomesAdmin(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()

	users.EXPECT().Count(ctx).Return(int64(0), nil)
	users.EXPECT().GetByEmail(ctx, "driver@example.com").Return(nil, domainUser.ErrUserNotFound)
	users.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domainUser.User) error {
		u.ID = uuid.New()
		return nil
	})
	tokens.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	resp, err := svc.Register(ctx, nil, registerRequest("driver"))
	require.NoError(t, err)
	assert.Equal(t, string(domainUser.RoleAdmin), resp.User.Role)
	assert.Equal(t, "driver@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestRegister_PublicClosedOnceUsersExist(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	users.EXPECT().Count(ctx).Return(int64(3), nil)

	_, err := svc.Register(ctx, nil, registerRequest("driver"))
	assert.ErrorIs(t, err, appErrors.ErrInsufficientPermissions)
}

func TestRegister_ManagerCreatesDriverInOwnCompany(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()
	company := uuid.New()
	other := uuid.New()
	manager := &domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleManager, CompanyID: &company}

	req := registerRequest("driver")
	req.CompanyID = &other

	users.EXPECT().GetByEmail(ctx, gomock.Any()).Return(nil, domainUser.ErrUserNotFound)
	users.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domainUser.User) error {
		require.NotNil(t, u.CompanyID)
		assert.Equal(t, company, *u.CompanyID)
		assert.Equal(t, domainUser.RoleDriver, u.Role)
		return nil
	})
	tokens.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := svc.Register(ctx, manager, req)
	require.NoError(t, err)
}

func TestRegister_ManagerCannotCreateManager(t *testing.T) {
	svc, _, _ := newTestService(t)
	manager := &domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleManager}

	_, err := svc.Register(context.Background(), manager, registerRequest("manager"))
	assert.ErrorIs(t, err, appErrors.ErrInsufficientPermissions)
}

func TestRegister_WeakPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := registerRequest("driver")
	req.Password = "weakpassword"
	req.ConfirmPassword = "weakpassword"

	_, err := svc.Register(context.Background(), nil, req)
	assert.Equal(t, "WEAK_PASSWORD", appErrors.Code(err))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	admin := &domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleAdmin}

	users.EXPECT().GetByEmail(ctx, "driver@example.com").Return(&domainUser.User{ID: uuid.New()}, nil)

	_, err := svc.Register(ctx, admin, registerRequest("driver"))
	assert.ErrorIs(t, err, appErrors.ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword(strongPassword)
	require.NoError(t, err)

	tests := []struct {
		name     string
		user     *domainUser.User
		findErr  error
		password string
		wantErr  error
	}{
		{
			name:     "success",
			user:     &domainUser.User{ID: uuid.New(), Email: "a@b.co", PasswordHash: hash, Role: domainUser.RoleDriver, IsActive: true},
			password: strongPassword,
		},
		{
			name:     "wrong password",
			user:     &domainUser.User{ID: uuid.New(), Email: "a@b.co", PasswordHash: hash, IsActive: true},
			password: "Wr0ng!Pass",
			wantErr:  appErrors.ErrInvalidCredentials,
		},
		{
			name:     "inactive",
			user:     &domainUser.User{ID: uuid.New(), Email: "a@b.co", PasswordHash: hash, IsActive: false},
			password: strongPassword,
			wantErr:  appErrors.ErrUserInactive,
		},
		{
			name:     "unknown email",
			findErr:  domainUser.ErrUserNotFound,
			password: strongPassword,
			wantErr:  appErrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, tokens := newTestService(t)
			ctx := context.Background()

			users.EXPECT().GetByEmail(ctx, "a@b.co").Return(tt.user, tt.findErr)
			if tt.wantErr == nil {
				tokens.EXPECT().Create(ctx, gomock.Any()).Return(nil)
			}

			resp, err := svc.Login(ctx, &LoginRequest{Email: "a@b.co", Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.user.ID, resp.User.ID)

			claims, err := utils.ValidateToken(resp.AccessToken, "test-secret")
			require.NoError(t, err)
			assert.Equal(t, utils.TokenTypeAccess, claims.TokenType)
		})
	}
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	pair, err := utils.GenerateTokenPair(utils.TokenSubject{UserID: uuid.New(), Role: "driver"}, "test-secret", 1, 24)
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestRefreshToken_Rotates(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()
	u := &domainUser.User{ID: uuid.New(), Email: "a@b.co", Role: domainUser.RoleDriver, IsActive: true}

	pair, err := utils.GenerateTokenPair(utils.TokenSubject{UserID: u.ID, Email: u.Email, Role: "driver"}, "test-secret", 1, 24)
	require.NoError(t, err)

	stored := &domainUser.RefreshToken{ID: uuid.New(), UserID: u.ID, Token: pair.RefreshToken, ExpiresAt: time.Now().Add(time.Hour)}
	tokens.EXPECT().GetByToken(ctx, pair.RefreshToken).Return(stored, nil)
	users.EXPECT().GetByID(ctx, u.ID).Return(u, nil)
	tokens.EXPECT().Revoke(ctx, stored.ID).Return(nil)
	tokens.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)
}

func TestListUsers_ManagerScopedToCompany(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	company := uuid.New()
	manager := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleManager, CompanyID: &company}

	users.EXPECT().List(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, f *domainUser.Filter) ([]*domainUser.User, error) {
		require.NotNil(t, f.CompanyID)
		assert.Equal(t, company, *f.CompanyID)
		require.NotNil(t, f.Role)
		assert.Equal(t, domainUser.RoleDriver, *f.Role)
		return []*domainUser.User{{ID: uuid.New(), Role: domainUser.RoleDriver}}, nil
	})

	list, err := svc.ListUsers(ctx, manager, "driver")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListUsers_DriverForbidden(t *testing.T) {
	svc, _, _ := newTestService(t)
	driver := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleDriver}

	_, err := svc.ListUsers(context.Background(), driver, "")
	assert.ErrorIs(t, err, appErrors.ErrInsufficientPermissions)
}

func TestEnsureAdmin(t *testing.T) {
	admin := config.AdminConfig{Email: "Root@Fleet.io", Password: strongPassword, FullName: "Root"}

	t.Run("skips when users exist", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.EXPECT().Count(gomock.Any()).Return(int64(1), nil)
		assert.NoError(t, svc.EnsureAdmin(context.Background(), admin))
	})

	t.Run("seeds first admin", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.EXPECT().Count(gomock.Any()).Return(int64(0), nil)
		users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *domainUser.User) error {
			assert.Equal(t, "root@fleet.io", u.Email)
			assert.Equal(t, domainUser.RoleAdmin, u.Role)
			assert.True(t, utils.CheckPassword(u.PasswordHash, strongPassword))
			return nil
		})
		assert.NoError(t, svc.EnsureAdmin(context.Background(), admin))
	})

	t.Run("noop without credentials", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		assert.NoError(t, svc.EnsureAdmin(context.Background(), config.AdminConfig{}))
	})
}
