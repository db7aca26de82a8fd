package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/config"
	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

// Service implements account and authentication use cases.
type Service struct {
	userRepo         domainUser.Repository
	refreshTokenRepo domainUser.RefreshTokenRepository
	config           *config.Config
}

func NewService(
	userRepo domainUser.Repository,
	refreshTokenRepo domainUser.RefreshTokenRepository,
	cfg *config.Config,
) *Service {
	return &Service{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
	}
}

// Register creates an account. With no actor it only succeeds while the
// users table is empty, and the first account becomes an admin. Managers
// may only create drivers inside their own company.
func (s *Service) Register(ctx context.Context, actor *domainUser.Actor, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError("WEAK_PASSWORD", err.Error(), appErrors.ErrWeakPassword)
	}

	role := domainUser.Role(req.Role)
	if role == "" {
		role = domainUser.RoleDriver
	}
	companyID := req.CompanyID

	switch {
	case actor == nil:
		count, err := s.userRepo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		if count > 0 {
			return nil, appErrors.ErrInsufficientPermissions
		}
		role = domainUser.RoleAdmin
	case actor.IsAdmin():
	case actor.IsManager():
		if role != domainUser.RoleDriver {
			return nil, appErrors.ErrInsufficientPermissions
		}
		companyID = actor.CompanyID
	default:
		return nil, appErrors.ErrInsufficientPermissions
	}

	email := utils.SanitizeEmail(req.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domainUser.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		logger.Warn("Registration attempt with existing email",
			zap.String("email", email),
			zap.String("event", "registration_failed_duplicate_email"),
		)
		return nil, appErrors.ErrUserAlreadyExists
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var phone *string
	if req.Phone != nil {
		p := utils.SanitizePhone(*req.Phone)
		phone = &p
	}

	u := &domainUser.User{
		Email:        email,
		PasswordHash: hashed,
		FullName:     utils.SanitizeString(req.FullName),
		Phone:        phone,
		Role:         role,
		CompanyID:    companyID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, domainUser.ErrUserAlreadyExists) {
			return nil, appErrors.ErrUserAlreadyExists
		}
		return nil, err
	}

	logger.Info("User registered",
		zap.String("user_id", u.ID.String()),
		zap.String("email", u.Email),
		zap.String("role", string(u.Role)),
		zap.String("event", "user_registered"),
	)

	return s.issueTokens(ctx, u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	u, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Warn("Login attempt with unknown email",
				zap.String("email", req.Email),
				zap.String("event", "user_not_found"),
			)
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.IsActive {
		logger.Warn("Login attempt for inactive user",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "login_failed_inactive_user"),
		)
		return nil, appErrors.ErrUserInactive
	}

	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "login_failed_invalid_password"),
		)
		return nil, appErrors.ErrInvalidCredentials
	}

	logger.Info("User logged in",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
		zap.String("event", "login_success"),
	)

	return s.issueTokens(ctx, u)
}

// RefreshToken rotates a refresh token: the presented token is revoked and
// a new pair is issued from the current state of the account.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := utils.ValidateToken(refreshToken, s.config.JWT.Secret)
	if err != nil || claims.TokenType != utils.TokenTypeRefresh {
		logger.Warn("Token refresh with invalid token",
			zap.String("event", "token_refresh_failed_invalid_token"),
			zap.Error(err),
		)
		return nil, appErrors.ErrInvalidToken
	}

	dbToken, err := s.refreshTokenRepo.GetByToken(ctx, refreshToken)
	if err != nil || dbToken.UserID != claims.UserID || !dbToken.IsActive() {
		logger.Warn("Token refresh with unknown or mismatched token",
			zap.String("user_id", claims.UserID.String()),
			zap.String("event", "token_refresh_failed_token_not_found"),
		)
		return nil, appErrors.ErrInvalidToken
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.ErrInvalidToken
	}
	if !u.IsActive {
		return nil, appErrors.ErrUserInactive
	}

	if err := s.refreshTokenRepo.Revoke(ctx, dbToken.ID); err != nil {
		logger.Error("Failed to revoke refresh token",
			zap.String("token_id", dbToken.ID.String()),
			zap.Error(err),
		)
	}

	auth, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	logger.Debug("Token refreshed",
		zap.String("user_id", u.ID.String()),
		zap.String("old_token_id", dbToken.ID.String()),
		zap.String("event", "token_refresh_success"),
	)

	return &utils.TokenPair{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		ExpiresAt:    auth.ExpiresAt,
	}, nil
}

func (s *Service) RevokeToken(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	dbToken, err := s.refreshTokenRepo.GetByToken(ctx, refreshToken)
	if err != nil || dbToken.UserID != userID {
		return appErrors.ErrInvalidToken
	}

	if err := s.refreshTokenRepo.Revoke(ctx, dbToken.ID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	logger.Info("Refresh token revoked",
		zap.String("user_id", userID.String()),
		zap.String("token_id", dbToken.ID.String()),
		zap.String("event", "token_revoked"),
	)
	return nil
}

func (s *Service) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokenRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke all tokens for user: %w", err)
	}

	logger.Info("All refresh tokens revoked",
		zap.String("user_id", userID.String()),
		zap.String("event", "all_tokens_revoked"),
	)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return appErrors.NewAppError("WEAK_PASSWORD", err.Error(), appErrors.ErrWeakPassword)
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPassword(u.PasswordHash, req.OldPassword) {
		logger.Warn("Password change with invalid old password",
			zap.String("user_id", u.ID.String()),
			zap.String("event", "password_change_failed_invalid_old_password"),
		)
		return appErrors.ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		return err
	}

	// Sessions issued with the old password are invalidated.
	if err := s.refreshTokenRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		logger.Error("Failed to revoke tokens after password change",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	logger.Info("Password changed",
		zap.String("user_id", u.ID.String()),
		zap.String("event", "password_change_success"),
	)
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToUserResponse(u), nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*UserResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		u.FullName = utils.SanitizeString(*req.FullName)
	}
	if req.Phone != nil {
		p := utils.SanitizePhone(*req.Phone)
		u.Phone = &p
	}

	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return ToUserResponse(u), nil
}

// GetUser returns a user the actor is allowed to see.
func (s *Service) GetUser(ctx context.Context, actor domainUser.Actor, userID uuid.UUID) (*UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !actor.Manages(u) {
		return nil, appErrors.ErrInsufficientPermissions
	}
	return ToUserResponse(u), nil
}

// ListUsers lists every user for admins and the company's users for managers.
func (s *Service) ListUsers(ctx context.Context, actor domainUser.Actor, role string) ([]*UserResponse, error) {
	filter := &domainUser.Filter{}
	if role != "" {
		r := domainUser.Role(role)
		if !r.IsValid() {
			return nil, appErrors.NewAppError("INVALID_ROLE", "Invalid role filter", appErrors.ErrInvalidUserRole)
		}
		filter.Role = &r
	}

	switch {
	case actor.IsAdmin():
	case actor.IsManager():
		if actor.CompanyID == nil {
			return []*UserResponse{}, nil
		}
		filter.CompanyID = actor.CompanyID
	default:
		return nil, appErrors.ErrInsufficientPermissions
	}

	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(u))
	}
	return responses, nil
}

func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	logger.Info("User deleted",
		zap.String("user_id", userID.String()),
		zap.String("event", "user_deleted"),
	)
	return nil
}

// EnsureAdmin seeds the configured administrator when no account exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, admin config.AdminConfig) error {
	if admin.Email == "" || admin.Password == "" {
		return nil
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	u := &domainUser.User{
		Email:        strings.ToLower(strings.TrimSpace(admin.Email)),
		PasswordHash: hashed,
		FullName:     admin.FullName,
		Role:         domainUser.RoleAdmin,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	logger.Info("Seeded administrator account",
		zap.String("user_id", u.ID.String()),
		zap.String("email", u.Email),
	)
	return nil
}

func (s *Service) issueTokens(ctx context.Context, u *domainUser.User) (*AuthResponse, error) {
	pair, err := utils.GenerateTokenPair(
		utils.TokenSubject{
			UserID:    u.ID,
			Email:     u.Email,
			Role:      string(u.Role),
			CompanyID: u.CompanyID,
		},
		s.config.JWT.Secret,
		s.config.JWT.ExpiryHours,
		s.config.JWT.RefreshExpiryHours,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	refresh := &domainUser.RefreshToken{
		UserID:    u.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: time.Now().Add(time.Duration(s.config.JWT.RefreshExpiryHours) * time.Hour),
	}
	if err := s.refreshTokenRepo.Create(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		User:         ToUserResponse(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}
