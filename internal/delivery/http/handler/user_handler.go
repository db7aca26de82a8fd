package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/middleware"
	"github.com/icancar/fleet-management-sub000/internal/usecase/user"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

type UserService interface {
	Register(ctx context.Context, actor *domainUser.Actor, req *user.RegisterRequest) (*user.AuthResponse, error)
	Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*utils.TokenPair, error)
	RevokeToken(ctx context.Context, userID uuid.UUID, refreshToken string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req *user.ChangePasswordRequest) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*user.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *user.UpdateProfileRequest) (*user.UserResponse, error)
	GetUser(ctx context.Context, actor domainUser.Actor, userID uuid.UUID) (*user.UserResponse, error)
	ListUsers(ctx context.Context, actor domainUser.Actor, role string) ([]*user.UserResponse, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRoutes mounts the authentication endpoints. optionalAuth lets an
// administrator or manager create accounts through the same register call
// that bootstraps the first admin.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, optionalAuth gin.HandlerFunc) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", optionalAuth, h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
	}
}

func (h *UserHandler) RegisterProfileRoutes(router *gin.RouterGroup) {
	profile := router.Group("/profile")
	{
		profile.GET("", h.GetProfile)
		profile.PUT("", h.UpdateProfile)
		profile.POST("/change-password", h.ChangePassword)
		profile.POST("/revoke", h.RevokeToken)
	}
}

// RegisterFleetRoutes mounts the user directory for managers and admins.
func (h *UserHandler) RegisterFleetRoutes(router *gin.RouterGroup) {
	router.GET("/users", h.ListUsers)
	router.GET("/users/:user_id", h.GetUser)
}

func (h *UserHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.DELETE("/users/:user_id", h.DeleteUser)
}

func (h *UserHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)
	req.FullName = utils.SanitizeString(req.FullName)
	if req.Phone != nil {
		sanitized := utils.SanitizePhone(*req.Phone)
		req.Phone = &sanitized
	}

	var actor *domainUser.Actor
	if a, ok := middleware.GetActor(c); ok {
		actor = &a
	}

	authResponse, err := h.service.Register(c.Request.Context(), actor, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "User registered successfully", authResponse)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)

	authResponse, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Login successful", authResponse)
}

// RefreshToken accepts the refresh token in the body or as a bearer header.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	var req user.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		req.RefreshToken = bearerToken(c)
	}
	if req.RefreshToken == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Refresh token required")
		return
	}

	tokenPair, err := h.service.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Token refreshed successfully", tokenPair)
}

func (h *UserHandler) RevokeToken(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req user.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.RevokeToken(c.Request.Context(), actor.UserID, req.RefreshToken); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Token revoked successfully", nil)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), actor.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", profile)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req user.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.FullName != nil {
		sanitized := utils.SanitizeString(*req.FullName)
		req.FullName = &sanitized
	}
	if req.Phone != nil {
		sanitized := utils.SanitizePhone(*req.Phone)
		req.Phone = &sanitized
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile updated successfully", profile)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req user.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), actor.UserID, &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Password changed successfully", nil)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(c.Request.Context(), actor, c.Query("role"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), actor, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User retrieved successfully", u)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, ok := uuidParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), userID); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User deleted successfully", nil)
}
