package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"intramail/backend/internal/auth"
	jwtpkg "intramail/backend/internal/auth/jwt"
	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service         // 认证业务服务
	jwtManager  *jwtpkg.Manager       // JWT 令牌管理器
	tokens      storage.JWTRepository // jti 黑名单存储
	log         *zap.Logger           // 结构化日志记录器
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(authService *auth.Service, jwtManager *jwtpkg.Manager, tokens storage.JWTRepository, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtManager:  jwtManager,
		tokens:      tokens,
		log:         log,
	}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"` // 用户名或邮箱
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	AvatarURL *string `json:"avatarUrl"`
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
}

// Register 处理用户注册请求
// @Summary 用户注册
// @Description 创建新用户账户，返回用户信息和认证令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 201 {object} Response{data=authResponse} "注册成功"
// @Failure 400 {object} errorResponse "请求参数错误"
// @Failure 409 {object} errorResponse "邮箱或用户名已存在"
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.Register(auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.Error("failed to generate tokens", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	h.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)

	Created(c, authResponse{
		User:         toUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Login 处理用户登录请求
// @Summary 用户登录
// @Description 使用用户名（或邮箱）和密码进行身份验证，成功后返回认证令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录凭证"
// @Success 200 {object} Response{data=authResponse} "登录成功"
// @Failure 401 {object} errorResponse "用户名或密码错误"
// @Failure 403 {object} errorResponse "账户已被禁用"
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.Login(auth.LoginInput{
		Identifier: req.Username,
		Password:   req.Password,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.Error("failed to generate tokens", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	h.log.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)

	Success(c, authResponse{
		User:         toUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Refresh 刷新访问令牌
// @Summary 刷新访问令牌
// @Description 使用刷新令牌获取新的访问令牌，避免重新登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body refreshRequest true "包含刷新令牌的请求"
// @Success 200 {object} Response "新的访问令牌"
// @Failure 401 {object} errorResponse "刷新令牌无效或已过期"
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	// 已注销的刷新令牌不能换新
	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		RespondError(c, err)
		return
	}
	if revoked, err := h.tokens.IsBlacklisted(claims.ID); err == nil && revoked {
		Unauthorized(c, MsgTokenRevoked)
		return
	}

	accessToken, err := h.jwtManager.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{
		"accessToken": accessToken,
		"expiresIn":   h.jwtManager.AccessExpirySeconds(),
	})
}

// Logout 注销当前会话
// @Summary 注销
// @Description 将刷新令牌按 jti 拉入黑名单，使其不能再换取新的访问令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body refreshRequest true "包含刷新令牌的请求"
// @Success 204
// @Failure 401 {object} errorResponse "刷新令牌无效"
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		RespondError(c, err)
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := h.tokens.AddToBlacklist(claims.ID, ttl); err != nil {
		h.log.Error("failed to blacklist token", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	h.log.Info("user logged out", zap.String("user_id", claims.UserID))
	NoContent(c)
}

// Me 获取当前用户信息
// @Summary 获取当前用户信息
// @Description 获取已认证用户的详细信息，需要有效的访问令牌
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=userResponse} "用户信息"
// @Failure 401 {object} errorResponse "未认证或令牌无效"
// @Failure 404 {object} errorResponse "用户不存在"
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUserByID(CurrentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, toUserResponse(user))
}

// UpdateMe 更新当前用户资料
// @Summary 更新个人资料
// @Description 更新姓名与头像，只覆盖请求中出现的字段
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest true "资料字段"
// @Success 200 {object} Response{data=userResponse}
// @Failure 404 {object} errorResponse "用户不存在"
// @Router /v1/auth/me [patch]
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.UpdateProfile(CurrentUserID(c), auth.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, toUserResponse(user))
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Description 验证旧密码后更新为新密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body changePasswordRequest true "新旧密码"
// @Success 204
// @Failure 400 {object} errorResponse "旧密码错误或新密码不符合要求"
// @Router /v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.authService.ChangePassword(CurrentUserID(c), req.OldPassword, req.NewPassword); err != nil {
		if err == auth.ErrUserNotFound {
			RespondError(c, err)
			return
		}
		// 旧密码错误与强度不足都按参数错误处理
		BadRequest(c, err.Error())
		return
	}

	h.log.Info("password changed", zap.String("user_id", CurrentUserID(c)))
	NoContent(c)
}

// toUserResponse 转换用户实体为响应体
func toUserResponse(user *domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		AvatarURL: user.AvatarURL,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
	}
}
