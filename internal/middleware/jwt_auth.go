package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"intramail/backend/internal/auth/jwt"
	"intramail/backend/internal/storage"
)

// JWTAuth JWT认证中间件
type JWTAuth struct {
	jwtManager *jwt.Manager
	tokens     storage.JWTRepository // jti 黑名单
	log        *zap.Logger
}

// NewJWTAuth 创建JWT认证中间件
func NewJWTAuth(jwtManager *jwt.Manager, tokens storage.JWTRepository, log *zap.Logger) *JWTAuth {
	return &JWTAuth{
		jwtManager: jwtManager,
		tokens:     tokens,
		log:        log,
	}
}

// RequireAuth 要求JWT认证
//
// 验证通过后把 userID/email/role 写入请求上下文。
func (ja *JWTAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ja.extractToken(c)
		if token == "" {
			abortUnauthorized(c, "需要登录认证")
			return
		}

		claims, err := ja.jwtManager.ValidateToken(token)
		if err != nil {
			ja.log.Warn("invalid token",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()),
			)
			abortUnauthorized(c, "无效或已过期的令牌")
			return
		}

		// 已注销的令牌按未认证处理
		if revoked, err := ja.tokens.IsBlacklisted(claims.ID); err == nil && revoked {
			abortUnauthorized(c, "令牌已注销")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// OptionalAuth 可选的JWT认证
func (ja *JWTAuth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ja.extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := ja.jwtManager.ValidateToken(token)
		if err == nil {
			if revoked, berr := ja.tokens.IsBlacklisted(claims.ID); berr == nil && !revoked {
				c.Set("userID", claims.UserID)
				c.Set("email", claims.Email)
				c.Set("role", claims.Role)
				c.Set("authenticated", true)
			}
		}

		c.Next()
	}
}

// extractToken 从请求中提取JWT token
func (ja *JWTAuth) extractToken(c *gin.Context) string {
	// 1. 从 Authorization header 提取
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	// 2. 从 cookie 提取（WebSocket 握手用）
	token, err := c.Cookie("access_token")
	if err == nil && token != "" {
		return token
	}

	// 3. 从查询参数提取（浏览器 WebSocket 客户端无法设置请求头）
	return c.Query("token")
}

// abortUnauthorized 统一的 401 中止响应
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"detail": msg},
	})
}
