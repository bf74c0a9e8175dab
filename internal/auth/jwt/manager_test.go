package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret-key-that-is-long-enough-32"

func TestManager_GenerateAndValidate(t *testing.T) {
	manager := NewManager(testSecret, "intramail", 15*time.Minute, 7*24*time.Hour)

	pair, err := manager.GenerateTokenPair("user-1", "alice@example.com", "user")
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	t.Run("访问令牌声明完整", func(t *testing.T) {
		claims, err := manager.ValidateToken(pair.AccessToken)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, "user", claims.Role)
		assert.Equal(t, "intramail", claims.Issuer)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("访问令牌与刷新令牌的jti各不相同", func(t *testing.T) {
		accessClaims, err := manager.ValidateToken(pair.AccessToken)
		assert.NoError(t, err)
		refreshClaims, err := manager.ValidateToken(pair.RefreshToken)
		assert.NoError(t, err)
		assert.NotEqual(t, accessClaims.ID, refreshClaims.ID)
	})

	t.Run("错误密钥验证失败", func(t *testing.T) {
		other := NewManager("another-secret-key-that-is-32-chars!!", "intramail", 15*time.Minute, 7*24*time.Hour)
		_, err := other.ValidateToken(pair.AccessToken)
		assert.Equal(t, ErrInvalidToken, err)
	})

	t.Run("伪造令牌验证失败", func(t *testing.T) {
		_, err := manager.ValidateToken("not.a.token")
		assert.Equal(t, ErrInvalidToken, err)
	})
}

func TestManager_Expiry(t *testing.T) {
	manager := NewManager(testSecret, "intramail", -1*time.Minute, 7*24*time.Hour)

	pair, err := manager.GenerateTokenPair("user-1", "alice@example.com", "user")
	assert.NoError(t, err)

	t.Run("过期令牌返回专门的错误", func(t *testing.T) {
		_, err := manager.ValidateToken(pair.AccessToken)
		assert.Equal(t, ErrExpiredToken, err)
	})
}

func TestManager_RefreshAccessToken(t *testing.T) {
	manager := NewManager(testSecret, "intramail", 15*time.Minute, 7*24*time.Hour)

	pair, err := manager.GenerateTokenPair("user-1", "alice@example.com", "user")
	assert.NoError(t, err)

	t.Run("刷新出新的访问令牌", func(t *testing.T) {
		token, err := manager.RefreshAccessToken(pair.RefreshToken)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := manager.ValidateToken(token)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)

		// 新令牌有独立的 jti
		oldClaims, err := manager.ValidateToken(pair.RefreshToken)
		assert.NoError(t, err)
		assert.NotEqual(t, oldClaims.ID, claims.ID)
	})

	t.Run("无效的刷新令牌被拒绝", func(t *testing.T) {
		_, err := manager.RefreshAccessToken("garbage")
		assert.Equal(t, ErrInvalidToken, err)
	})
}

func TestManager_ExtractUserID(t *testing.T) {
	manager := NewManager(testSecret, "intramail", 15*time.Minute, 7*24*time.Hour)

	pair, err := manager.GenerateTokenPair("user-42", "bob@example.com", "user")
	assert.NoError(t, err)

	userID, err := manager.ExtractUserID(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}
