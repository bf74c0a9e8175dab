package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

func TestStore_UserUniqueness(t *testing.T) {
	store := NewStore()

	user := &domain.User{ID: "u1", Email: "a@example.com", Username: "Alice"}
	assert.NoError(t, store.CreateUser(user))

	t.Run("邮箱重复", func(t *testing.T) {
		err := store.CreateUser(&domain.User{ID: "u2", Email: "a@example.com", Username: "other"})
		assert.Equal(t, storage.ErrEmailExists, err)
	})

	t.Run("用户名不区分大小写", func(t *testing.T) {
		err := store.CreateUser(&domain.User{ID: "u3", Email: "b@example.com", Username: "alice"})
		assert.Equal(t, storage.ErrUsernameExists, err)

		got, err := store.GetUserByUsername("ALICE")
		assert.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
	})
}

func TestStore_JWTBlacklist(t *testing.T) {
	store := NewStore()

	t.Run("拉黑后命中", func(t *testing.T) {
		assert.NoError(t, store.AddToBlacklist("jti-1", time.Minute))

		blocked, err := store.IsBlacklisted("jti-1")
		assert.NoError(t, err)
		assert.True(t, blocked)
	})

	t.Run("未拉黑不命中", func(t *testing.T) {
		blocked, err := store.IsBlacklisted("jti-unknown")
		assert.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("过期条目自动失效", func(t *testing.T) {
		assert.NoError(t, store.AddToBlacklist("jti-2", 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		blocked, err := store.IsBlacklisted("jti-2")
		assert.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("已过期的令牌无需拉黑", func(t *testing.T) {
		assert.NoError(t, store.AddToBlacklist("jti-3", -time.Minute))

		blocked, err := store.IsBlacklisted("jti-3")
		assert.NoError(t, err)
		assert.False(t, blocked)
	})
}

func TestStore_RateLimit(t *testing.T) {
	store := NewStore()

	t.Run("窗口内计数递增", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			count, err := store.IncrementRateLimit("auth:1.2.3.4", time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, i, count)
		}

		count, err := store.GetRateLimit("auth:1.2.3.4")
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("窗口过期后重新计数", func(t *testing.T) {
		_, err := store.IncrementRateLimit("auth:5.6.7.8", 10*time.Millisecond)
		assert.NoError(t, err)
		time.Sleep(20 * time.Millisecond)

		count, err := store.IncrementRateLimit("auth:5.6.7.8", time.Minute)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestStore_Session(t *testing.T) {
	store := NewStore()

	t.Run("缓存和读取会话", func(t *testing.T) {
		assert.NoError(t, store.CacheSession("s1", "u1", time.Minute))

		userID, err := store.GetCachedSession("s1")
		assert.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("删除会话", func(t *testing.T) {
		assert.NoError(t, store.DeleteCachedSession("s1"))

		_, err := store.GetCachedSession("s1")
		assert.Error(t, err)
	})

	t.Run("过期会话读取失败", func(t *testing.T) {
		assert.NoError(t, store.CacheSession("s2", "u2", 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		_, err := store.GetCachedSession("s2")
		assert.Error(t, err)
	})
}

func TestStore_DeliveryLifecycle(t *testing.T) {
	store := NewStore()

	recipient := "bob"
	msg := &domain.Message{ID: "m1", Subject: "测试", Body: "正文"}
	d := &domain.Delivery{
		ID:          "d1",
		MessageID:   "m1",
		SenderID:    "alice",
		RecipientID: &recipient,
		Unread:      true,
	}

	t.Run("原子创建内容与投递", func(t *testing.T) {
		assert.NoError(t, store.CreateDelivery(msg, d))

		got, err := store.GetDelivery("d1")
		assert.NoError(t, err)
		assert.NotNil(t, got.Message)
		assert.Equal(t, "测试", got.Message.Subject)
		assert.False(t, got.SentAt.IsZero())
	})

	t.Run("为不存在的内容创建投递失败", func(t *testing.T) {
		err := store.CreateDeliveryForMessage(&domain.Delivery{
			ID:          "d2",
			MessageID:   "ghost",
			SenderID:    "alice",
			RecipientID: &recipient,
		})
		assert.Equal(t, storage.ErrMessageNotFound, err)
	})

	t.Run("孤儿内容清理不触碰被引用的内容", func(t *testing.T) {
		assert.NoError(t, store.SaveMessage(&domain.Message{ID: "orphan", Subject: "孤儿"}))

		count, err := store.DeleteOrphanMessages()
		assert.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = store.GetMessage("m1")
		assert.NoError(t, err)
		_, err = store.GetMessage("orphan")
		assert.Equal(t, storage.ErrMessageNotFound, err)
	})
}
