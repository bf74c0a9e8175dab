package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache(t *testing.T) {
	t.Run("设置和读取", func(t *testing.T) {
		c := NewLocalCache(10, time.Minute)

		c.Set("k1", "v1", 0)
		val, ok := c.Get("k1")
		assert.True(t, ok)
		assert.Equal(t, "v1", val)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("过期条目读取失败", func(t *testing.T) {
		c := NewLocalCache(10, time.Minute)

		c.Set("k1", "v1", 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		_, ok := c.Get("k1")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("更新已有键不增加条目数", func(t *testing.T) {
		c := NewLocalCache(10, time.Minute)

		c.Set("k1", "v1", 0)
		c.Set("k1", "v2", 0)

		val, ok := c.Get("k1")
		assert.True(t, ok)
		assert.Equal(t, "v2", val)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("容量满后拒绝新键", func(t *testing.T) {
		c := NewLocalCache(2, time.Minute)

		c.Set("k1", 1, 0)
		c.Set("k2", 2, 0)
		c.Set("k3", 3, 0)

		_, ok := c.Get("k3")
		assert.False(t, ok)
		assert.Equal(t, 2, c.Len())

		// 已有键仍可更新
		c.Set("k1", 10, 0)
		val, ok := c.Get("k1")
		assert.True(t, ok)
		assert.Equal(t, 10, val)
	})

	t.Run("删除", func(t *testing.T) {
		c := NewLocalCache(10, time.Minute)

		c.Set("k1", "v1", 0)
		c.Delete("k1")

		_, ok := c.Get("k1")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})
}
