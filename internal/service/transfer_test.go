package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"intramail/backend/internal/config"
	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
	"intramail/backend/internal/storage/memory"
)

// newTestConfig 构造测试用配置
func newTestConfig() *config.Config {
	return &config.Config{
		Mail: config.MailConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

// seedUser 在存储中创建一个测试用户
func seedUser(t *testing.T, store *memory.Store, id string) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:       id,
		Email:    fmt.Sprintf("%s@example.com", id),
		Username: id,
		Role:     domain.RoleUser,
		IsActive: true,
	}
	assert.NoError(t, store.CreateUser(user))
	return user
}

// seedGroup 创建一个群组并添加成员
func seedGroup(t *testing.T, store *memory.Store, id, creatorID string, memberIDs ...string) *domain.Group {
	t.Helper()

	group := &domain.Group{
		ID:        id,
		Name:      "group-" + id,
		CreatorID: creatorID,
	}
	assert.NoError(t, store.SaveGroup(group))

	for i, userID := range append([]string{creatorID}, memberIDs...) {
		assert.NoError(t, store.AddGroupMember(&domain.GroupMember{
			ID:      fmt.Sprintf("%s-m%d", id, i),
			GroupID: id,
			UserID:  userID,
			AddedBy: creatorID,
		}))
	}
	return group
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

func TestTransferService_Send(t *testing.T) {
	store := memory.NewStore()
	service := NewTransferService(store, NewAccessGate(store), newTestConfig())

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedUser(t, store, "carol")
	seedGroup(t, store, "g1", "alice", "bob")

	t.Run("直接发送成功", func(t *testing.T) {
		delivery, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			Subject:     "项目进度",
			Body:        "本周完成了存储层",
		})

		assert.NoError(t, err)
		assert.NotNil(t, delivery)
		assert.NotEmpty(t, delivery.ID)
		assert.Equal(t, "alice", delivery.SenderID)
		assert.Equal(t, "bob", *delivery.RecipientID)
		assert.Nil(t, delivery.GroupID)
		assert.True(t, delivery.Unread)
		assert.False(t, delivery.SentAt.IsZero())
		assert.NotNil(t, delivery.Message)
		assert.Equal(t, "项目进度", delivery.Message.Subject)
	})

	t.Run("发送到群组成功", func(t *testing.T) {
		delivery, err := service.Send(SendInput{
			SenderID: "alice",
			GroupID:  strPtr("g1"),
			Subject:  "组内通知",
			Body:     "下午三点例会",
		})

		assert.NoError(t, err)
		assert.NotNil(t, delivery)
		assert.Nil(t, delivery.RecipientID)
		assert.Equal(t, "g1", *delivery.GroupID)
	})

	t.Run("收件目标必须二选一", func(t *testing.T) {
		_, err := service.Send(SendInput{
			SenderID: "alice",
			Subject:  "没有目标",
		})
		assert.Equal(t, ErrAmbiguousTarget, err)

		_, err = service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			GroupID:     strPtr("g1"),
			Subject:     "两个目标",
		})
		assert.Equal(t, ErrAmbiguousTarget, err)
	})

	t.Run("不能发给自己", func(t *testing.T) {
		_, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("alice"),
			Subject:     "自言自语",
		})
		assert.Equal(t, ErrSelfSend, err)
	})

	t.Run("主题不能为空", func(t *testing.T) {
		_, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			Subject:     "",
		})
		assert.Equal(t, ErrSubjectRequired, err)
	})

	t.Run("主题长度超限", func(t *testing.T) {
		long := make([]byte, 201)
		for i := range long {
			long[i] = 'x'
		}

		_, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			Subject:     string(long),
		})
		assert.Equal(t, ErrSubjectTooLong, err)
	})

	t.Run("收件人不存在", func(t *testing.T) {
		_, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("ghost"),
			Subject:     "查无此人",
		})
		assert.Equal(t, storage.ErrUserNotFound, err)
	})

	t.Run("群组不存在", func(t *testing.T) {
		_, err := service.Send(SendInput{
			SenderID: "alice",
			GroupID:  strPtr("ghost-group"),
			Subject:  "查无此组",
		})
		assert.Equal(t, storage.ErrGroupNotFound, err)
	})
}

func TestTransferService_Get(t *testing.T) {
	store := memory.NewStore()
	service := NewTransferService(store, NewAccessGate(store), newTestConfig())

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedUser(t, store, "carol")
	seedUser(t, store, "dave")
	seedGroup(t, store, "g1", "alice", "bob", "carol")

	direct, err := service.Send(SendInput{
		SenderID:    "alice",
		RecipientID: strPtr("bob"),
		Subject:     "私信",
	})
	assert.NoError(t, err)

	grouped, err := service.Send(SendInput{
		SenderID: "alice",
		GroupID:  strPtr("g1"),
		Subject:  "群发",
	})
	assert.NoError(t, err)

	t.Run("发件人可以读取", func(t *testing.T) {
		got, err := service.Get("alice", direct.ID)
		assert.NoError(t, err)
		assert.Equal(t, direct.ID, got.ID)
	})

	t.Run("收件人可以读取", func(t *testing.T) {
		got, err := service.Get("bob", direct.ID)
		assert.NoError(t, err)
		assert.Equal(t, "私信", got.Message.Subject)
	})

	t.Run("群组成员可以读取群投递", func(t *testing.T) {
		got, err := service.Get("carol", grouped.ID)
		assert.NoError(t, err)
		assert.Equal(t, grouped.ID, got.ID)
	})

	t.Run("无关用户被拒绝", func(t *testing.T) {
		_, err := service.Get("dave", direct.ID)
		assert.Equal(t, ErrForbidden, err)
	})

	t.Run("投递不存在", func(t *testing.T) {
		_, err := service.Get("alice", "nonexistent")
		assert.Equal(t, storage.ErrDeliveryNotFound, err)
	})
}

func TestTransferService_UpdateReadStatus(t *testing.T) {
	store := memory.NewStore()
	service := NewTransferService(store, NewAccessGate(store), newTestConfig())

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedUser(t, store, "carol")
	seedGroup(t, store, "g1", "alice", "bob", "carol")

	t.Run("收件人标记已读", func(t *testing.T) {
		d, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			Subject:     "待办",
		})
		assert.NoError(t, err)

		updated, err := service.UpdateReadStatus("bob", d.ID, false)
		assert.NoError(t, err)
		assert.False(t, updated.Unread)

		// 幂等：重复设置同样的值不报错
		updated, err = service.UpdateReadStatus("bob", d.ID, false)
		assert.NoError(t, err)
		assert.False(t, updated.Unread)
	})

	t.Run("发件人不能翻转已读标志", func(t *testing.T) {
		d, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			Subject:     "单向",
		})
		assert.NoError(t, err)

		_, err = service.UpdateReadStatus("alice", d.ID, false)
		assert.Equal(t, ErrForbidden, err)
	})

	t.Run("群组投递的已读标志是共享的", func(t *testing.T) {
		d, err := service.Send(SendInput{
			SenderID: "alice",
			GroupID:  strPtr("g1"),
			Subject:  "共享标志",
		})
		assert.NoError(t, err)

		// bob 标记已读，carol 的未读过滤视图也随之变化
		_, err = service.UpdateReadStatus("bob", d.ID, false)
		assert.NoError(t, err)

		unreadOnly, _, err := service.ListInbox("carol", boolPtr(true), 1, 50)
		assert.NoError(t, err)
		for _, item := range unreadOnly {
			assert.NotEqual(t, d.ID, item.ID)
		}

		got, err := service.Get("carol", d.ID)
		assert.NoError(t, err)
		assert.False(t, got.Unread)
	})

	t.Run("无关用户被拒绝", func(t *testing.T) {
		d, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			Subject:     "不相干",
		})
		assert.NoError(t, err)

		seedUser(t, store, "mallory")
		_, err = service.UpdateReadStatus("mallory", d.ID, false)
		assert.Equal(t, ErrForbidden, err)
	})
}

func TestTransferService_ListInbox(t *testing.T) {
	store := memory.NewStore()
	service := NewTransferService(store, NewAccessGate(store), newTestConfig())

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedGroup(t, store, "g1", "alice", "bob")

	direct, err := service.Send(SendInput{
		SenderID:    "alice",
		RecipientID: strPtr("bob"),
		Subject:     "第一封",
	})
	assert.NoError(t, err)

	grouped, err := service.Send(SendInput{
		SenderID: "alice",
		GroupID:  strPtr("g1"),
		Subject:  "第二封",
	})
	assert.NoError(t, err)

	t.Run("直接投递和群组投递都进收件箱", func(t *testing.T) {
		items, total, err := service.ListInbox("bob", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 2, total)

		ids := []string{items[0].ID, items[1].ID}
		assert.Contains(t, ids, direct.ID)
		assert.Contains(t, ids, grouped.ID)
	})

	t.Run("发件人不收到自己发给群组的邮件", func(t *testing.T) {
		items, total, err := service.ListInbox("alice", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, items)
	})

	t.Run("分页参数越界时回退默认值", func(t *testing.T) {
		items, total, err := service.ListInbox("bob", nil, 0, -5)
		assert.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, items, 2)
	})

	t.Run("未读过滤", func(t *testing.T) {
		_, err := service.UpdateReadStatus("bob", direct.ID, false)
		assert.NoError(t, err)

		items, total, err := service.ListInbox("bob", boolPtr(true), 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, grouped.ID, items[0].ID)
	})
}

func TestTransferService_ListSent(t *testing.T) {
	store := memory.NewStore()
	gate := NewAccessGate(store)
	cfg := newTestConfig()
	service := NewTransferService(store, gate, cfg)
	folders := NewFolderService(store, gate, cfg)

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")

	d, err := service.Send(SendInput{
		SenderID:    "alice",
		RecipientID: strPtr("bob"),
		Subject:     "留痕",
	})
	assert.NoError(t, err)

	t.Run("发件人可以看到已发送", func(t *testing.T) {
		items, total, err := service.ListSent("alice", 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, d.ID, items[0].ID)
	})

	t.Run("收件方删除不影响已发送视图", func(t *testing.T) {
		// bob 两次删除：软删 + 彻底删除
		assert.NoError(t, folders.Destroy("bob", d.ID))
		assert.NoError(t, folders.Destroy("bob", d.ID))

		items, total, err := service.ListSent("alice", 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, d.ID, items[0].ID)
	})
}

// recordingNotifier 记录推送调用，用于验证通知受众
type recordingNotifier struct {
	calls [][]string
}

func (n *recordingNotifier) NotifyNewDelivery(userIDs []string, delivery *domain.Delivery) {
	n.calls = append(n.calls, userIDs)
}

func TestTransferService_Notify(t *testing.T) {
	store := memory.NewStore()
	service := NewTransferService(store, NewAccessGate(store), newTestConfig())

	notifier := &recordingNotifier{}
	service.SetNotifier(notifier)

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedUser(t, store, "carol")
	seedGroup(t, store, "g1", "alice", "bob", "carol")

	t.Run("直接投递只通知收件人", func(t *testing.T) {
		notifier.calls = nil

		_, err := service.Send(SendInput{
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			Subject:     "通知",
		})
		assert.NoError(t, err)
		assert.Len(t, notifier.calls, 1)
		assert.Equal(t, []string{"bob"}, notifier.calls[0])
	})

	t.Run("群组投递通知除发件人外的全部成员", func(t *testing.T) {
		notifier.calls = nil

		_, err := service.Send(SendInput{
			SenderID: "alice",
			GroupID:  strPtr("g1"),
			Subject:  "群通知",
		})
		assert.NoError(t, err)
		assert.Len(t, notifier.calls, 1)
		assert.ElementsMatch(t, []string{"bob", "carol"}, notifier.calls[0])
	})
}

func TestTransferService_Ordering(t *testing.T) {
	store := memory.NewStore()
	service := NewTransferService(store, NewAccessGate(store), newTestConfig())

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")

	// 直接写存储以控制 sentAt
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		msg := &domain.Message{ID: fmt.Sprintf("m%d", i), Subject: fmt.Sprintf("第%d封", i), Body: "..."}
		d := &domain.Delivery{
			ID:          fmt.Sprintf("d%d", i),
			MessageID:   msg.ID,
			SenderID:    "alice",
			RecipientID: strPtr("bob"),
			SentAt:      base.Add(time.Duration(i) * time.Minute),
			Unread:      true,
		}
		assert.NoError(t, store.CreateDelivery(msg, d))
	}

	t.Run("收件箱最新优先", func(t *testing.T) {
		items, total, err := service.ListInbox("bob", nil, 1, 2)
		assert.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, items, 2)
		assert.Equal(t, "d2", items[0].ID)
		assert.Equal(t, "d1", items[1].ID)
	})

	t.Run("第二页继续按序返回", func(t *testing.T) {
		items, total, err := service.ListInbox("bob", nil, 2, 2)
		assert.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, items, 1)
		assert.Equal(t, "d0", items[0].ID)
	})
}
