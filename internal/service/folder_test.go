package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
	"intramail/backend/internal/storage/memory"
)

// newFolderEnv 构造文件夹测试环境：alice 给 bob 发了一封邮件
func newFolderEnv(t *testing.T) (*memory.Store, *TransferService, *FolderService, *domain.Delivery) {
	t.Helper()

	store := memory.NewStore()
	gate := NewAccessGate(store)
	cfg := newTestConfig()
	transfers := NewTransferService(store, gate, cfg)
	folders := NewFolderService(store, gate, cfg)

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")

	d, err := transfers.Send(SendInput{
		SenderID:    "alice",
		RecipientID: strPtr("bob"),
		Subject:     "归档对象",
	})
	assert.NoError(t, err)

	return store, transfers, folders, d
}

func TestFolderService_File(t *testing.T) {
	t.Run("归入回收站后从收件箱消失", func(t *testing.T) {
		_, transfers, folders, d := newFolderEnv(t)

		assert.NoError(t, folders.File("bob", d.ID, domain.FolderTrash))

		_, total, err := transfers.ListInbox("bob", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 0, total)

		items, total, err := folders.ListFolder("bob", domain.FolderTrash, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, d.ID, items[0].ID)
	})

	t.Run("重复归档是幂等的", func(t *testing.T) {
		_, _, folders, d := newFolderEnv(t)

		assert.NoError(t, folders.File("bob", d.ID, domain.FolderSpam))
		assert.NoError(t, folders.File("bob", d.ID, domain.FolderSpam))

		_, total, err := folders.ListFolder("bob", domain.FolderSpam, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("排除类文件夹互斥", func(t *testing.T) {
		_, _, folders, d := newFolderEnv(t)

		assert.NoError(t, folders.File("bob", d.ID, domain.FolderTrash))
		assert.NoError(t, folders.File("bob", d.ID, domain.FolderSpam))

		_, total, err := folders.ListFolder("bob", domain.FolderTrash, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 0, total)

		_, total, err = folders.ListFolder("bob", domain.FolderSpam, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("收藏不影响收件箱", func(t *testing.T) {
		_, transfers, folders, d := newFolderEnv(t)

		assert.NoError(t, folders.File("bob", d.ID, domain.FolderFavorites))

		items, total, err := transfers.ListInbox("bob", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, d.ID, items[0].ID)

		// 收藏可以与回收站并存
		assert.NoError(t, folders.File("bob", d.ID, domain.FolderTrash))
		_, total, err = folders.ListFolder("bob", domain.FolderFavorites, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("发件人不能归档自己发出的投递", func(t *testing.T) {
		_, _, folders, d := newFolderEnv(t)

		err := folders.File("alice", d.ID, domain.FolderTrash)
		assert.Equal(t, ErrSenderCannotFile, err)
	})

	t.Run("不可见的投递统一报不存在", func(t *testing.T) {
		store, _, folders, d := newFolderEnv(t)

		seedUser(t, store, "mallory")
		err := folders.File("mallory", d.ID, domain.FolderTrash)
		assert.Equal(t, storage.ErrDeliveryNotFound, err)
	})
}

func TestFolderService_Restore(t *testing.T) {
	t.Run("从回收站恢复后回到收件箱", func(t *testing.T) {
		_, transfers, folders, d := newFolderEnv(t)

		assert.NoError(t, folders.File("bob", d.ID, domain.FolderTrash))
		assert.NoError(t, folders.Restore("bob", d.ID, domain.FolderTrash))

		_, total, err := transfers.ListInbox("bob", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("未标记的投递恢复报错", func(t *testing.T) {
		_, _, folders, d := newFolderEnv(t)

		err := folders.Restore("bob", d.ID, domain.FolderTrash)
		assert.Equal(t, storage.ErrFolderTagNotFound, err)
	})
}

func TestFolderService_Destroy(t *testing.T) {
	t.Run("两段式删除", func(t *testing.T) {
		_, transfers, folders, d := newFolderEnv(t)

		// 第一次删除：软删进回收站
		assert.NoError(t, folders.Destroy("bob", d.ID))
		_, total, err := folders.ListFolder("bob", domain.FolderTrash, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)

		// 第二次删除：彻底删除，所有视图消失
		assert.NoError(t, folders.Destroy("bob", d.ID))
		_, total, err = folders.ListFolder("bob", domain.FolderTrash, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 0, total)

		_, total, err = transfers.ListInbox("bob", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 0, total)

		// 第三次删除：对该用户来说投递已不存在
		err = folders.Destroy("bob", d.ID)
		assert.Equal(t, storage.ErrDeliveryNotFound, err)
	})

	t.Run("发件人不能删除自己发出的投递", func(t *testing.T) {
		_, _, folders, d := newFolderEnv(t)

		err := folders.Destroy("alice", d.ID)
		assert.Equal(t, ErrSenderCannotFile, err)
	})

	t.Run("彻底删除后不能再归档", func(t *testing.T) {
		_, _, folders, d := newFolderEnv(t)

		assert.NoError(t, folders.Destroy("bob", d.ID))
		assert.NoError(t, folders.Destroy("bob", d.ID))

		err := folders.File("bob", d.ID, domain.FolderFavorites)
		assert.Equal(t, storage.ErrDeliveryNotFound, err)
	})

	t.Run("群组投递的删除只影响删除者自己", func(t *testing.T) {
		store := memory.NewStore()
		gate := NewAccessGate(store)
		cfg := newTestConfig()
		transfers := NewTransferService(store, gate, cfg)
		folders := NewFolderService(store, gate, cfg)

		seedUser(t, store, "alice")
		seedUser(t, store, "bob")
		seedUser(t, store, "carol")
		seedGroup(t, store, "g1", "alice", "bob", "carol")

		d, err := transfers.Send(SendInput{
			SenderID: "alice",
			GroupID:  strPtr("g1"),
			Subject:  "群发",
		})
		assert.NoError(t, err)

		// bob 彻底删除
		assert.NoError(t, folders.Destroy("bob", d.ID))
		assert.NoError(t, folders.Destroy("bob", d.ID))

		// carol 的收件箱不受影响
		items, total, err := transfers.ListInbox("carol", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, d.ID, items[0].ID)

		// 邮件内容仍然存在
		_, err = store.GetMessage(d.MessageID)
		assert.NoError(t, err)
	})
}
