package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"intramail/backend/internal/storage"
	"intramail/backend/internal/storage/memory"
)

func newDraftEnv(t *testing.T) (*memory.Store, *TransferService, *DraftService) {
	t.Helper()

	store := memory.NewStore()
	gate := NewAccessGate(store)
	cfg := newTestConfig()
	transfers := NewTransferService(store, gate, cfg)
	drafts := NewDraftService(store, transfers, cfg)

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")

	return store, transfers, drafts
}

func TestDraftService_Create(t *testing.T) {
	_, _, drafts := newDraftEnv(t)

	t.Run("保存草稿成功", func(t *testing.T) {
		draft, err := drafts.Create("alice", DraftInput{
			Subject: "未完成的信",
			Body:    "写到一半",
		})

		assert.NoError(t, err)
		assert.NotNil(t, draft)
		assert.NotEmpty(t, draft.ID)
		assert.Equal(t, "alice", draft.DrafterID)
		assert.NotNil(t, draft.Message)
		assert.Equal(t, "未完成的信", draft.Message.Subject)
	})

	t.Run("草稿阶段允许空主题", func(t *testing.T) {
		draft, err := drafts.Create("alice", DraftInput{})
		assert.NoError(t, err)
		assert.NotNil(t, draft)
	})

	t.Run("主题长度超限", func(t *testing.T) {
		long := make([]byte, 201)
		for i := range long {
			long[i] = 'x'
		}

		_, err := drafts.Create("alice", DraftInput{Subject: string(long)})
		assert.Equal(t, ErrSubjectTooLong, err)
	})
}

func TestDraftService_GetUpdate(t *testing.T) {
	_, _, drafts := newDraftEnv(t)

	draft, err := drafts.Create("alice", DraftInput{Subject: "草稿", Body: "v1"})
	assert.NoError(t, err)

	t.Run("主人可以读取", func(t *testing.T) {
		got, err := drafts.Get("alice", draft.ID)
		assert.NoError(t, err)
		assert.Equal(t, draft.ID, got.ID)
	})

	t.Run("其他人一律报不存在", func(t *testing.T) {
		_, err := drafts.Get("bob", draft.ID)
		assert.Equal(t, storage.ErrDraftNotFound, err)
	})

	t.Run("更新草稿内容", func(t *testing.T) {
		updated, err := drafts.Update("alice", draft.ID, DraftInput{
			Subject: "改过的草稿",
			Body:    "v2",
		})
		assert.NoError(t, err)
		assert.Equal(t, "改过的草稿", updated.Message.Subject)
		assert.Equal(t, "v2", updated.Message.Body)
	})

	t.Run("其他人不能更新", func(t *testing.T) {
		_, err := drafts.Update("bob", draft.ID, DraftInput{Subject: "篡改"})
		assert.Equal(t, storage.ErrDraftNotFound, err)
	})
}

func TestDraftService_List(t *testing.T) {
	_, _, drafts := newDraftEnv(t)

	for i := 0; i < 3; i++ {
		_, err := drafts.Create("alice", DraftInput{Subject: "草稿", Body: "..."})
		assert.NoError(t, err)
	}
	_, err := drafts.Create("bob", DraftInput{Subject: "别人的草稿"})
	assert.NoError(t, err)

	t.Run("只看到自己的草稿", func(t *testing.T) {
		items, total, err := drafts.List("alice", 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, items, 3)
		for _, d := range items {
			assert.Equal(t, "alice", d.DrafterID)
		}
	})

	t.Run("分页", func(t *testing.T) {
		items, total, err := drafts.List("alice", 2, 2)
		assert.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, items, 1)
	})
}

func TestDraftService_Delete(t *testing.T) {
	store, _, drafts := newDraftEnv(t)

	draft, err := drafts.Create("alice", DraftInput{Subject: "要删的"})
	assert.NoError(t, err)

	t.Run("其他人不能删除", func(t *testing.T) {
		err := drafts.Delete("bob", draft.ID)
		assert.Equal(t, storage.ErrDraftNotFound, err)
	})

	t.Run("删除后内容成为孤儿并被清理回收", func(t *testing.T) {
		assert.NoError(t, drafts.Delete("alice", draft.ID))

		_, err := drafts.Get("alice", draft.ID)
		assert.Equal(t, storage.ErrDraftNotFound, err)

		// 内容还在，等待后台清理
		_, err = store.GetMessage(draft.MessageID)
		assert.NoError(t, err)

		count, err := store.DeleteOrphanMessages()
		assert.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = store.GetMessage(draft.MessageID)
		assert.Equal(t, storage.ErrMessageNotFound, err)
	})
}

func TestDraftService_Send(t *testing.T) {
	t.Run("发送草稿提升为投递", func(t *testing.T) {
		store, transfers, drafts := newDraftEnv(t)

		draft, err := drafts.Create("alice", DraftInput{Subject: "发出去", Body: "正文"})
		assert.NoError(t, err)

		delivery, err := drafts.Send("alice", draft.ID, strPtr("bob"), nil)
		assert.NoError(t, err)
		assert.NotNil(t, delivery)
		assert.Equal(t, draft.MessageID, delivery.MessageID)
		assert.Equal(t, "alice", delivery.SenderID)
		assert.Equal(t, "bob", *delivery.RecipientID)

		// 草稿行已删除，内容原样复用
		_, err = drafts.Get("alice", draft.ID)
		assert.Equal(t, storage.ErrDraftNotFound, err)
		_, err = store.GetMessage(draft.MessageID)
		assert.NoError(t, err)

		// 收件人能在收件箱里看到
		items, total, err := transfers.ListInbox("bob", nil, 1, 50)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, delivery.ID, items[0].ID)
	})

	t.Run("空主题的草稿不能发送", func(t *testing.T) {
		_, _, drafts := newDraftEnv(t)

		draft, err := drafts.Create("alice", DraftInput{Body: "没有主题"})
		assert.NoError(t, err)

		_, err = drafts.Send("alice", draft.ID, strPtr("bob"), nil)
		assert.Equal(t, ErrSubjectRequired, err)

		// 发送失败时草稿保留
		_, err = drafts.Get("alice", draft.ID)
		assert.NoError(t, err)
	})

	t.Run("发送时目标校验照常生效", func(t *testing.T) {
		_, _, drafts := newDraftEnv(t)

		draft, err := drafts.Create("alice", DraftInput{Subject: "有主题"})
		assert.NoError(t, err)

		_, err = drafts.Send("alice", draft.ID, nil, nil)
		assert.Equal(t, ErrAmbiguousTarget, err)

		_, err = drafts.Send("alice", draft.ID, strPtr("alice"), nil)
		assert.Equal(t, ErrSelfSend, err)

		// 草稿仍然在
		_, err = drafts.Get("alice", draft.ID)
		assert.NoError(t, err)
	})
}
