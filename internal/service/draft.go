package service

import (
	"time"

	"github.com/google/uuid"

	"intramail/backend/internal/config"
	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// DraftStore 草稿业务所需的存储能力
type DraftStore interface {
	storage.DraftRepository
	storage.MessageRepository
}

// DraftService 封装草稿业务操作。
//
// 草稿是还没有投递记录的内容：发送时提升为投递并删除草稿行。
type DraftService struct {
	store    DraftStore
	transfer *TransferService
	cfg      *config.Config
}

// NewDraftService 创建草稿业务服务。
func NewDraftService(store DraftStore, transfer *TransferService, cfg *config.Config) *DraftService {
	return &DraftService{
		store:    store,
		transfer: transfer,
		cfg:      cfg,
	}
}

// DraftInput 定义草稿内容输入。
type DraftInput struct {
	Subject       string
	Body          string
	AttachmentRef *string
}

// Create 保存新草稿。草稿阶段不要求主题非空，发送时才校验。
func (s *DraftService) Create(userID string, input DraftInput) (*domain.Draft, error) {
	if len(input.Subject) > 200 {
		return nil, ErrSubjectTooLong
	}

	now := time.Now().UTC()
	message := &domain.Message{
		ID:            uuid.NewString(),
		Subject:       input.Subject,
		Body:          input.Body,
		AttachmentRef: input.AttachmentRef,
		CreatedAt:     now,
	}
	draft := &domain.Draft{
		ID:        uuid.NewString(),
		DrafterID: userID,
		MessageID: message.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SaveDraft(draft, message); err != nil {
		return nil, err
	}

	draft.Message = message
	return draft, nil
}

// Get 读取草稿，仅草稿主人可见，其他人一律报不存在。
func (s *DraftService) Get(userID, draftID string) (*domain.Draft, error) {
	draft, err := s.store.GetDraft(draftID)
	if err != nil {
		return nil, err
	}
	if draft.DrafterID != userID {
		return nil, storage.ErrDraftNotFound
	}
	return draft, nil
}

// Update 更新草稿内容。
func (s *DraftService) Update(userID, draftID string, input DraftInput) (*domain.Draft, error) {
	draft, err := s.Get(userID, draftID)
	if err != nil {
		return nil, err
	}
	if len(input.Subject) > 200 {
		return nil, ErrSubjectTooLong
	}

	message := &domain.Message{
		ID:            draft.MessageID,
		Subject:       input.Subject,
		Body:          input.Body,
		AttachmentRef: input.AttachmentRef,
		CreatedAt:     draft.Message.CreatedAt,
	}
	if err := s.store.UpdateMessage(message); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDraft(draft); err != nil {
		return nil, err
	}

	return s.store.GetDraft(draftID)
}

// List 返回该用户的草稿，最近更新优先。
func (s *DraftService) List(userID string, page, pageSize int) ([]domain.Draft, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.Mail.DefaultPageSize
	}
	if pageSize > s.cfg.Mail.MaxPageSize {
		pageSize = s.cfg.Mail.MaxPageSize
	}
	return s.store.ListDraftsByUser(userID, page, pageSize)
}

// Delete 删除草稿。留下的孤儿内容由后台清理回收。
func (s *DraftService) Delete(userID, draftID string) error {
	if _, err := s.Get(userID, draftID); err != nil {
		return err
	}
	return s.store.DeleteDraft(draftID)
}

// Send 把草稿提升为一条真实投递并删除草稿行，内容记录原样复用。
func (s *DraftService) Send(userID, draftID string, recipientID, groupID *string) (*domain.Delivery, error) {
	draft, err := s.Get(userID, draftID)
	if err != nil {
		return nil, err
	}

	if err := validateContent(draft.Message.Subject); err != nil {
		return nil, err
	}

	delivery, err := s.transfer.SendDraftMessage(userID, draft.MessageID, recipientID, groupID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteDraft(draftID); err != nil {
		return nil, err
	}

	return delivery, nil
}
