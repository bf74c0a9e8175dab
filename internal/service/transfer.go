package service

import (
	"time"

	"github.com/google/uuid"

	"intramail/backend/internal/config"
	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// TransferStore 投递业务所需的存储能力
type TransferStore interface {
	storage.UserRepository
	storage.DeliveryRepository
	storage.GroupRepository
}

// DeliveryNotifier 投递事件通知接口（由 WebSocket Hub 实现）
type DeliveryNotifier interface {
	NotifyNewDelivery(userIDs []string, delivery *domain.Delivery)
}

// TransferService 封装发送、读取与已读状态相关的业务操作。
type TransferService struct {
	store    TransferStore
	gate     *AccessGate
	cfg      *config.Config
	notifier DeliveryNotifier
}

// NewTransferService 创建投递业务服务。
func NewTransferService(store TransferStore, gate *AccessGate, cfg *config.Config) *TransferService {
	return &TransferService{
		store: store,
		gate:  gate,
		cfg:   cfg,
	}
}

// SetNotifier 设置通知推送实现（可选）
func (s *TransferService) SetNotifier(notifier DeliveryNotifier) {
	s.notifier = notifier
}

// SendInput 定义发送邮件所需的输入。
type SendInput struct {
	SenderID      string
	RecipientID   *string
	GroupID       *string
	Subject       string
	Body          string
	AttachmentRef *string
}

// Send 发送一封邮件：原子地创建内容与投递记录。
//
// 目标必须且只能是单个收件人或单个群组之一；给自己发送被拒绝。
func (s *TransferService) Send(input SendInput) (*domain.Delivery, error) {
	if err := validateContent(input.Subject); err != nil {
		return nil, err
	}
	if err := s.validateTarget(input.SenderID, input.RecipientID, input.GroupID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	message := &domain.Message{
		ID:            uuid.NewString(),
		Subject:       input.Subject,
		Body:          input.Body,
		AttachmentRef: input.AttachmentRef,
		CreatedAt:     now,
	}
	delivery := &domain.Delivery{
		ID:          uuid.NewString(),
		MessageID:   message.ID,
		SenderID:    input.SenderID,
		RecipientID: input.RecipientID,
		GroupID:     input.GroupID,
		SentAt:      now,
		Unread:      true,
	}

	if err := s.store.CreateDelivery(message, delivery); err != nil {
		return nil, err
	}

	delivery.Message = message
	s.notify(delivery)

	return delivery, nil
}

// SendDraftMessage 将一条已存在的内容投递出去（草稿发送路径）。
func (s *TransferService) SendDraftMessage(senderID, messageID string, recipientID, groupID *string) (*domain.Delivery, error) {
	if err := s.validateTarget(senderID, recipientID, groupID); err != nil {
		return nil, err
	}

	delivery := &domain.Delivery{
		ID:          uuid.NewString(),
		MessageID:   messageID,
		SenderID:    senderID,
		RecipientID: recipientID,
		GroupID:     groupID,
		SentAt:      time.Now().UTC(),
		Unread:      true,
	}

	if err := s.store.CreateDeliveryForMessage(delivery); err != nil {
		return nil, err
	}

	full, err := s.store.GetDelivery(delivery.ID)
	if err != nil {
		return delivery, nil
	}
	s.notify(full)

	return full, nil
}

// Get 读取单条投递，发件人、收件人与当前群组成员可见。
func (s *TransferService) Get(userID, deliveryID string) (*domain.Delivery, error) {
	delivery, err := s.store.GetDelivery(deliveryID)
	if err != nil {
		return nil, err
	}

	ok, err := s.gate.CanView(delivery, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	return delivery, nil
}

// UpdateReadStatus 设置投递的未读标志，幂等。
//
// 只有收件侧（直接收件人或当前群组成员）可以翻转；标志是整条投递
// 上的共享状态，群组内任一成员的操作影响所有成员的视图。
func (s *TransferService) UpdateReadStatus(userID, deliveryID string, unread bool) (*domain.Delivery, error) {
	delivery, err := s.store.GetDelivery(deliveryID)
	if err != nil {
		return nil, err
	}

	visible, err := s.gate.IsVisible(delivery, userID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrForbidden
	}

	if delivery.Unread != unread {
		if err := s.store.SetDeliveryUnread(deliveryID, unread); err != nil {
			return nil, err
		}
		delivery.Unread = unread
	}

	return delivery, nil
}

// ListInbox 返回该用户的收件箱（排除法视图），最新优先。
func (s *TransferService) ListInbox(userID string, unread *bool, page, pageSize int) ([]domain.Delivery, int, error) {
	page, pageSize = s.normalizePage(page, pageSize)
	return s.store.ListInbox(userID, unread, page, pageSize)
}

// ListSent 返回该用户发出的投递，最新优先。
//
// 已发送视图不受收件方的任何标签或彻底删除影响。
func (s *TransferService) ListSent(userID string, page, pageSize int) ([]domain.Delivery, int, error) {
	page, pageSize = s.normalizePage(page, pageSize)
	return s.store.ListSent(userID, page, pageSize)
}

// validateTarget 校验收件目标并确认其存在
func (s *TransferService) validateTarget(senderID string, recipientID, groupID *string) error {
	if (recipientID == nil) == (groupID == nil) {
		return ErrAmbiguousTarget
	}

	if recipientID != nil {
		if *recipientID == senderID {
			return ErrSelfSend
		}
		if _, err := s.store.GetUserByID(*recipientID); err != nil {
			return err
		}
		return nil
	}

	_, err := s.store.GetGroup(*groupID)
	return err
}

// validateContent 校验邮件内容
func validateContent(subject string) error {
	if subject == "" {
		return ErrSubjectRequired
	}
	if len(subject) > 200 {
		return ErrSubjectTooLong
	}
	return nil
}

// notify 向收件方推送新投递事件
func (s *TransferService) notify(delivery *domain.Delivery) {
	if s.notifier == nil {
		return
	}
	audience, err := s.gate.Audience(delivery)
	if err != nil || len(audience) == 0 {
		return
	}
	s.notifier.NotifyNewDelivery(audience, delivery)
}

// normalizePage 规范化分页参数
func (s *TransferService) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.Mail.DefaultPageSize
	}
	if pageSize > s.cfg.Mail.MaxPageSize {
		pageSize = s.cfg.Mail.MaxPageSize
	}
	return page, pageSize
}
