package service

import (
	"github.com/google/uuid"

	"intramail/backend/internal/config"
	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// FolderStore 文件夹业务所需的存储能力
type FolderStore interface {
	storage.DeliveryRepository
	storage.FolderRepository
}

// FolderService 封装文件夹归档、恢复与删除状态机。
type FolderService struct {
	store FolderStore
	gate  *AccessGate
	cfg   *config.Config
}

// NewFolderService 创建文件夹业务服务。
func NewFolderService(store FolderStore, gate *AccessGate, cfg *config.Config) *FolderService {
	return &FolderService{
		store: store,
		gate:  gate,
		cfg:   cfg,
	}
}

// File 将投递归入指定文件夹，幂等。
//
// trash/spam/junk 三类互斥，归入其一会清掉该用户在这条投递上的
// 另外两类标签；favorites 独立，与收件箱排除无关。
// 对不可见的投递统一报"不存在"，不暴露投递是否真实存在。
func (s *FolderService) File(userID, deliveryID string, kind domain.FolderKind) error {
	delivery, err := s.visibleDelivery(userID, deliveryID)
	if err != nil {
		return err
	}

	if delivery.SenderID == userID {
		return ErrSenderCannotFile
	}

	if kind.IsExclusion() {
		for _, other := range domain.ExclusionKinds() {
			if other == kind {
				continue
			}
			if err := s.store.RemoveFolderTag(deliveryID, userID, other); err != nil && err != storage.ErrFolderTagNotFound {
				return err
			}
		}
	}

	return s.store.UpsertFolderTag(&domain.FolderTag{
		ID:           uuid.NewString(),
		DeliveryID:   deliveryID,
		ActingUserID: userID,
		Kind:         kind,
	})
}

// Restore 撤掉文件夹标签，让投递回到收件箱（favorites 则只是取消收藏）。
func (s *FolderService) Restore(userID, deliveryID string, kind domain.FolderKind) error {
	if _, err := s.visibleDelivery(userID, deliveryID); err != nil {
		return err
	}
	return s.store.RemoveFolderTag(deliveryID, userID, kind)
}

// Destroy 删除状态机。
//
// 发件人一律拒绝；第一次删除把投递软删到回收站；已在回收站的
// 第二次删除写入该用户的彻底删除标记，此后这条投递从该用户的
// 所有视图消失。内容本体不动，其他收件人不受影响。
func (s *FolderService) Destroy(userID, deliveryID string) error {
	delivery, err := s.store.GetDelivery(deliveryID)
	if err != nil {
		return err
	}

	if delivery.SenderID == userID {
		return ErrSenderCannotFile
	}

	visible, err := s.gate.IsVisible(delivery, userID)
	if err != nil {
		return err
	}
	if !visible {
		return storage.ErrDeliveryNotFound
	}

	purged, err := s.store.HasPermanentDeletion(deliveryID, userID)
	if err != nil {
		return err
	}
	if purged {
		// 已彻底删除的投递对该用户等同不存在
		return storage.ErrDeliveryNotFound
	}

	inTrash, err := s.store.HasFolderTag(deliveryID, userID, domain.FolderTrash)
	if err != nil {
		return err
	}
	if !inTrash {
		return s.File(userID, deliveryID, domain.FolderTrash)
	}

	return s.store.CreatePermanentDeletion(&domain.PermanentDeletion{
		ID:         uuid.NewString(),
		DeliveryID: deliveryID,
		DeleterID:  userID,
	})
}

// ListFolder 返回该用户指定文件夹的投递，最新优先。
func (s *FolderService) ListFolder(userID string, kind domain.FolderKind, page, pageSize int) ([]domain.Delivery, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.Mail.DefaultPageSize
	}
	if pageSize > s.cfg.Mail.MaxPageSize {
		pageSize = s.cfg.Mail.MaxPageSize
	}
	return s.store.ListFolder(userID, kind, page, pageSize)
}

// visibleDelivery 取出投递并做收件侧可见性与彻底删除检查
func (s *FolderService) visibleDelivery(userID, deliveryID string) (*domain.Delivery, error) {
	delivery, err := s.store.GetDelivery(deliveryID)
	if err != nil {
		return nil, err
	}

	// 发件人要单独报 403，先放行到调用方判断
	if delivery.SenderID != userID {
		visible, err := s.gate.IsVisible(delivery, userID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, storage.ErrDeliveryNotFound
		}
	}

	purged, err := s.store.HasPermanentDeletion(deliveryID, userID)
	if err != nil {
		return nil, err
	}
	if purged {
		return nil, storage.ErrDeliveryNotFound
	}

	return delivery, nil
}
