package memory

import (
	"sort"
	"time"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// tagKey 生成文件夹标签的唯一键
func tagKey(deliveryID, actingUserID string, kind domain.FolderKind) string {
	return deliveryID + ":" + actingUserID + ":" + string(kind)
}

// purgeKey 生成彻底删除标记的唯一键
func purgeKey(deliveryID, deleterID string) string {
	return deliveryID + ":" + deleterID
}

// ========== Message Repository ==========

// SaveMessage 保存邮件内容
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	s.messages[message.ID] = message
	return nil
}

// GetMessage 获取邮件内容
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	return msg, nil
}

// UpdateMessage 更新邮件内容（仅草稿内容可变）
func (s *Store) UpdateMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[message.ID]; !ok {
		return storage.ErrMessageNotFound
	}
	s.messages[message.ID] = message
	return nil
}

// DeleteMessage 删除邮件内容
func (s *Store) DeleteMessage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return storage.ErrMessageNotFound
	}
	delete(s.messages, id)
	return nil
}

// DeleteOrphanMessages 删除没有任何投递和草稿引用的内容，返回删除数量
func (s *Store) DeleteOrphanMessages() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := make(map[string]bool)
	for _, d := range s.deliveries {
		referenced[d.MessageID] = true
	}
	for _, dr := range s.drafts {
		referenced[dr.MessageID] = true
	}

	count := 0
	for id := range s.messages {
		if !referenced[id] {
			delete(s.messages, id)
			count++
		}
	}
	return count, nil
}

// ========== Delivery Repository ==========

// CreateDelivery 原子地创建内容与投递记录
func (s *Store) CreateDelivery(message *domain.Message, delivery *domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	if delivery.SentAt.IsZero() {
		delivery.SentAt = now
	}

	s.messages[message.ID] = message
	s.deliveries[delivery.ID] = delivery
	return nil
}

// CreateDeliveryForMessage 为已存在的内容创建投递记录
func (s *Store) CreateDeliveryForMessage(delivery *domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[delivery.MessageID]; !ok {
		return storage.ErrMessageNotFound
	}
	if delivery.SentAt.IsZero() {
		delivery.SentAt = time.Now().UTC()
	}
	s.deliveries[delivery.ID] = delivery
	return nil
}

// GetDelivery 获取投递记录（附带内容）
func (s *Store) GetDelivery(id string) (*domain.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deliveries[id]
	if !ok {
		return nil, storage.ErrDeliveryNotFound
	}
	return s.withMessageLocked(d), nil
}

// SetDeliveryUnread 设置投递记录的未读标志
func (s *Store) SetDeliveryUnread(id string, unread bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[id]
	if !ok {
		return storage.ErrDeliveryNotFound
	}
	d.Unread = unread
	return nil
}

// ListInbox 按排除法计算收件箱
//
// 候选集：寄给该用户本人，或寄给其所在群组且非本人发出的投递；
// 再去掉被该用户标记为 trash/spam/junk 或已彻底删除的。
func (s *Store) ListInbox(userID string, unread *bool, page, pageSize int) ([]domain.Delivery, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*domain.Delivery, 0)
	for _, d := range s.deliveries {
		if !s.inboxVisibleLocked(d, userID) {
			continue
		}
		if unread != nil && d.Unread != *unread {
			continue
		}
		candidates = append(candidates, d)
	}

	return s.pageDeliveriesLocked(candidates, page, pageSize)
}

// ListSent 返回该用户发出的投递
func (s *Store) ListSent(userID string, page, pageSize int) ([]domain.Delivery, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*domain.Delivery, 0)
	for _, d := range s.deliveries {
		if d.SenderID == userID {
			candidates = append(candidates, d)
		}
	}

	return s.pageDeliveriesLocked(candidates, page, pageSize)
}

// inboxVisibleLocked 判断投递是否出现在该用户的收件箱
func (s *Store) inboxVisibleLocked(d *domain.Delivery, userID string) bool {
	// 寻址判断：直接收件人，或群组成员（发件人不收到自己发给群组的邮件）
	switch {
	case d.AddressedTo(userID):
	case d.IsGroupDelivery() && d.SenderID != userID && s.isMemberLocked(*d.GroupID, userID):
	default:
		return false
	}

	// 排除：该用户的 trash/spam/junk 标签
	for _, kind := range domain.ExclusionKinds() {
		if _, ok := s.folderTags[tagKey(d.ID, userID, kind)]; ok {
			return false
		}
	}

	// 排除：该用户的彻底删除标记
	if _, ok := s.purges[purgeKey(d.ID, userID)]; ok {
		return false
	}

	return true
}

// pageDeliveriesLocked 排序、分页并附带内容
func (s *Store) pageDeliveriesLocked(candidates []*domain.Delivery, page, pageSize int) ([]domain.Delivery, int, error) {
	// 稳定排序：sentAt 降序，相同则 id 降序
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].SentAt.Equal(candidates[j].SentAt) {
			return candidates[i].SentAt.After(candidates[j].SentAt)
		}
		return candidates[i].ID > candidates[j].ID
	})

	total := len(candidates)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	result := make([]domain.Delivery, 0, end-start)
	for _, d := range candidates[start:end] {
		result = append(result, *s.withMessageLocked(d))
	}
	return result, total, nil
}

// withMessageLocked 返回附带内容副本的投递副本
func (s *Store) withMessageLocked(d *domain.Delivery) *domain.Delivery {
	out := *d
	if msg, ok := s.messages[d.MessageID]; ok {
		msgCopy := *msg
		out.Message = &msgCopy
	}
	return &out
}

// ========== Folder Repository ==========

// UpsertFolderTag 幂等写入文件夹标签
func (s *Store) UpsertFolderTag(tag *domain.FolderTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tagKey(tag.DeliveryID, tag.ActingUserID, tag.Kind)
	if _, exists := s.folderTags[key]; exists {
		return nil
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}
	s.folderTags[key] = tag
	return nil
}

// RemoveFolderTag 删除文件夹标签
func (s *Store) RemoveFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tagKey(deliveryID, actingUserID, kind)
	if _, ok := s.folderTags[key]; !ok {
		return storage.ErrFolderTagNotFound
	}
	delete(s.folderTags, key)
	return nil
}

// HasFolderTag 判断标签是否存在
func (s *Store) HasFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.folderTags[tagKey(deliveryID, actingUserID, kind)]
	return ok, nil
}

// ListFolder 返回该用户标记为指定种类的投递
//
// 已彻底删除的投递从所有视图消失，包括回收站本身。
func (s *Store) ListFolder(actingUserID string, kind domain.FolderKind, page, pageSize int) ([]domain.Delivery, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*domain.Delivery, 0)
	for _, tag := range s.folderTags {
		if tag.ActingUserID != actingUserID || tag.Kind != kind {
			continue
		}
		d, ok := s.deliveries[tag.DeliveryID]
		if !ok {
			continue
		}
		if _, purged := s.purges[purgeKey(d.ID, actingUserID)]; purged {
			continue
		}
		candidates = append(candidates, d)
	}

	return s.pageDeliveriesLocked(candidates, page, pageSize)
}

// CreatePermanentDeletion 幂等写入彻底删除标记
func (s *Store) CreatePermanentDeletion(marker *domain.PermanentDeletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := purgeKey(marker.DeliveryID, marker.DeleterID)
	if _, exists := s.purges[key]; exists {
		return nil
	}
	if marker.CreatedAt.IsZero() {
		marker.CreatedAt = time.Now().UTC()
	}
	s.purges[key] = marker
	return nil
}

// HasPermanentDeletion 判断彻底删除标记是否存在
func (s *Store) HasPermanentDeletion(deliveryID, deleterID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.purges[purgeKey(deliveryID, deleterID)]
	return ok, nil
}
