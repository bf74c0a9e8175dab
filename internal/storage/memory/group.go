package memory

import (
	"sort"
	"time"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// ========== Group Repository ==========

// SaveGroup 创建群组
func (s *Store) SaveGroup(group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byGroupName[group.Name]; exists {
		return storage.ErrGroupNameTaken
	}

	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	if group.UpdatedAt.IsZero() {
		group.UpdatedAt = now
	}

	s.groups[group.ID] = group
	s.byGroupName[group.Name] = group.ID
	return nil
}

// GetGroup 根据 ID 获取群组（附带成员 ID 列表）
func (s *Store) GetGroup(id string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, storage.ErrGroupNotFound
	}
	return s.withMembersLocked(g), nil
}

// GetGroupByName 根据名称获取群组
func (s *Store) GetGroupByName(name string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byGroupName[name]
	if !ok {
		return nil, storage.ErrGroupNotFound
	}
	return s.withMembersLocked(s.groups[id]), nil
}

// UpdateGroup 更新群组信息
func (s *Store) UpdateGroup(group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.groups[group.ID]
	if !ok {
		return storage.ErrGroupNotFound
	}

	if old.Name != group.Name {
		if _, exists := s.byGroupName[group.Name]; exists {
			return storage.ErrGroupNameTaken
		}
		delete(s.byGroupName, old.Name)
	}

	group.UpdatedAt = time.Now().UTC()
	s.groups[group.ID] = group
	s.byGroupName[group.Name] = group.ID
	return nil
}

// DeleteGroup 删除群组及其全部成员关系
func (s *Store) DeleteGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return storage.ErrGroupNotFound
	}

	delete(s.byGroupName, g.Name)
	delete(s.groups, id)
	delete(s.members, id)
	return nil
}

// ListGroupsByUserID 返回该用户所在的全部群组
func (s *Store) ListGroupsByUserID(userID string) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Group, 0)
	for id, g := range s.groups {
		if s.isMemberLocked(id, userID) {
			result = append(result, *s.withMembersLocked(g))
		}
	}

	// 按创建时间降序，稳定输出
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// AddGroupMember 添加群组成员
func (s *Store) AddGroupMember(member *domain.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[member.GroupID]; !ok {
		return storage.ErrGroupNotFound
	}

	byUser, ok := s.members[member.GroupID]
	if !ok {
		byUser = make(map[string]*domain.GroupMember)
		s.members[member.GroupID] = byUser
	}

	if _, exists := byUser[member.UserID]; exists {
		return storage.ErrAlreadyMember
	}

	if member.AddedAt.IsZero() {
		member.AddedAt = time.Now().UTC()
	}
	byUser[member.UserID] = member
	return nil
}

// RemoveGroupMember 移除群组成员
func (s *Store) RemoveGroupMember(groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.members[groupID]
	if !ok {
		return storage.ErrMemberNotFound
	}
	if _, exists := byUser[userID]; !exists {
		return storage.ErrMemberNotFound
	}

	delete(byUser, userID)
	return nil
}

// IsGroupMember 判断用户是否为群组成员
func (s *Store) IsGroupMember(groupID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.isMemberLocked(groupID, userID), nil
}

// ListGroupMembers 返回群组全部成员关系
func (s *Store) ListGroupMembers(groupID string) ([]domain.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.groups[groupID]; !ok {
		return nil, storage.ErrGroupNotFound
	}

	result := make([]domain.GroupMember, 0)
	for _, m := range s.members[groupID] {
		result = append(result, *m)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].AddedAt.Equal(result[j].AddedAt) {
			return result[i].AddedAt.Before(result[j].AddedAt)
		}
		return result[i].UserID < result[j].UserID
	})

	return result, nil
}

// isMemberLocked 成员关系判断（调用方需持锁）
func (s *Store) isMemberLocked(groupID, userID string) bool {
	byUser, ok := s.members[groupID]
	if !ok {
		return false
	}
	_, exists := byUser[userID]
	return exists
}

// withMembersLocked 返回附带成员 ID 列表的群组副本
func (s *Store) withMembersLocked(g *domain.Group) *domain.Group {
	out := *g
	ids := make([]string, 0, len(s.members[g.ID]))
	for userID := range s.members[g.ID] {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	out.MemberIDs = ids
	return &out
}

// ========== Draft Repository ==========

// SaveDraft 原子地创建内容与草稿记录
func (s *Store) SaveDraft(draft *domain.Draft, message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}

	s.messages[message.ID] = message
	s.drafts[draft.ID] = draft
	return nil
}

// GetDraft 获取草稿（附带内容）
func (s *Store) GetDraft(id string) (*domain.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dr, ok := s.drafts[id]
	if !ok {
		return nil, storage.ErrDraftNotFound
	}
	return s.draftWithMessageLocked(dr), nil
}

// UpdateDraft 更新草稿
func (s *Store) UpdateDraft(draft *domain.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[draft.ID]; !ok {
		return storage.ErrDraftNotFound
	}
	draft.UpdatedAt = time.Now().UTC()
	s.drafts[draft.ID] = draft
	return nil
}

// ListDraftsByUser 返回该用户的草稿
func (s *Store) ListDraftsByUser(userID string, page, pageSize int) ([]domain.Draft, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*domain.Draft, 0)
	for _, dr := range s.drafts {
		if dr.DrafterID == userID {
			candidates = append(candidates, dr)
		}
	}

	// 按更新时间降序
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].UpdatedAt.Equal(candidates[j].UpdatedAt) {
			return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
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

	result := make([]domain.Draft, 0, end-start)
	for _, dr := range candidates[start:end] {
		result = append(result, *s.draftWithMessageLocked(dr))
	}
	return result, total, nil
}

// DeleteDraft 删除草稿记录（内容由孤儿清理回收）
func (s *Store) DeleteDraft(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return storage.ErrDraftNotFound
	}
	delete(s.drafts, id)
	return nil
}

// draftWithMessageLocked 返回附带内容副本的草稿副本
func (s *Store) draftWithMessageLocked(dr *domain.Draft) *domain.Draft {
	out := *dr
	if msg, ok := s.messages[dr.MessageID]; ok {
		msgCopy := *msg
		out.Message = &msgCopy
	}
	return &out
}
