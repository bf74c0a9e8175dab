package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// GroupStore 群组业务所需的存储能力
type GroupStore interface {
	storage.UserRepository
	storage.GroupRepository
}

// GroupService 封装群组与成员关系业务操作。
type GroupService struct {
	store GroupStore
	gate  *AccessGate
}

// NewGroupService 创建群组业务服务。
func NewGroupService(store GroupStore, gate *AccessGate) *GroupService {
	return &GroupService{
		store: store,
		gate:  gate,
	}
}

// CreateGroupInput 定义创建群组所需的输入。
type CreateGroupInput struct {
	Name        string
	Description string
	CreatorID   string
}

// Create 创建群组，创建者自动成为第一个成员。
func (s *GroupService) Create(input CreateGroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrGroupNameRequired
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: input.Description,
		CreatorID:   input.CreatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.SaveGroup(group); err != nil {
		return nil, err
	}

	member := &domain.GroupMember{
		ID:      uuid.NewString(),
		GroupID: group.ID,
		UserID:  input.CreatorID,
		AddedBy: input.CreatorID,
		AddedAt: now,
	}
	if err := s.store.AddGroupMember(member); err != nil {
		return nil, err
	}

	group.MemberIDs = []string{input.CreatorID}
	return group, nil
}

// Get 读取群组详情，仅成员可见。
func (s *GroupService) Get(userID, groupID string) (*domain.Group, error) {
	group, err := s.store.GetGroup(groupID)
	if err != nil {
		return nil, err
	}

	member, err := s.store.IsGroupMember(groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotGroupMember
	}

	return group, nil
}

// List 返回该用户所在的全部群组。
func (s *GroupService) List(userID string) ([]domain.Group, error) {
	return s.store.ListGroupsByUserID(userID)
}

// UpdateGroupInput 定义更新群组所需的输入。
type UpdateGroupInput struct {
	Name        *string
	Description *string
}

// Update 更新群组信息，仅创建者可执行。
func (s *GroupService) Update(userID, groupID string, input UpdateGroupInput) (*domain.Group, error) {
	group, err := s.store.GetGroup(groupID)
	if err != nil {
		return nil, err
	}

	if !s.gate.CanAdminister(group, userID) {
		return nil, ErrForbidden
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrGroupNameRequired
		}
		group.Name = name
	}
	if input.Description != nil {
		group.Description = *input.Description
	}

	if err := s.store.UpdateGroup(group); err != nil {
		return nil, err
	}

	return s.store.GetGroup(groupID)
}

// Delete 解散群组，仅创建者可执行。这是创建者退出群组的唯一途径。
func (s *GroupService) Delete(userID, groupID string) error {
	group, err := s.store.GetGroup(groupID)
	if err != nil {
		return err
	}

	if !s.gate.CanAdminister(group, userID) {
		return ErrForbidden
	}

	return s.store.DeleteGroup(groupID)
}

// Members 返回群组成员关系列表，仅成员可见。
func (s *GroupService) Members(userID, groupID string) ([]domain.GroupMember, error) {
	member, err := s.store.IsGroupMember(groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		if _, err := s.store.GetGroup(groupID); err != nil {
			return nil, err
		}
		return nil, ErrNotGroupMember
	}

	return s.store.ListGroupMembers(groupID)
}

// AddMember 添加成员，任何现有成员都可以拉人。
func (s *GroupService) AddMember(actingUserID, groupID, targetUserID string) error {
	if _, err := s.store.GetGroup(groupID); err != nil {
		return err
	}

	acting, err := s.store.IsGroupMember(groupID, actingUserID)
	if err != nil {
		return err
	}
	if !acting {
		return ErrNotGroupMember
	}

	if _, err := s.store.GetUserByID(targetUserID); err != nil {
		return err
	}

	return s.store.AddGroupMember(&domain.GroupMember{
		ID:      uuid.NewString(),
		GroupID: groupID,
		UserID:  targetUserID,
		AddedBy: actingUserID,
	})
}

// RemoveMember 移除成员。
//
// 省略目标时是操作者自行退出；移除他人仅创建者可执行；
// 创建者本人在两条路径下都不可移除。
func (s *GroupService) RemoveMember(actingUserID, groupID string, targetUserID *string) error {
	group, err := s.store.GetGroup(groupID)
	if err != nil {
		return err
	}

	target := actingUserID
	if targetUserID != nil && *targetUserID != actingUserID {
		target = *targetUserID
		if !s.gate.CanAdminister(group, actingUserID) {
			return ErrForbidden
		}
	}

	if group.IsCreator(target) {
		return ErrCreatorCannotLeave
	}

	return s.store.RemoveGroupMember(groupID, target)
}
