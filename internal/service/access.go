package service

import (
	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// AccessGate 集中回答"这个用户和这条投递/这个群组是什么关系"。
//
// 所有写操作在执行前都要经过这里，授权失败返回明确的错误，
// 而不是悄悄返回空结果。
type AccessGate struct {
	groups storage.GroupRepository
}

// NewAccessGate 创建访问控制网关
func NewAccessGate(groups storage.GroupRepository) *AccessGate {
	return &AccessGate{groups: groups}
}

// IsVisible 判断投递是否对该用户的收件侧视图可见
//
// 可见条件：直接收件人，或该投递群组的当前成员。
// 成员资格按当前时点判断，退组后历史投递随之不可见。
func (g *AccessGate) IsVisible(d *domain.Delivery, userID string) (bool, error) {
	if d.AddressedTo(userID) {
		return true, nil
	}
	if d.IsGroupDelivery() {
		return g.groups.IsGroupMember(*d.GroupID, userID)
	}
	return false, nil
}

// CanView 判断用户能否读取该投递（发件人或收件侧可见）
func (g *AccessGate) CanView(d *domain.Delivery, userID string) (bool, error) {
	if d.SenderID == userID {
		return true, nil
	}
	return g.IsVisible(d, userID)
}

// CanAdminister 判断用户能否管理群组（仅创建者）
func (g *AccessGate) CanAdminister(group *domain.Group, userID string) bool {
	return group.IsCreator(userID)
}

// Audience 返回投递的收件方用户集合，用于通知推送
//
// 群组投递的受众是当前成员去掉发件人本人。
func (g *AccessGate) Audience(d *domain.Delivery) ([]string, error) {
	if d.RecipientID != nil {
		return []string{*d.RecipientID}, nil
	}
	if d.GroupID == nil {
		return nil, nil
	}

	members, err := g.groups.ListGroupMembers(*d.GroupID)
	if err != nil {
		return nil, err
	}

	audience := make([]string, 0, len(members))
	for _, m := range members {
		if m.UserID == d.SenderID {
			continue
		}
		audience = append(audience, m.UserID)
	}
	return audience, nil
}
