package sql

import (
	"time"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// ========== Group Repository ==========

const groupColumns = `id, name, description, creator_id, created_at, updated_at`

// SaveGroup 创建群组
func (s *Store) SaveGroup(group *domain.Group) error {
	// 名称唯一性在插入前检查，保证返回确定的哨兵错误
	var count int
	if err := s.queryRow(`SELECT COUNT(*) FROM mail_groups WHERE name = ?`, group.Name).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrGroupNameTaken
	}

	query := `
		INSERT INTO mail_groups (id, name, description, creator_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.exec(query,
		group.ID,
		group.Name,
		group.Description,
		group.CreatorID,
		group.CreatedAt,
		group.UpdatedAt,
	)
	return err
}

// GetGroup 根据 ID 获取群组（附带成员 ID 列表）
func (s *Store) GetGroup(id string) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM mail_groups WHERE id = ?`

	var g domain.Group
	err := s.queryRow(query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.CreatorID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrGroupNotFound
		}
		return nil, err
	}

	if err := s.fillMemberIDs(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroupByName 根据名称获取群组
func (s *Store) GetGroupByName(name string) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM mail_groups WHERE name = ?`

	var g domain.Group
	err := s.queryRow(query, name).Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.CreatorID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrGroupNotFound
		}
		return nil, err
	}

	if err := s.fillMemberIDs(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// fillMemberIDs 填充群组成员 ID 列表
func (s *Store) fillMemberIDs(g *domain.Group) error {
	rows, err := s.query(`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id`, g.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	g.MemberIDs = ids
	return rows.Err()
}

// UpdateGroup 更新群组信息
func (s *Store) UpdateGroup(group *domain.Group) error {
	// 改名时检查新名称是否被其他群组占用
	var count int
	if err := s.queryRow(`SELECT COUNT(*) FROM mail_groups WHERE name = ? AND id <> ?`, group.Name, group.ID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrGroupNameTaken
	}

	query := `UPDATE mail_groups SET name = ?, description = ?, updated_at = ? WHERE id = ?`
	result, err := s.exec(query, group.Name, group.Description, time.Now().UTC(), group.ID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrGroupNotFound
	}
	return nil
}

// DeleteGroup 删除群组及其全部成员关系
func (s *Store) DeleteGroup(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(`DELETE FROM group_members WHERE group_id = ?`), id); err != nil {
		return err
	}

	result, err := tx.Exec(s.rebind(`DELETE FROM mail_groups WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrGroupNotFound
	}

	return tx.Commit()
}

// ListGroupsByUserID 返回该用户所在的全部群组
func (s *Store) ListGroupsByUserID(userID string) ([]domain.Group, error) {
	query := `
		SELECT g.id, g.name, g.description, g.creator_id, g.created_at, g.updated_at
		FROM mail_groups g
		INNER JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.created_at DESC, g.id DESC
	`
	rows, err := s.query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]domain.Group, 0)
	for rows.Next() {
		var g domain.Group
		err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatorID, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		if err := s.fillMemberIDs(&groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// AddGroupMember 添加群组成员
func (s *Store) AddGroupMember(member *domain.GroupMember) error {
	exists, err := s.IsGroupMember(member.GroupID, member.UserID)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrAlreadyMember
	}

	if member.AddedAt.IsZero() {
		member.AddedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO group_members (id, group_id, user_id, added_by, added_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.exec(query, member.ID, member.GroupID, member.UserID, member.AddedBy, member.AddedAt)
	return err
}

// RemoveGroupMember 移除群组成员
func (s *Store) RemoveGroupMember(groupID, userID string) error {
	result, err := s.exec(`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrMemberNotFound
	}
	return nil
}

// IsGroupMember 判断用户是否为群组成员
func (s *Store) IsGroupMember(groupID, userID string) (bool, error) {
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?`
	var count int
	if err := s.queryRow(query, groupID, userID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListGroupMembers 返回群组全部成员关系
func (s *Store) ListGroupMembers(groupID string) ([]domain.GroupMember, error) {
	query := `
		SELECT id, group_id, user_id, added_by, added_at
		FROM group_members
		WHERE group_id = ?
		ORDER BY added_at ASC, user_id ASC
	`
	rows, err := s.query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.GroupMember, 0)
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.AddedBy, &m.AddedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ========== Draft Repository ==========

// SaveDraft 原子地创建内容与草稿记录
func (s *Store) SaveDraft(draft *domain.Draft, message *domain.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(s.rebind(`
		INSERT INTO messages (id, subject, body, attachment_ref, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), message.ID, message.Subject, message.Body, message.AttachmentRef, message.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(s.rebind(`
		INSERT INTO drafts (id, drafter_id, message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), draft.ID, draft.DrafterID, draft.MessageID, draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetDraft 获取草稿（附带内容）
func (s *Store) GetDraft(id string) (*domain.Draft, error) {
	query := `
		SELECT dr.id, dr.drafter_id, dr.message_id, dr.created_at, dr.updated_at,
		       m.id, m.subject, m.body, m.attachment_ref, m.created_at
		FROM drafts dr
		INNER JOIN messages m ON m.id = dr.message_id
		WHERE dr.id = ?
	`
	dr, err := scanDraft(s.queryRow(query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrDraftNotFound
		}
		return nil, err
	}
	return dr, nil
}

// scanDraft 从单行结果扫描草稿及其内容
func scanDraft(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Draft, error) {
	var dr domain.Draft
	var msg domain.Message
	var attachmentRef *string

	err := row.Scan(
		&dr.ID,
		&dr.DrafterID,
		&dr.MessageID,
		&dr.CreatedAt,
		&dr.UpdatedAt,
		&msg.ID,
		&msg.Subject,
		&msg.Body,
		&attachmentRef,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.AttachmentRef = attachmentRef
	dr.Message = &msg
	return &dr, nil
}

// UpdateDraft 更新草稿时间戳
func (s *Store) UpdateDraft(draft *domain.Draft) error {
	result, err := s.exec(`UPDATE drafts SET updated_at = ? WHERE id = ?`, time.Now().UTC(), draft.ID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrDraftNotFound
	}
	return nil
}

// ListDraftsByUser 返回该用户的草稿
func (s *Store) ListDraftsByUser(userID string, page, pageSize int) ([]domain.Draft, int, error) {
	var total int
	if err := s.queryRow(`SELECT COUNT(*) FROM drafts WHERE drafter_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT dr.id, dr.drafter_id, dr.message_id, dr.created_at, dr.updated_at,
		       m.id, m.subject, m.body, m.attachment_ref, m.created_at
		FROM drafts dr
		INNER JOIN messages m ON m.id = dr.message_id
		WHERE dr.drafter_id = ?
		ORDER BY dr.updated_at DESC, dr.id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.query(query, userID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	drafts := make([]domain.Draft, 0, pageSize)
	for rows.Next() {
		dr, err := scanDraft(rows)
		if err != nil {
			return nil, 0, err
		}
		drafts = append(drafts, *dr)
	}

	return drafts, total, rows.Err()
}

// DeleteDraft 删除草稿记录（内容由孤儿清理回收）
func (s *Store) DeleteDraft(id string) error {
	result, err := s.exec(`DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrDraftNotFound
	}
	return nil
}
