package sql

import (
	"database/sql"
	"time"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// ========== Message Repository ==========

// SaveMessage 保存邮件内容
func (s *Store) SaveMessage(message *domain.Message) error {
	query := `
		INSERT INTO messages (id, subject, body, attachment_ref, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.exec(query,
		message.ID,
		message.Subject,
		message.Body,
		message.AttachmentRef,
		message.CreatedAt,
	)
	return err
}

// GetMessage 获取邮件内容
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	query := `SELECT id, subject, body, attachment_ref, created_at FROM messages WHERE id = ?`

	var msg domain.Message
	var attachmentRef sql.NullString

	err := s.queryRow(query, id).Scan(
		&msg.ID,
		&msg.Subject,
		&msg.Body,
		&attachmentRef,
		&msg.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}

	if attachmentRef.Valid {
		msg.AttachmentRef = &attachmentRef.String
	}

	return &msg, nil
}

// UpdateMessage 更新邮件内容（仅草稿内容可变）
func (s *Store) UpdateMessage(message *domain.Message) error {
	query := `UPDATE messages SET subject = ?, body = ?, attachment_ref = ? WHERE id = ?`
	result, err := s.exec(query, message.Subject, message.Body, message.AttachmentRef, message.ID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

// DeleteMessage 删除邮件内容
func (s *Store) DeleteMessage(id string) error {
	result, err := s.exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

// DeleteOrphanMessages 删除没有任何投递和草稿引用的内容，返回删除数量
func (s *Store) DeleteOrphanMessages() (int, error) {
	query := `
		DELETE FROM messages
		WHERE id NOT IN (SELECT message_id FROM deliveries)
		  AND id NOT IN (SELECT message_id FROM drafts)
	`
	result, err := s.exec(query)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// ========== Delivery Repository ==========

// deliveryColumns 投递与内容的联合查询列
const deliveryColumns = `d.id, d.message_id, d.sender_id, d.recipient_id, d.group_id, d.sent_at, d.unread,
       m.id, m.subject, m.body, m.attachment_ref, m.created_at`

const deliveryJoin = `FROM deliveries d INNER JOIN messages m ON m.id = d.message_id`

// scanDelivery 从多行结果扫描一条投递及其内容
func scanDelivery(rows interface {
	Scan(dest ...interface{}) error
}) (*domain.Delivery, error) {
	var d domain.Delivery
	var msg domain.Message
	var recipientID, groupID, attachmentRef sql.NullString

	err := rows.Scan(
		&d.ID,
		&d.MessageID,
		&d.SenderID,
		&recipientID,
		&groupID,
		&d.SentAt,
		&d.Unread,
		&msg.ID,
		&msg.Subject,
		&msg.Body,
		&attachmentRef,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if recipientID.Valid {
		d.RecipientID = &recipientID.String
	}
	if groupID.Valid {
		d.GroupID = &groupID.String
	}
	if attachmentRef.Valid {
		msg.AttachmentRef = &attachmentRef.String
	}
	d.Message = &msg

	return &d, nil
}

// CreateDelivery 原子地创建内容与投递记录
func (s *Store) CreateDelivery(message *domain.Message, delivery *domain.Delivery) error {
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
		INSERT INTO deliveries (id, message_id, sender_id, recipient_id, group_id, sent_at, unread)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), delivery.ID, delivery.MessageID, delivery.SenderID, delivery.RecipientID, delivery.GroupID, delivery.SentAt, delivery.Unread)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// CreateDeliveryForMessage 为已存在的内容创建投递记录
func (s *Store) CreateDeliveryForMessage(delivery *domain.Delivery) error {
	query := `
		INSERT INTO deliveries (id, message_id, sender_id, recipient_id, group_id, sent_at, unread)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.exec(query,
		delivery.ID,
		delivery.MessageID,
		delivery.SenderID,
		delivery.RecipientID,
		delivery.GroupID,
		delivery.SentAt,
		delivery.Unread,
	)
	return err
}

// GetDelivery 获取投递记录（附带内容）
func (s *Store) GetDelivery(id string) (*domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` ` + deliveryJoin + ` WHERE d.id = ?`

	d, err := scanDelivery(s.queryRow(query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrDeliveryNotFound
		}
		return nil, err
	}
	return d, nil
}

// SetDeliveryUnread 设置投递记录的未读标志
func (s *Store) SetDeliveryUnread(id string, unread bool) error {
	result, err := s.exec(`UPDATE deliveries SET unread = ? WHERE id = ?`, unread, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrDeliveryNotFound
	}
	return nil
}

// inboxWhere 收件箱的排除法查询条件
//
// 候选集：寄给该用户本人，或寄给其所在群组且非本人发出；
// 排除：该用户的 trash/spam/junk 标签与彻底删除标记。
const inboxWhere = `
	WHERE (
		d.recipient_id = ?
		OR (
			d.group_id IS NOT NULL
			AND d.sender_id <> ?
			AND d.group_id IN (SELECT gm.group_id FROM group_members gm WHERE gm.user_id = ?)
		)
	)
	AND NOT EXISTS (
		SELECT 1 FROM folder_tags t
		WHERE t.delivery_id = d.id AND t.acting_user_id = ? AND t.kind IN ('trash', 'spam', 'junk')
	)
	AND NOT EXISTS (
		SELECT 1 FROM permanent_deletions p
		WHERE p.delivery_id = d.id AND p.deleter_id = ?
	)
`

// ListInbox 按排除法计算收件箱
func (s *Store) ListInbox(userID string, unread *bool, page, pageSize int) ([]domain.Delivery, int, error) {
	where := inboxWhere
	args := []interface{}{userID, userID, userID, userID, userID}

	if unread != nil {
		where += ` AND d.unread = ?`
		args = append(args, *unread)
	}

	return s.pageDeliveries(where, args, page, pageSize)
}

// ListSent 返回该用户发出的投递
func (s *Store) ListSent(userID string, page, pageSize int) ([]domain.Delivery, int, error) {
	return s.pageDeliveries(`WHERE d.sender_id = ?`, []interface{}{userID}, page, pageSize)
}

// pageDeliveries 统计总数并返回一页投递（附带内容）
func (s *Store) pageDeliveries(where string, args []interface{}, page, pageSize int) ([]domain.Delivery, int, error) {
	countQuery := `SELECT COUNT(*) FROM deliveries d ` + where
	var total int
	if err := s.queryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + deliveryColumns + ` ` + deliveryJoin + ` ` + where + `
		ORDER BY d.sent_at DESC, d.id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, pageSize, offset)

	rows, err := s.query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	deliveries := make([]domain.Delivery, 0, pageSize)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		deliveries = append(deliveries, *d)
	}

	return deliveries, total, rows.Err()
}

// ========== Folder Repository ==========

// UpsertFolderTag 幂等写入文件夹标签
func (s *Store) UpsertFolderTag(tag *domain.FolderTag) error {
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}

	// 重复打标依赖唯一索引去重，两种方言的忽略语法不同
	var query string
	if s.driverName == "postgres" {
		query = `
			INSERT INTO folder_tags (id, delivery_id, acting_user_id, kind, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (delivery_id, acting_user_id, kind) DO NOTHING
		`
	} else {
		query = `
			INSERT IGNORE INTO folder_tags (id, delivery_id, acting_user_id, kind, created_at)
			VALUES (?, ?, ?, ?, ?)
		`
	}

	_, err := s.exec(query, tag.ID, tag.DeliveryID, tag.ActingUserID, tag.Kind, tag.CreatedAt)
	return err
}

// RemoveFolderTag 删除文件夹标签
func (s *Store) RemoveFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) error {
	query := `DELETE FROM folder_tags WHERE delivery_id = ? AND acting_user_id = ? AND kind = ?`
	result, err := s.exec(query, deliveryID, actingUserID, kind)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrFolderTagNotFound
	}
	return nil
}

// HasFolderTag 判断标签是否存在
func (s *Store) HasFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) (bool, error) {
	query := `SELECT COUNT(*) FROM folder_tags WHERE delivery_id = ? AND acting_user_id = ? AND kind = ?`
	var count int
	if err := s.queryRow(query, deliveryID, actingUserID, kind).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFolder 返回该用户标记为指定种类的投递
func (s *Store) ListFolder(actingUserID string, kind domain.FolderKind, page, pageSize int) ([]domain.Delivery, int, error) {
	where := `
		WHERE EXISTS (
			SELECT 1 FROM folder_tags t
			WHERE t.delivery_id = d.id AND t.acting_user_id = ? AND t.kind = ?
		)
		AND NOT EXISTS (
			SELECT 1 FROM permanent_deletions p
			WHERE p.delivery_id = d.id AND p.deleter_id = ?
		)
	`
	args := []interface{}{actingUserID, kind, actingUserID}
	return s.pageDeliveries(where, args, page, pageSize)
}

// CreatePermanentDeletion 幂等写入彻底删除标记
func (s *Store) CreatePermanentDeletion(marker *domain.PermanentDeletion) error {
	if marker.CreatedAt.IsZero() {
		marker.CreatedAt = time.Now().UTC()
	}

	var query string
	if s.driverName == "postgres" {
		query = `
			INSERT INTO permanent_deletions (id, delivery_id, deleter_id, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (delivery_id, deleter_id) DO NOTHING
		`
	} else {
		query = `
			INSERT IGNORE INTO permanent_deletions (id, delivery_id, deleter_id, created_at)
			VALUES (?, ?, ?, ?)
		`
	}

	_, err := s.exec(query, marker.ID, marker.DeliveryID, marker.DeleterID, marker.CreatedAt)
	return err
}

// HasPermanentDeletion 判断彻底删除标记是否存在
func (s *Store) HasPermanentDeletion(deliveryID, deleterID string) (bool, error) {
	query := `SELECT COUNT(*) FROM permanent_deletions WHERE delivery_id = ? AND deleter_id = ?`
	var count int
	if err := s.queryRow(query, deliveryID, deleterID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
