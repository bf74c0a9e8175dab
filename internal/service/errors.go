package service

import "errors"

var (
	// ErrAmbiguousTarget 收件目标必须且只能设置 recipientId 与 groupId 之一
	ErrAmbiguousTarget = errors.New("exactly one of recipientId or groupId must be set")
	// ErrSelfSend 不允许给自己发送邮件
	ErrSelfSend = errors.New("cannot send to self")
	// ErrSubjectRequired 邮件主题不能为空
	ErrSubjectRequired = errors.New("subject is required")
	// ErrSubjectTooLong 邮件主题过长
	ErrSubjectTooLong = errors.New("subject must be at most 200 characters")
	// ErrForbidden 当前用户无权执行该操作
	ErrForbidden = errors.New("operation not permitted")
	// ErrSenderCannotFile 发件人不能对自己发出的投递做文件夹操作
	ErrSenderCannotFile = errors.New("sender cannot file own delivery")
	// ErrNotGroupMember 当前用户不是群组成员
	ErrNotGroupMember = errors.New("user is not a group member")
	// ErrCreatorCannotLeave 创建者不能退出或被移出群组
	ErrCreatorCannotLeave = errors.New("group creator cannot be removed")
	// ErrGroupNameRequired 群组名称不能为空
	ErrGroupNameRequired = errors.New("group name is required")
)
