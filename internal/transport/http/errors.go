package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intramail/backend/internal/auth"
	jwtpkg "intramail/backend/internal/auth/jwt"
	"intramail/backend/internal/domain"
	"intramail/backend/internal/service"
	"intramail/backend/internal/storage"
)

// errorMapping 业务错误到 HTTP 状态码和中文消息的映射
type errorMapping struct {
	err    error
	status int
	msg    string
}

// errorTable 确定性的错误映射表
//
// 同一个业务错误在任何端点上都映射到同一个状态码：
// 参数校验 -> 400，认证 -> 401，授权 -> 403，
// 不存在（含对不可见资源的统一遮蔽）-> 404，状态冲突 -> 409。
var errorTable = []errorMapping{
	// 参数校验 400
	{service.ErrAmbiguousTarget, http.StatusBadRequest, "收件目标必须且只能指定 recipientId 或 groupId 之一"},
	{service.ErrSelfSend, http.StatusBadRequest, "不能给自己发送邮件"},
	{service.ErrSubjectRequired, http.StatusBadRequest, "邮件主题不能为空"},
	{service.ErrSubjectTooLong, http.StatusBadRequest, "邮件主题不能超过 200 个字符"},
	{service.ErrGroupNameRequired, http.StatusBadRequest, "群组名称不能为空"},
	{domain.ErrUnknownFolderKind, http.StatusBadRequest, "未知的文件夹类型"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "邮箱格式无效"},
	{auth.ErrInvalidPassword, http.StatusBadRequest, "密码不符合要求"},

	// 认证 401
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "用户名或密码错误"},
	{jwtpkg.ErrInvalidToken, http.StatusUnauthorized, "无效的令牌"},
	{jwtpkg.ErrExpiredToken, http.StatusUnauthorized, "令牌已过期"},

	// 授权 403
	{service.ErrForbidden, http.StatusForbidden, "无权执行该操作"},
	{service.ErrSenderCannotFile, http.StatusForbidden, "发件人不能对自己发出的邮件执行该操作"},
	{service.ErrNotGroupMember, http.StatusForbidden, "您不是该群组的成员"},
	{auth.ErrUserInactive, http.StatusForbidden, "账户已被禁用"},

	// 不存在 404
	{storage.ErrUserNotFound, http.StatusNotFound, "用户不存在"},
	{storage.ErrMessageNotFound, http.StatusNotFound, "邮件不存在"},
	{storage.ErrDeliveryNotFound, http.StatusNotFound, "邮件不存在"},
	{storage.ErrFolderTagNotFound, http.StatusNotFound, "该邮件不在此文件夹中"},
	{storage.ErrGroupNotFound, http.StatusNotFound, "群组不存在"},
	{storage.ErrMemberNotFound, http.StatusNotFound, "该用户不是群组成员"},
	{storage.ErrDraftNotFound, http.StatusNotFound, "草稿不存在"},
	{auth.ErrUserNotFound, http.StatusNotFound, "用户不存在"},

	// 冲突 409
	{storage.ErrGroupNameTaken, http.StatusConflict, "群组名称已被使用"},
	{storage.ErrAlreadyMember, http.StatusConflict, "该用户已是群组成员"},
	{storage.ErrEmailExists, http.StatusConflict, "该邮箱已被注册"},
	{storage.ErrUsernameExists, http.StatusConflict, "该用户名已被使用"},
	{auth.ErrEmailExists, http.StatusConflict, "该邮箱已被注册"},
	{auth.ErrUsernameExists, http.StatusConflict, "该用户名已被使用"},
	{service.ErrCreatorCannotLeave, http.StatusConflict, "群组创建者不能退出群组"},
}

// RespondError 按映射表写出错误响应，未知错误统一 500
func RespondError(c *gin.Context, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			Fail(c, m.status, m.msg)
			return
		}
	}
	Fail(c, http.StatusInternalServerError, MsgInternalError)
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"
	MsgRequestTooLong = "请求体超过大小限制"

	// 认证相关
	MsgAuthRequired       = "需要登录认证"
	MsgInvalidCredentials = "用户名或密码错误"
	MsgTokenExpired       = "登录已过期，请重新登录"
	MsgTokenInvalid       = "无效的访问令牌"
	MsgTokenRevoked       = "令牌已注销"
	MsgPermissionDenied   = "权限不足"

	// 限流相关
	MsgRateLimited = "操作过于频繁，请稍后重试"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
