package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/service"
)

// TransferHandler 处理邮件投递与文件夹相关的 HTTP 请求
type TransferHandler struct {
	transfers *service.TransferService
	folders   *service.FolderService
	log       *zap.Logger
}

// NewTransferHandler 创建投递处理器实例
func NewTransferHandler(transfers *service.TransferService, folders *service.FolderService, log *zap.Logger) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		folders:   folders,
		log:       log,
	}
}

type sendTransferRequest struct {
	RecipientID   *string `json:"recipientId"`
	GroupID       *string `json:"groupId"`
	Subject       string  `json:"subject"`
	Body          string  `json:"body"`
	AttachmentRef *string `json:"attachmentRef"`
}

type fileIntoFolderRequest struct {
	ID   string `json:"id" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

type updateReadStatusRequest struct {
	ID     string `json:"id" binding:"required"`
	Unread *bool  `json:"unread" binding:"required"`
}

type restoreRequest struct {
	ID string `json:"id" binding:"required"`
}

type messagePayload struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	AttachmentRef *string   `json:"attachmentRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type deliveryResponse struct {
	ID          string          `json:"id"`
	SenderID    string          `json:"senderId"`
	RecipientID *string         `json:"recipientId,omitempty"`
	GroupID     *string         `json:"groupId,omitempty"`
	SentAt      time.Time       `json:"sentAt"`
	Unread      bool            `json:"unread"`
	Message     *messagePayload `json:"message,omitempty"`
}

// pagedResponse 分页列表响应体
type pagedResponse struct {
	Items    interface{} `json:"items"`
	Count    int         `json:"count"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// paginationQuery 列表端点通用的分页参数
type paginationQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// sendTransfer godoc
// @Summary 发送邮件
// @Description 向单个收件人或单个群组发送一封邮件，收件目标必须且只能指定其一
// @Tags EmailTransfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sendTransferRequest true "邮件内容与收件目标"
// @Success 201 {object} Response{data=deliveryResponse}
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/emailTransfers [post]
func (h *TransferHandler) sendTransfer(c *gin.Context) {
	var req sendTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	delivery, err := h.transfers.Send(service.SendInput{
		SenderID:      CurrentUserID(c),
		RecipientID:   req.RecipientID,
		GroupID:       req.GroupID,
		Subject:       req.Subject,
		Body:          req.Body,
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.log.Info("delivery created",
		zap.String("delivery_id", delivery.ID),
		zap.String("sender_id", delivery.SenderID),
	)

	Created(c, toDeliveryResponse(delivery))
}

// getOrListFolder 处理 GET /v1/emailTransfers/:key
//
// 同一个路径段既承载文件夹名也承载投递 ID：
// 先尝试解析为文件夹类型（trash/spam/junk/favorites），
// 解析失败则视为投递 ID 走详情读取。
func (h *TransferHandler) getOrListFolder(c *gin.Context) {
	key := c.Param("key")
	if kind, err := domain.ParseFolderKind(key); err == nil {
		h.listFolder(c, kind)
		return
	}
	h.getTransfer(c, key)
}

// getTransfer 读取单条投递详情，发件人、收件人与当前群组成员可见
func (h *TransferHandler) getTransfer(c *gin.Context, deliveryID string) {
	delivery, err := h.transfers.Get(CurrentUserID(c), deliveryID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, toDeliveryResponse(delivery))
}

// listFolder 返回当前用户指定文件夹内的投递
func (h *TransferHandler) listFolder(c *gin.Context, kind domain.FolderKind) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	items, total, err := h.folders.ListFolder(CurrentUserID(c), kind, q.Page, q.PageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, toPagedDeliveries(items, total, q))
}

// deleteTransfer godoc
// @Summary 删除邮件
// @Description 第一次删除移入回收站；回收站中的邮件再次删除将被彻底清除，仅影响当前用户的视图
// @Tags EmailTransfers
// @Produce json
// @Security BearerAuth
// @Param id path string true "投递ID"
// @Success 204
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/emailTransfers/{id} [delete]
func (h *TransferHandler) deleteTransfer(c *gin.Context) {
	if err := h.folders.Destroy(CurrentUserID(c), c.Param("key")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// listInbox godoc
// @Summary 收件箱
// @Description 返回当前用户的收件箱视图，支持未读过滤与分页
// @Tags EmailTransfers
// @Produce json
// @Security BearerAuth
// @Param unread query boolean false "按未读状态过滤"
// @Param page query int false "页码（默认1）"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} Response{data=pagedResponse}
// @Router /v1/emailTransfers/inbox [get]
func (h *TransferHandler) listInbox(c *gin.Context) {
	var q struct {
		paginationQuery
		Unread *bool `form:"unread"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	items, total, err := h.transfers.ListInbox(CurrentUserID(c), q.Unread, q.Page, q.PageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, toPagedDeliveries(items, total, q.paginationQuery))
}

// fileIntoFolder godoc
// @Summary 归档邮件
// @Description 把一条投递归入指定文件夹；trash/spam/junk 互斥，favorites 独立
// @Tags EmailTransfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body fileIntoFolderRequest true "投递ID与文件夹类型"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/emailTransfers/inbox [post]
func (h *TransferHandler) fileIntoFolder(c *gin.Context) {
	var req fileIntoFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	kind, err := domain.ParseFolderKind(req.Kind)
	if err != nil {
		RespondError(c, err)
		return
	}

	if err := h.folders.File(CurrentUserID(c), req.ID, kind); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// updateReadStatus godoc
// @Summary 更新已读状态
// @Description 设置投递的未读标志；该标志是整条投递上的共享状态，幂等
// @Tags EmailTransfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateReadStatusRequest true "投递ID与目标状态"
// @Success 200 {object} Response{data=deliveryResponse}
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/emailTransfers/update_read_status [post]
func (h *TransferHandler) updateReadStatus(c *gin.Context) {
	var req updateReadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	delivery, err := h.transfers.UpdateReadStatus(CurrentUserID(c), req.ID, *req.Unread)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, toDeliveryResponse(delivery))
}

// listSent godoc
// @Summary 已发送列表
// @Description 返回当前用户发出的全部投递，不受收件方标签与删除影响
// @Tags EmailTransfers
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码（默认1）"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} Response{data=pagedResponse}
// @Router /v1/emailTransfers/sent_emails [get]
func (h *TransferHandler) listSent(c *gin.Context) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	items, total, err := h.transfers.ListSent(CurrentUserID(c), q.Page, q.PageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, toPagedDeliveries(items, total, q))
}

// restoreFromFolder 处理 POST /v1/emailTransfers/:key
//
// 路径段必须是合法的文件夹名，请求体中的投递被撤掉对应标签回到收件箱。
func (h *TransferHandler) restoreFromFolder(c *gin.Context) {
	kind, err := domain.ParseFolderKind(c.Param("key"))
	if err != nil {
		RespondError(c, err)
		return
	}

	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.folders.Restore(CurrentUserID(c), req.ID, kind); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// toDeliveryResponse 转换投递实体为响应体
func toDeliveryResponse(d *domain.Delivery) deliveryResponse {
	resp := deliveryResponse{
		ID:          d.ID,
		SenderID:    d.SenderID,
		RecipientID: d.RecipientID,
		GroupID:     d.GroupID,
		SentAt:      d.SentAt,
		Unread:      d.Unread,
	}
	if d.Message != nil {
		resp.Message = &messagePayload{
			ID:            d.Message.ID,
			Subject:       d.Message.Subject,
			Body:          d.Message.Body,
			AttachmentRef: d.Message.AttachmentRef,
			CreatedAt:     d.Message.CreatedAt,
		}
	}
	return resp
}

// toPagedDeliveries 组装分页投递列表响应
func toPagedDeliveries(items []domain.Delivery, total int, q paginationQuery) pagedResponse {
	responses := make([]deliveryResponse, 0, len(items))
	for i := range items {
		responses = append(responses, toDeliveryResponse(&items[i]))
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = len(responses)
	}
	return pagedResponse{
		Items:    responses,
		Count:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}
