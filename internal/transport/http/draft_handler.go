package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/service"
)

// DraftHandler 处理草稿相关的 HTTP 请求
type DraftHandler struct {
	drafts *service.DraftService
	log    *zap.Logger
}

// NewDraftHandler 创建草稿处理器实例
func NewDraftHandler(drafts *service.DraftService, log *zap.Logger) *DraftHandler {
	return &DraftHandler{
		drafts: drafts,
		log:    log,
	}
}

type draftRequest struct {
	Subject       string  `json:"subject"`
	Body          string  `json:"body"`
	AttachmentRef *string `json:"attachmentRef"`
}

type sendDraftRequest struct {
	RecipientID *string `json:"recipientId"`
	GroupID     *string `json:"groupId"`
}

type draftResponse struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Message   *messagePayload `json:"message,omitempty"`
}

// CreateDraft godoc
// @Summary 保存草稿
// @Description 保存一封尚未投递的邮件，草稿阶段不要求主题非空
// @Tags Drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body draftRequest true "草稿内容"
// @Success 201 {object} Response{data=draftResponse}
// @Failure 400 {object} errorResponse
// @Router /v1/drafts [post]
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	draft, err := h.drafts.Create(CurrentUserID(c), service.DraftInput{
		Subject:       req.Subject,
		Body:          req.Body,
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, toDraftResponse(draft))
}

// ListDrafts godoc
// @Summary 草稿列表
// @Description 返回当前用户的草稿，最近更新优先
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码（默认1）"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} Response{data=pagedResponse}
// @Router /v1/drafts [get]
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	items, total, err := h.drafts.List(CurrentUserID(c), q.Page, q.PageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	responses := make([]draftResponse, 0, len(items))
	for i := range items {
		responses = append(responses, toDraftResponse(&items[i]))
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = len(responses)
	}
	Success(c, pagedResponse{
		Items:    responses,
		Count:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

// GetDraft godoc
// @Summary 草稿详情
// @Description 读取草稿内容，仅草稿主人可见
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param id path string true "草稿ID"
// @Success 200 {object} Response{data=draftResponse}
// @Failure 404 {object} errorResponse
// @Router /v1/drafts/{id} [get]
func (h *DraftHandler) GetDraft(c *gin.Context) {
	draft, err := h.drafts.Get(CurrentUserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, toDraftResponse(draft))
}

// UpdateDraft godoc
// @Summary 更新草稿
// @Description 覆盖草稿的主题、正文与附件引用
// @Tags Drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "草稿ID"
// @Param request body draftRequest true "草稿内容"
// @Success 200 {object} Response{data=draftResponse}
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/drafts/{id} [patch]
func (h *DraftHandler) UpdateDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	draft, err := h.drafts.Update(CurrentUserID(c), c.Param("id"), service.DraftInput{
		Subject:       req.Subject,
		Body:          req.Body,
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, toDraftResponse(draft))
}

// DeleteDraft godoc
// @Summary 删除草稿
// @Description 删除草稿，留下的孤儿内容由后台清理任务回收
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param id path string true "草稿ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /v1/drafts/{id} [delete]
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	if err := h.drafts.Delete(CurrentUserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// SendDraft godoc
// @Summary 发送草稿
// @Description 把草稿提升为一条真实投递并删除草稿行，收件目标必须且只能指定其一
// @Tags Drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "草稿ID"
// @Param request body sendDraftRequest true "收件目标"
// @Success 201 {object} Response{data=deliveryResponse}
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/drafts/{id}/send [post]
func (h *DraftHandler) SendDraft(c *gin.Context) {
	var req sendDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	delivery, err := h.drafts.Send(CurrentUserID(c), c.Param("id"), req.RecipientID, req.GroupID)
	if err != nil {
		RespondError(c, err)
		return
	}

	h.log.Info("draft sent",
		zap.String("draft_id", c.Param("id")),
		zap.String("delivery_id", delivery.ID),
	)

	Created(c, toDeliveryResponse(delivery))
}

// toDraftResponse 转换草稿实体为响应体
func toDraftResponse(d *domain.Draft) draftResponse {
	resp := draftResponse{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
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
