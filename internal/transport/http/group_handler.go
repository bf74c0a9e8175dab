package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/service"
)

// GroupHandler 处理群组相关的 HTTP 请求
type GroupHandler struct {
	groups *service.GroupService
	log    *zap.Logger
}

// NewGroupHandler 创建群组处理器实例
func NewGroupHandler(groups *service.GroupService, log *zap.Logger) *GroupHandler {
	return &GroupHandler{
		groups: groups,
		log:    log,
	}
}

type createGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type addMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type removeMemberRequest struct {
	UserID *string `json:"userId"`
}

// CreateGroup godoc
// @Summary 创建群组
// @Description 创建一个命名群组，创建者自动成为第一个成员
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createGroupRequest true "群组信息"
// @Success 201 {object} Response{data=domain.Group}
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /v1/groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	group, err := h.groups.Create(service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   CurrentUserID(c),
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.log.Info("group created",
		zap.String("group_id", group.ID),
		zap.String("creator_id", group.CreatorID),
	)

	Created(c, group)
}

// ListGroups godoc
// @Summary 群组列表
// @Description 返回当前用户所属的全部群组
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]domain.Group}
// @Router /v1/groups [get]
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.List(CurrentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{
		"items": groups,
		"count": len(groups),
	})
}

// GetGroup godoc
// @Summary 群组详情
// @Description 查看群组详细信息，仅成员可见
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "群组ID"
// @Success 200 {object} Response{data=domain.Group}
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/groups/{id} [get]
func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groups.Get(CurrentUserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, group)
}

// UpdateGroup godoc
// @Summary 更新群组
// @Description 修改群组名称或描述，仅创建者可执行
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "群组ID"
// @Param request body updateGroupRequest true "更新内容"
// @Success 200 {object} Response{data=domain.Group}
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /v1/groups/{id} [patch]
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	group, err := h.groups.Update(CurrentUserID(c), c.Param("id"), service.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, group)
}

// DeleteGroup godoc
// @Summary 解散群组
// @Description 删除群组及其全部成员关系，仅创建者可执行
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "群组ID"
// @Success 204
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/groups/{id} [delete]
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	if err := h.groups.Delete(CurrentUserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	h.log.Info("group deleted",
		zap.String("group_id", c.Param("id")),
		zap.String("user_id", CurrentUserID(c)),
	)

	NoContent(c)
}

// ListMembers godoc
// @Summary 群组成员列表
// @Description 返回群组成员关系，仅成员可见
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "群组ID"
// @Success 200 {object} Response{data=[]domain.GroupMember}
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /v1/groups/{id}/members [get]
func (h *GroupHandler) ListMembers(c *gin.Context) {
	members, err := h.groups.Members(CurrentUserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	if members == nil {
		members = []domain.GroupMember{}
	}
	Success(c, gin.H{
		"items": members,
		"count": len(members),
	})
}

// AddMember godoc
// @Summary 添加群组成员
// @Description 把指定用户拉入群组，任何现有成员都可执行
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "群组ID"
// @Param request body addMemberRequest true "目标用户"
// @Success 204
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /v1/groups/{id}/add_member [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.groups.AddMember(CurrentUserID(c), c.Param("id"), req.UserID); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// RemoveMember godoc
// @Summary 移除群组成员
// @Description 不带 userId 时是操作者自行退出；移除他人仅创建者可执行；创建者本人不可被移除
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "群组ID"
// @Param request body removeMemberRequest false "目标用户（可省略）"
// @Success 204
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /v1/groups/{id}/remove_member [post]
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	var req removeMemberRequest
	// 请求体可以为空，等同于自行退出
	_ = c.ShouldBindJSON(&req)

	if err := h.groups.RemoveMember(CurrentUserID(c), c.Param("id"), req.UserID); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}
