package httptransport

import "github.com/gin-gonic/gin"

// 上下文键，由认证中间件写入
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// CurrentUserID 读取认证中间件注入的当前用户 ID
//
// 所有业务路由都挂在 RequireAuth 之后，取不到值说明路由挂错了。
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
