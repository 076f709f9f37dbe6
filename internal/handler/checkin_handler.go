// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"mood-mate-go/internal/model"
	"mood-mate-go/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckinHandler 负责打卡提交与历史查询两个接口。
type CheckinHandler struct {
	checkinService service.CheckinService
	defaultUserID  string
}

// NewCheckinHandler 创建一个新的 CheckinHandler。
func NewCheckinHandler(checkinService service.CheckinService, defaultUserID string) *CheckinHandler {
	return &CheckinHandler{
		checkinService: checkinService,
		defaultUserID:  defaultUserID,
	}
}

// Checkin 处理打卡提交请求。text 缺失返回 400，其余情况管道始终产出完整响应。
func (h *CheckinHandler) Checkin(c *gin.Context) {
	var req model.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No text provided"})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = h.defaultUserID
	}

	resp := h.checkinService.Checkin(c.Request.Context(), userID, req.Text)
	c.JSON(http.StatusOK, resp)
}

// History 返回用户近期打卡记录，用于前端展示。
func (h *CheckinHandler) History(c *gin.Context) {
	userID := c.DefaultQuery("user_id", h.defaultUserID)
	records := h.checkinService.History(c.Request.Context(), userID)
	c.JSON(http.StatusOK, records)
}
