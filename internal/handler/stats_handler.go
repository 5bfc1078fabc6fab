package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sniply-go/internal/apperrors"
	"sniply-go/internal/i18n"
	"sniply-go/internal/middleware"
	"sniply-go/internal/service"
	"sniply-go/response"
)

// GetLinkStatsHandler 查询短链的按天点击统计（GET /api/links/:id/stats）
func GetLinkStatsHandler(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id < 1 {
		_ = c.Error(apperrors.InvalidRequestError("无效的 ID"))
		return
	}

	userID := middleware.CurrentUserID(c)
	if userID == nil {
		_ = c.Error(apperrors.UnauthorizedError(i18n.T(c.Request.Context(), "error.unauthorized", nil)))
		return
	}

	stats, err := service.GetStatsByLinkID(c.Request.Context(), uint(id), *userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(stats, "success"))
}
