package handler

import (
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sniply-go/internal/apperrors"
	"sniply-go/internal/dto"
	"sniply-go/internal/i18n"
	"sniply-go/internal/middleware"
	"sniply-go/internal/repository"
	"sniply-go/internal/service"
	"sniply-go/pkg/logging"
	"sniply-go/pkg/utils"
	"sniply-go/response"
)

// CreateLinkHandler 创建短链（POST /api/links，匿名路由 /api/links/public 复用）
func CreateLinkHandler(c *gin.Context) {
	var req dto.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(bindingError(c, req, err))
		return
	}

	// 认证路由下中间件已写入 userID；匿名路由下为 nil
	userID := middleware.CurrentUserID(c)

	link, err := service.CreateLink(c.Request.Context(), req.URL, userID)
	if err != nil {
		zap.L().Warn("Short link creation failed",
			zap.Error(err),
			zap.String("url", req.URL),
		)
		_ = c.Error(err)
		return
	}

	linkResp := dto.NewLinkResponse(link, shortDomain())
	c.JSON(http.StatusCreated, response.OK(linkResp, i18n.T(c.Request.Context(), "link.created", nil)))
}

// ListMyLinksHandler 查询当前用户的短链列表（GET /api/links/my）
func ListMyLinksHandler(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == nil {
		_ = c.Error(apperrors.UnauthorizedError(i18n.T(c.Request.Context(), "error.unauthorized", nil)))
		return
	}

	links, err := service.ListUserLinks(c.Request.Context(), *userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	domain := shortDomain()
	linkResps := make([]dto.LinkResponse, 0, len(links))
	for i := range links {
		linkResps = append(linkResps, dto.NewLinkResponse(&links[i], domain))
	}

	c.JSON(http.StatusOK, response.OK(linkResps, "success"))
}

// DeleteLinkHandler 删除当前用户的短链（DELETE /api/links/:id）
func DeleteLinkHandler(c *gin.Context) {
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

	if err := service.DeleteLink(c.Request.Context(), uint(id), *userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(struct{}{}, i18n.T(c.Request.Context(), "link.deleted", nil)))
}

// PreviewLinkHandler 抓取目标页面元信息（GET /api/links/preview?url=xxx）
func PreviewLinkHandler(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		_ = c.Error(apperrors.InvalidRequestError(i18n.T(c.Request.Context(), "error.url_required", nil)))
		return
	}

	normalizedURL, err := utils.NormalizeURL(rawURL)
	if err != nil {
		_ = c.Error(apperrors.InvalidRequestError(i18n.T(c.Request.Context(), err.Error(), nil)))
		return
	}

	// 服务端代为抓取，必须先过 SSRF 检查
	if utils.IsBlockedHost(normalizedURL) {
		_ = c.Error(apperrors.InvalidRequestError(i18n.T(c.Request.Context(), "error.url_host_blocked", nil)))
		return
	}

	preview := service.FetchPreview(c.Request.Context(), normalizedURL)
	c.JSON(http.StatusOK, response.OK(preview, "success"))
}

// RedirectHandler 短链跳转，注册为 NoRoute 兜底处理 GET 请求
func RedirectHandler(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.Status(http.StatusNotFound)
		return
	}

	// 提取路径作为 short_id（去掉前导 '/'）
	shortID := c.Request.URL.Path[1:]

	link, ok := service.ResolveShortLink(c.Request.Context(), shortID)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	// 计数在响应前完成；失败只记日志，跳转照常进行
	if _, err := service.IncrementClicks(link.ID); err != nil {
		logging.Logger.Warn("Failed to increment clicks",
			zap.Uint("id", link.ID),
			zap.String("short_id", shortID),
			zap.Error(err))
	}

	recordDailyClick(shortID)

	// 历史数据可能缺协议前缀，跳转时一律补 https://
	target := link.OriginalURL
	if !utils.HasHTTPScheme(target) {
		target = "https://" + target
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Redirect(http.StatusFound, target)
}

func recordDailyClick(shortID string) {
	if repository.RedisPool == nil {
		return
	}

	conn := repository.RedisPool.Get()
	defer func() {
		if err := conn.Close(); err != nil {
			logging.Logger.Error("Failed to close Redis connection",
				zap.Error(err),
				zap.String("operation", "close"),
				zap.String("connection_type", "redis"),
			)
		}
	}()

	service.RecordDailyClick(conn, shortID)
}

func shortDomain() string {
	domain := viper.GetString("server.short_domain")
	if domain == "" {
		domain = "http://localhost:8080"
	}
	return domain
}

// bindingError 把绑定错误转换为参数校验错误，优先使用字段 msg 标签中的消息 ID
func bindingError(c *gin.Context, req interface{}, err error) *apperrors.AppError {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			field, ok := reflect.TypeOf(req).FieldByName(e.Field())
			if !ok {
				return apperrors.InvalidRequestErrorDefault()
			}

			if msgKey := field.Tag.Get("msg"); msgKey != "" {
				return apperrors.InvalidRequestError(i18n.T(c.Request.Context(), msgKey, nil))
			}
		}
	}
	return apperrors.InvalidRequestErrorDefault()
}
