package dto

import (
	"time"

	"sniply-go/internal/model"
)

// CreateLinkRequest 创建短链的请求参数
type CreateLinkRequest struct {
	URL string `json:"url" binding:"required" msg:"error.url_required"`
}

// LinkResponse 短链记录 + 计算出的完整短链地址
type LinkResponse struct {
	ID          uint      `json:"id"`
	ShortID     string    `json:"shortId"`
	OriginalURL string    `json:"originalUrl"`
	UserID      *string   `json:"userId,omitempty"`
	Clicks      int64     `json:"clicks"`
	ShortURL    string    `json:"shortUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewLinkResponse 由模型构造响应，shortDomain 为配置的短域名
func NewLinkResponse(link *model.Link, shortDomain string) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		ShortID:     link.ShortID,
		OriginalURL: link.OriginalURL,
		UserID:      link.UserID,
		Clicks:      link.Clicks,
		ShortURL:    shortDomain + "/" + link.ShortID,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

// PreviewResponse 目标页面的元信息，获取失败时各字段为空字符串
type PreviewResponse struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"siteName"`
}
