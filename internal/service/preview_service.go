package service

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sniply-go/internal/dto"
	"sniply-go/pkg/logging"
)

const (
	// DefaultPreviewTimeout 抓取预览的默认时间预算
	DefaultPreviewTimeout = 8 * time.Second
	// maxPreviewBodyBytes 响应体最多读取的字节数，限制对抗性大响应的解析成本
	maxPreviewBodyBytes = 200000

	previewUserAgent = "SniplyPreviewBot/1.0"
)

var (
	titlePattern = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)

	// og:* 使用 property 属性，twitter:* 使用 name 属性
	ogTitlePattern       = metaPattern("og:title", "property")
	ogDescriptionPattern = metaPattern("og:description", "property")
	ogImagePattern       = metaPattern("og:image", "property")
	ogSiteNamePattern    = metaPattern("og:site_name", "property")

	twitterTitlePattern       = metaPattern("twitter:title", "name")
	twitterDescriptionPattern = metaPattern("twitter:description", "name")
	twitterImagePattern       = metaPattern("twitter:image", "name")
	twitterSitePattern        = metaPattern("twitter:site", "name")
)

var previewClient = &http.Client{}

// FetchPreview 抓取目标页面的元信息
// 预览是锦上添花的功能：任何失败（超时、网络错误、非 HTML 响应）
// 都返回空字段结果而不是错误
func FetchPreview(ctx context.Context, url string) dto.PreviewResponse {
	return fetchPreview(ctx, url, previewTimeout())
}

func fetchPreview(ctx context.Context, url string, timeout time.Duration) dto.PreviewResponse {
	empty := dto.PreviewResponse{URL: url}

	// 超时必须取消底层网络操作，而不只是放弃等待
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return empty
	}
	req.Header.Set("User-Agent", previewUserAgent)

	resp, err := previewClient.Do(req)
	if err != nil {
		logging.Logger.Info("Preview fetch failed",
			zap.String("url", url),
			zap.Error(err))
		return empty
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Logger.Warn("Failed to close preview response body", zap.Error(err))
		}
	}()

	// 无视声明的 Content-Length，只取前 200000 字节
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPreviewBodyBytes))
	if err != nil {
		return empty
	}
	html := string(body)

	return dto.PreviewResponse{
		URL:         url,
		Title:       firstMatch(html, ogTitlePattern, twitterTitlePattern, titlePattern),
		Description: firstMatch(html, ogDescriptionPattern, twitterDescriptionPattern),
		Image:       firstMatch(html, ogImagePattern, twitterImagePattern),
		SiteName:    firstMatch(html, ogSiteNamePattern, twitterSitePattern),
	}
}

func previewTimeout() time.Duration {
	seconds := viper.GetInt("preview.timeout_seconds")
	if seconds <= 0 {
		return DefaultPreviewTimeout
	}
	return time.Duration(seconds) * time.Second
}

// metaPattern 构造 <meta ... key ... content="..."> 的提取正则
func metaPattern(key, attr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<meta[^>]+` + attr + `=["']` + regexp.QuoteMeta(key) + `["'][^>]+content=["']([^"']+)["'][^>]*>`)
}

// firstMatch 按优先级取第一个命中的提取结果，全部未命中时返回空串
func firstMatch(html string, patterns ...*regexp.Regexp) string {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(html); match != nil {
			return match[1]
		}
	}
	return ""
}
