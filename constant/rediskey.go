package constant

import (
	"fmt"
	"time"
)

// 常量定义
const (
	BasePrefix = "link:"
	Separator  = ":"
)

// Redis 键模板
const (
	LinkCache   = BasePrefix + "cache" + Separator + "%s"  // link:cache:shortId
	DailyClicks = BasePrefix + "clicks" + Separator + "%s" // link:clicks:yyyyMMdd（hash，field 为 shortId）
)

// GetLinkCacheKey 生成短链缓存 key
func GetLinkCacheKey(shortID string) string {
	return fmt.Sprintf(LinkCache, shortID)
}

// GetDateKey 生成当前日期的键（格式：yyyyMMdd）
func GetDateKey() string {
	return time.Now().Format("20060102") // Go 中日期格式规则：2006-01-02
}

// GetDailyClicksKey 生成每日点击计数键（格式：link:clicks:yyyyMMdd）
func GetDailyClicksKey(date string) string {
	return fmt.Sprintf(DailyClicks, date)
}
