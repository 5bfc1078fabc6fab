package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sniply-go/constant"
	"sniply-go/internal/apperrors"
	"sniply-go/internal/i18n"
	"sniply-go/internal/model"
	"sniply-go/internal/repository"
	"sniply-go/internal/shortid"
	"sniply-go/pkg/logging"
	"sniply-go/pkg/utils"
)

// CreateLink 创建短链，userID 为 nil 表示匿名创建
func CreateLink(ctx context.Context, rawURL string, userID *string) (*model.Link, error) {
	normalizedURL, err := utils.NormalizeURL(rawURL)
	if err != nil {
		return nil, apperrors.InvalidRequestError(i18n.T(ctx, err.Error(), nil))
	}

	// 生成短链 ID：抽取 + 唯一性探测，碰撞重抽
	generator := shortid.New()
	shortID, err := generator.Generate(func(id string) (bool, error) {
		var count int64
		if err := repository.DB.Model(&model.Link{}).Where("short_id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
	if err != nil {
		if errors.Is(err, shortid.ErrExhausted) {
			logging.Logger.Error("Short ID generation exhausted",
				zap.Int("max_attempts", shortid.MaxAttempts))
			return nil, apperrors.SystemError(i18n.T(ctx, "error.shortid_exhausted", nil))
		}
		logging.Logger.Error("Short ID generation failed", zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	link := &model.Link{
		ShortID:     shortID,
		OriginalURL: normalizedURL,
		UserID:      userID,
	}

	// 数据库持久化；生成与插入之间的残余竞争由 short_id 唯一约束兜底
	if err := repository.DB.Create(link).Error; err != nil {
		logging.Logger.Error("数据库操作失败",
			zap.String("short_id", shortID),
			zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	return link, nil
}

// ListUserLinks 查询用户的短链列表，按创建时间倒序
func ListUserLinks(ctx context.Context, userID string) ([]model.Link, error) {
	links := make([]model.Link, 0)
	if err := repository.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&links).Error; err != nil {
		logging.Logger.Error("查询短链列表失败",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return links, nil
}

// DeleteLink 删除用户自己的短链
// 记录不存在或属于其他用户时统一返回 404，不暴露存在性
func DeleteLink(ctx context.Context, id uint, userID string) error {
	var link model.Link
	if err := repository.DB.Where("id = ? AND user_id = ?", id, userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFoundError(i18n.T(ctx, "error.link_not_found", nil))
		}
		logging.Logger.Error("查询短链失败",
			zap.Uint("id", id),
			zap.Error(err))
		return apperrors.SystemErrorDefault()
	}

	if err := repository.DB.Delete(&model.Link{}, link.ID).Error; err != nil {
		logging.Logger.Error("删除短链失败",
			zap.Uint("id", link.ID),
			zap.Error(err))
		return apperrors.SystemErrorDefault()
	}

	// 删除后清掉跳转缓存，避免已删除的短链在 TTL 内继续跳转
	deleteLinkCache(link.ShortID)
	return nil
}

// ResolveShortLink 解析短链 ID，优先读缓存，未命中回源数据库
func ResolveShortLink(ctx context.Context, shortID string) (*model.Link, bool) {
	if !shortid.IsValid(shortID) {
		return nil, false
	}

	if link, hit, found := getLinkFromCache(shortID); hit {
		return link, found
	}

	// 缓存未命中，从数据库查询
	var link model.Link
	if err := repository.DB.Where("short_id = ?", shortID).First(&link).Error; err != nil {
		// 缓存空值，防止缓存穿透
		setLinkCache(shortID, nil)
		return nil, false
	}

	setLinkCache(shortID, &link)
	return &link, true
}

// IncrementClicks 原子自增点击计数并刷新更新时间，返回自增后的计数
// 自增在单条 SQL 内完成读改写，并发跳转下不会丢失计数
// 返回值是自增后的一次独立读取，跳转并发时可能已包含其他请求的自增
func IncrementClicks(id uint) (int64, error) {
	if err := repository.DB.Model(&model.Link{}).
		Where("id = ?", id).
		Update("clicks", gorm.Expr("clicks + ?", 1)).Error; err != nil {
		return 0, err
	}

	var clicks int64
	if err := repository.DB.Model(&model.Link{}).
		Where("id = ?", id).
		Pluck("clicks", &clicks).Error; err != nil {
		return 0, err
	}
	return clicks, nil
}

// getLinkFromCache 查询跳转缓存
// 返回值：记录、是否命中缓存、命中时记录是否存在（空值缓存表示不存在）
func getLinkFromCache(shortID string) (*model.Link, bool, bool) {
	if repository.RedisPool == nil {
		return nil, false, false
	}

	conn := repository.RedisPool.Get()
	defer closeRedisConn(conn)

	cacheKey := constant.GetLinkCacheKey(shortID)
	cachedValue, err := redis.Bytes(conn.Do("GET", cacheKey))
	if err != nil {
		if err != redis.ErrNil {
			logging.Logger.Warn("Error getting from Redis",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		}
		return nil, false, false
	}

	if len(cachedValue) == 0 {
		return nil, true, false
	}

	var link model.Link
	if err := json.Unmarshal(cachedValue, &link); err != nil {
		logging.Logger.Warn("Failed to unmarshal cached value",
			zap.String("cache_key", cacheKey),
			zap.Error(err))
		return nil, false, false
	}
	return &link, true, true
}

// setLinkCache 写入跳转缓存；link 为 nil 时缓存空值（300 秒），否则缓存 1 小时
func setLinkCache(shortID string, link *model.Link) {
	if repository.RedisPool == nil {
		return
	}

	conn := repository.RedisPool.Get()
	defer closeRedisConn(conn)

	cacheKey := constant.GetLinkCacheKey(shortID)

	if link == nil {
		if _, err := conn.Do("SET", cacheKey, "", "EX", 300); err != nil {
			logging.Logger.Error("设置缓存失败",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		}
		return
	}

	cachedValue, _ := json.Marshal(link)
	if _, err := conn.Do("SET", cacheKey, cachedValue, "EX", 3600); err != nil {
		logging.Logger.Error("设置缓存失败",
			zap.String("cache_key", cacheKey),
			zap.Error(err))
	}
}

func deleteLinkCache(shortID string) {
	if repository.RedisPool == nil {
		return
	}

	conn := repository.RedisPool.Get()
	defer closeRedisConn(conn)

	cacheKey := constant.GetLinkCacheKey(shortID)
	if _, err := conn.Do("DEL", cacheKey); err != nil {
		logging.Logger.Warn("Redis 删除缓存失败",
			zap.String("cache_key", cacheKey),
			zap.Error(err))
	}
}

func closeRedisConn(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		logging.Logger.Error("Failed to close Redis connection",
			zap.Error(err),
			zap.String("operation", "close"),
			zap.String("connection_type", "redis"),
		)
	}
}
