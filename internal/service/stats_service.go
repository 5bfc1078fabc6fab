package service

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sniply-go/constant"
	"sniply-go/internal/apperrors"
	"sniply-go/internal/i18n"
	"sniply-go/internal/model"
	"sniply-go/internal/repository"
	"sniply-go/pkg/logging"
)

// RecordDailyClick 在 Redis 中累加当日点击数
// 数据库 clicks 列才是总数的权威来源，这里只存按天的计数
func RecordDailyClick(conn redis.Conn, shortID string) {
	dailyKey := constant.GetDailyClicksKey(constant.GetDateKey())

	_, err := conn.Do("HINCRBY", dailyKey, shortID, 1)
	if err != nil {
		logging.Logger.Error("Failed to record daily clicks",
			zap.String("key", dailyKey),
			zap.String("short_id", shortID),
			zap.Error(err))
	}

	_, err = conn.Do("EXPIRE", dailyKey, 3*24*3600) // 3天过期
	if err != nil {
		logging.Logger.Error("Failed to record daily clicks expire",
			zap.String("key", dailyKey),
			zap.String("short_id", shortID),
			zap.Error(err))
	}
}

// GetDailyClicks 获取某短链某日的点击数
func GetDailyClicks(conn redis.Conn, shortID string, dateKey string) (int64, error) {
	dailyKey := constant.GetDailyClicksKey(dateKey)

	reply, err := conn.Do("HGET", dailyKey, shortID)
	if err != nil {
		logging.Logger.Error("Failed to get daily clicks",
			zap.String("key", dailyKey),
			zap.String("short_id", shortID),
			zap.Error(err))
		return 0, err
	}
	if reply == nil {
		return 0, nil
	}

	result, err := redis.Int64(reply, err)
	if err != nil {
		logging.Logger.Error("Failed to parse daily clicks",
			zap.String("key", dailyKey),
			zap.String("short_id", shortID),
			zap.Error(err))
		return 0, err
	}

	return result, nil
}

// SyncDailyStats 定时任务：把 Redis 中当日的点击计数落库到 daily_stats
func SyncDailyStats() error {
	logging.Logger.Info("SyncDailyStats start")
	var links []model.Link
	if err := repository.DB.Find(&links).Error; err != nil {
		logging.Logger.Error("获取短链列表失败", zap.Error(err))
		return err
	}

	today := time.Now().Format("2006-01-02")
	dateKey := constant.GetDateKey()
	for _, link := range links {
		doSyncDailyStat(link, today, dateKey)
	}

	logging.Logger.Info("SyncDailyStats end")
	return nil
}

func doSyncDailyStat(link model.Link, today string, dateKey string) {
	conn := repository.RedisPool.Get()
	defer closeRedisConn(conn)

	dailyClicks, err := GetDailyClicks(conn, link.ShortID, dateKey)
	if err != nil || dailyClicks == 0 {
		return
	}

	dailyStat := &model.DailyStat{
		LinkID: link.ID,
		Date:   today,
		Clicks: dailyClicks,
	}

	db := repository.DB.Where("link_id = ? AND date = ?", link.ID, today).
		Assign("clicks", dailyClicks).
		FirstOrCreate(dailyStat)

	if db.Error != nil {
		logging.Logger.Error("Failed to insert or update daily stat",
			zap.Uint("link_id", link.ID),
			zap.String("date", today),
			zap.Int64("clicks", dailyClicks),
			zap.Error(db.Error),
		)
	}
}

// GetStatsByLinkID 获取短链的按天统计，仅限属主访问
// 记录不存在或属于其他用户时统一返回 404
func GetStatsByLinkID(ctx context.Context, id uint, userID string) ([]model.DailyStat, error) {
	var link model.Link
	if err := repository.DB.Where("id = ? AND user_id = ?", id, userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundError(i18n.T(ctx, "error.link_not_found", nil))
		}
		return nil, apperrors.SystemErrorDefault()
	}

	stats := make([]model.DailyStat, 0)
	if err := repository.DB.Where("link_id = ?", link.ID).Order("date DESC").Find(&stats).Error; err != nil {
		return nil, apperrors.SystemErrorDefault()
	}
	return stats, nil
}
