package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sniply-go/internal/apperrors"
	"sniply-go/internal/model"
	"sniply-go/internal/repository"
	"sniply-go/pkg/logging"
)

// setupTestDB 用内存 sqlite 初始化全局依赖
// RedisPool 留空，缓存路径在测试中自动退化为直查数据库
func setupTestDB(t *testing.T) {
	t.Helper()

	initTestLogging()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open in-memory sqlite")

	// 单连接串行化写入，内存库在并发下表现稳定
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Link{}, &model.DailyStat{}))

	repository.DB = db
	repository.RedisPool = nil
}

var loggingOnce sync.Once

func initTestLogging() {
	loggingOnce.Do(func() {
		logging.Logger = zap.NewNop()
		zap.ReplaceGlobals(logging.Logger)
	})
}

func strPtr(s string) *string { return &s }

func TestCreateLinkNormalizesURL(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	link, err := CreateLink(ctx, "example.com", strPtr("user-1"))
	require.NoError(t, err)

	assert.Equal(t, "http://example.com", link.OriginalURL)
	assert.Len(t, link.ShortID, 6)
	assert.Equal(t, int64(0), link.Clicks)
	require.NotNil(t, link.UserID)
	assert.Equal(t, "user-1", *link.UserID)
}

func TestCreateLinkAnonymous(t *testing.T) {
	setupTestDB(t)

	link, err := CreateLink(context.Background(), "https://example.com", nil)
	require.NoError(t, err)
	assert.Nil(t, link.UserID)
}

func TestCreateLinkRejectsInvalidURL(t *testing.T) {
	setupTestDB(t)

	_, err := CreateLink(context.Background(), "not a url", strPtr("user-1"))
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
}

func TestListUserLinksNewestFirst(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	older, err := CreateLink(ctx, "https://example.com/old", strPtr("user-1"))
	require.NoError(t, err)
	newer, err := CreateLink(ctx, "https://example.com/new", strPtr("user-1"))
	require.NoError(t, err)
	_, err = CreateLink(ctx, "https://example.com/other", strPtr("user-2"))
	require.NoError(t, err)

	// 拉开创建时间，保证排序可断言
	require.NoError(t, repository.DB.Model(&model.Link{}).Where("id = ?", older.ID).
		Update("created_at", older.CreatedAt.Add(-time.Hour)).Error)

	links, err := ListUserLinks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, newer.ShortID, links[0].ShortID)
	assert.Equal(t, older.ShortID, links[1].ShortID)
}

func TestListUserLinksEmpty(t *testing.T) {
	setupTestDB(t)

	links, err := ListUserLinks(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDeleteLinkOwnerScoped(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	link, err := CreateLink(ctx, "https://example.com", strPtr("user-1"))
	require.NoError(t, err)

	// 其他用户删除必须报 404，且记录保持原样
	err = DeleteLink(ctx, link.ID, "user-2")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Code)

	var count int64
	require.NoError(t, repository.DB.Model(&model.Link{}).Where("id = ?", link.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 属主删除成功
	require.NoError(t, DeleteLink(ctx, link.ID, "user-1"))
	require.NoError(t, repository.DB.Model(&model.Link{}).Where("id = ?", link.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDeleteLinkAbsent(t *testing.T) {
	setupTestDB(t)

	err := DeleteLink(context.Background(), 9999, "user-1")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestResolveShortLink(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	link, err := CreateLink(ctx, "https://example.com", nil)
	require.NoError(t, err)

	resolved, ok := ResolveShortLink(ctx, link.ShortID)
	require.True(t, ok)
	assert.Equal(t, link.OriginalURL, resolved.OriginalURL)

	_, ok = ResolveShortLink(ctx, "Zz9Zz9")
	assert.False(t, ok)

	// 非法形态的 ID 不触发查询
	_, ok = ResolveShortLink(ctx, "../etc")
	assert.False(t, ok)
}

func TestIncrementClicksConcurrent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	link, err := CreateLink(ctx, "https://example.com", nil)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := IncrementClicks(link.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var reloaded model.Link
	require.NoError(t, repository.DB.First(&reloaded, link.ID).Error)
	assert.Equal(t, int64(n), reloaded.Clicks, "no lost updates under concurrent increments")
	assert.False(t, reloaded.UpdatedAt.Before(link.UpdatedAt))

	count, err := IncrementClicks(link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), count)
}
