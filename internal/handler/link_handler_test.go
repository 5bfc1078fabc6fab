package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sniply-go/internal/model"
	"sniply-go/internal/repository"
	"sniply-go/pkg/logging"
)

func setupRedirectRouter(t *testing.T) *gin.Engine {
	t.Helper()

	logging.Logger = zap.NewNop()
	zap.ReplaceGlobals(logging.Logger)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Link{}, &model.DailyStat{}))

	repository.DB = db
	repository.RedisPool = nil

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(RedirectHandler)
	return r
}

func TestRedirectKnownCode(t *testing.T) {
	r := setupRedirectRouter(t)

	link := &model.Link{ShortID: "Zz9Xy8", OriginalURL: "https://example.com/page"}
	require.NoError(t, repository.DB.Create(link).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/Zz9Xy8", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/page", w.Header().Get("Location"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	// 点击计数在响应前完成
	var reloaded model.Link
	require.NoError(t, repository.DB.First(&reloaded, link.ID).Error)
	assert.Equal(t, int64(1), reloaded.Clicks)
}

func TestRedirectUnknownCode(t *testing.T) {
	r := setupRedirectRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/Zz9Xy8", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirectLegacySchemelessTarget(t *testing.T) {
	r := setupRedirectRouter(t)

	// 历史数据：入库时没有协议前缀，跳转时补 https://
	link := &model.Link{ShortID: "Ww7Vu6", OriginalURL: "example.com/old"}
	require.NoError(t, repository.DB.Create(link).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/Ww7Vu6", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/old", w.Header().Get("Location"))
}

func TestRedirectIgnoresNonGet(t *testing.T) {
	r := setupRedirectRouter(t)

	link := &model.Link{ShortID: "Tt5Ss4", OriginalURL: "https://example.com"}
	require.NoError(t, repository.DB.Create(link).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/Tt5Ss4", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
