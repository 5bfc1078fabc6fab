package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"

	"sniply-go/response"
)

// ContextUserIDKey 认证通过后用户 ID 在 gin Context 中的键
const ContextUserIDKey = "userID"

// RequireAuth 校验 Bearer Token，通过后把 userId 写入 Context
// 凭证的签发不在本服务内，这里只做验证
func RequireAuth() gin.HandlerFunc {
	secret := []byte(viper.GetString("auth.jwt_secret"))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Unauthorized"))
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		userID, err := parseUserID(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Unauthorized"))
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func parseUserID(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}

	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("missing userId claim")
	}

	return userID, nil
}

// CurrentUserID 读取认证中间件写入的用户 ID，未认证请求返回 nil
func CurrentUserID(c *gin.Context) *string {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return nil
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		return nil
	}
	return &userID
}
