package middleware

import (
	"aptitude_backend/internal/config"
	"aptitude_backend/internal/util"
	"aptitude_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StudentAuthMiddleware 校验学生访问令牌，claims 写入 context 的 "student"
func StudentAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret, util.TokenTypeAccess)
		if err != nil {
			logger.Log.Debug("jwt parse failed", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("student", claims)
		c.Next()
	}
}

// TestScopeMiddleware 令牌绑定了 testId 时，只允许访问该试卷
func TestScopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetStudentFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if testID := c.Param("testId"); claims.TestID != "" && testID != "" && testID != claims.TestID {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
