package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/utils"
)

// 上下文键
const (
	contextCasinoID = "casinoID"
	contextOwner    = "owner"
	contextToken    = "token"
)

// TokenValidator 验证编辑令牌
type TokenValidator interface {
	ValidateToken(token string) (*utils.EditorClaims, error)
}

// AuthMiddleware 赌场编辑令牌中间件
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireEditor 令牌必须属于路径参数 param 指定的赌场
func (m *AuthMiddleware) RequireEditor(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			AbortWithError(c, apperrors.New(apperrors.ErrAuthentication, "缺少编辑令牌"))
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			code := apperrors.ErrTokenInvalid
			if err == utils.ErrExpiredToken {
				code = apperrors.ErrTokenExpired
			}
			AbortWithError(c, apperrors.Wrap(err, code))
			return
		}

		if claims.CasinoID != c.Param(param) {
			AbortWithError(c, apperrors.New(apperrors.ErrAuthorization, "令牌不属于该赌场"))
			return
		}

		c.Set(contextCasinoID, claims.CasinoID)
		c.Set(contextOwner, claims.Owner)
		c.Set(contextToken, token)

		c.Next()
	}
}

// extractToken 从请求中提取令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// 1. Authorization: Bearer
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. X-Editor-Token
	if token := c.GetHeader("X-Editor-Token"); token != "" {
		return token
	}

	// 3. Cookie
	if token, err := c.Cookie("editor_token"); err == nil && token != "" {
		return token
	}

	return ""
}

// GetCasinoID 从上下文获取令牌对应的赌场ID
func GetCasinoID(c *gin.Context) (string, bool) {
	if casinoID, exists := c.Get(contextCasinoID); exists {
		if id, ok := casinoID.(string); ok {
			return id, true
		}
	}
	return "", false
}

// GetOwner 从上下文获取令牌持有者
func GetOwner(c *gin.Context) (string, bool) {
	if owner, exists := c.Get(contextOwner); exists {
		if o, ok := owner.(string); ok {
			return o, true
		}
	}
	return "", false
}
