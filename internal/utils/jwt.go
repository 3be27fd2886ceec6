package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wfunc/casino-builder/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// tokenTypeEditor 赌场编辑令牌
const tokenTypeEditor = "editor"

// EditorClaims 赌场编辑令牌的Claims
type EditorClaims struct {
	CasinoID  string `json:"casino_id"`
	Owner     string `json:"owner,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey string
	issuer    string
	expiry    time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey, issuer string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: secretKey,
		issuer:    issuer,
		expiry:    expiry,
	}
}

// NewJWTManagerFromConfig 按配置创建
func NewJWTManagerFromConfig(cfg config.JWTConfig) *JWTManager {
	return NewJWTManager(cfg.Secret, cfg.Issuer, time.Duration(cfg.ExpireHours)*time.Hour)
}

// GenerateEditorToken 生成赌场编辑令牌
func (j *JWTManager) GenerateEditorToken(casinoID, owner string) (string, error) {
	now := time.Now()

	claims := &EditorClaims{
		CasinoID:  casinoID,
		Owner:     owner,
		TokenType: tokenTypeEditor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   casinoID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ValidateToken 验证编辑令牌
func (j *JWTManager) ValidateToken(tokenString string) (*EditorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &EditorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(j.secretKey), nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*EditorClaims)
	if !ok || !token.Valid || claims.TokenType != tokenTypeEditor || claims.CasinoID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetTokenExpiry 令牌有效期
func (j *JWTManager) GetTokenExpiry() time.Duration {
	return j.expiry
}
