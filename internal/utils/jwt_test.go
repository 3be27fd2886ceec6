package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/casino-builder/internal/config"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager("test-secret-key", "casino-builder", time.Hour)
}

// 测试按配置创建
func (suite *JWTTestSuite) TestNewJWTManagerFromConfig() {
	manager := NewJWTManagerFromConfig(config.JWTConfig{Secret: "s", Issuer: "i", ExpireHours: 48})
	suite.Equal(48*time.Hour, manager.GetTokenExpiry())
}

// 测试生成并验证编辑令牌
func (suite *JWTTestSuite) TestGenerateAndValidate() {
	token, err := suite.manager.GenerateEditorToken("casino-1", "alice")
	suite.Require().NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.Require().NoError(err)
	suite.Equal("casino-1", claims.CasinoID)
	suite.Equal("alice", claims.Owner)
	suite.Equal("casino-1", claims.Subject)
	suite.Equal("casino-builder", claims.Issuer)
	suite.WithinDuration(time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

// 测试无效令牌
func (suite *JWTTestSuite) TestValidateInvalid() {
	other := NewJWTManager("another-secret", "casino-builder", time.Hour)
	foreign, err := other.GenerateEditorToken("casino-1", "")
	suite.Require().NoError(err)

	wrongIssuer := NewJWTManager("test-secret-key", "elsewhere", time.Hour)
	issued, err := wrongIssuer.GenerateEditorToken("casino-1", "")
	suite.Require().NoError(err)

	tests := []struct {
		name  string
		token string
	}{
		{"空令牌", ""},
		{"格式错误", "invalid.token.string"},
		{"签名不同", foreign},
		{"签发者不同", issued},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.manager.ValidateToken(tt.token)
			suite.ErrorIs(err, ErrInvalidToken)
		})
	}
}

// 测试过期令牌
func (suite *JWTTestSuite) TestExpiredToken() {
	manager := NewJWTManager("test-secret-key", "casino-builder", -time.Minute)
	token, err := manager.GenerateEditorToken("casino-1", "")
	suite.Require().NoError(err)

	_, err = suite.manager.ValidateToken(token)
	suite.ErrorIs(err, ErrExpiredToken)
}

// 测试非编辑令牌
func (suite *JWTTestSuite) TestRejectsOtherTokenTypes() {
	tests := []struct {
		name   string
		claims EditorClaims
	}{
		{"类型不同", EditorClaims{CasinoID: "casino-1", TokenType: "access"}},
		{"缺少赌场", EditorClaims{TokenType: tokenTypeEditor}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			claims := tt.claims
			claims.Issuer = "casino-builder"
			claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString([]byte("test-secret-key"))
			suite.Require().NoError(err)

			_, err = suite.manager.ValidateToken(token)
			suite.ErrorIs(err, ErrInvalidToken)
		})
	}
}

// 测试签名算法
func (suite *JWTTestSuite) TestRejectsNoneAlgorithm() {
	claims := &EditorClaims{CasinoID: "casino-1", TokenType: tokenTypeEditor}
	claims.Issuer = "casino-builder"
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	suite.Require().NoError(err)

	_, err = suite.manager.ValidateToken(token)
	suite.ErrorIs(err, ErrInvalidToken)
}

// 运行测试套件
func TestJWTTestSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
