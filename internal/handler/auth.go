package handler

import (
	"errors"
	"strings"
	"time"

	"tfms/internal/model"
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

// Claims 身份层签发的令牌，核心逻辑只关心其中的主体信息
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) principal() (*model.Principal, error) {
	username := c.Username
	if username == "" {
		username = c.Subject
	}
	role := model.ParseRole(c.Role)
	if username == "" || role == "" {
		return nil, errors.New("token has no username or role")
	}
	return &model.Principal{
		Username: username,
		Role:     role,
		FullName: c.FullName,
		Email:    c.Email,
	}, nil
}

// TokenCodec 签发和校验 HS256 令牌
type TokenCodec struct {
	secret []byte
	issuer string
}

func NewTokenCodec(secret, issuer string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), issuer: issuer}
}

// Issue 给主体签发令牌，用于运维命令和测试
func (t *TokenCodec) Issue(p *model.Principal, ttl time.Duration, now time.Time) (string, error) {
	claims := &Claims{
		Username: p.Username,
		Role:     string(p.Role),
		FullName: p.FullName,
		Email:    p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenCodec) Parse(token string) (*model.Principal, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims.principal()
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthMiddleware 必须携带有效令牌
func AuthMiddleware(codec *TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearer(c)
		if !present {
			response.Unauthenticated(c, "Authorization header required")
			return
		}
		if token == "" {
			response.Unauthenticated(c, "Invalid authorization header format")
			return
		}
		p, err := codec.Parse(token)
		if err != nil {
			response.Unauthenticated(c, "Invalid or expired token")
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// OptionalAuthMiddleware 没有令牌时按匿名处理，令牌无效仍然拒绝
func OptionalAuthMiddleware(codec *TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, present := bearer(c); !present {
			c.Next()
			return
		}
		AuthMiddleware(codec)(c)
	}
}

// principal 未登录时返回 nil
func principal(c *gin.Context) *model.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*model.Principal)
	return p
}
