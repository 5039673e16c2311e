package util

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	TestID    string `json:"test_id,omitempty"`
	CollegeID string `json:"college_id,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenSubject 生成令牌所需的学生信息
type TokenSubject struct {
	StudentID string
	Email     string
	TestID    string
	CollegeID string
}

func GenerateJWT(sub TokenSubject, tokenType, secret string, expiration time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		StudentID: sub.StudentID,
		Email:     sub.Email,
		TestID:    sub.TestID,
		CollegeID: sub.CollegeID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   sub.StudentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseJWT 解析并校验令牌类型
func ParseJWT(tokenString, secret, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, errors.New("unexpected token type")
	}
	return claims, nil
}

func GetStudentFromContext(c *gin.Context) *Claims {
	student, exists := c.Get("student")
	if !exists {
		return nil
	}
	claims, ok := student.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
