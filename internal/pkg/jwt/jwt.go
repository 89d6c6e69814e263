package jwt

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	tokenTypeAccess = "access"
	tokenTypeSSE    = "sse"

	sseTokenTTL = 5 * time.Minute
)

type Service interface {
	GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error)
	GenerateSSEToken(actor user.Actor) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (user.Actor, error)
	JWTAuth() *jwtauth.JWTAuth
}

// JWTService verifies tokens issued by the identity service. Access tokens
// carry user_id and role; SSE tokens are short-lived copies for EventSource
// clients that cannot send headers.
type JWTService struct {
	accessTokenTTL time.Duration
	tokenAuth      *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) (Service, error) {
	ttl, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("invalid access token expiration %q: %w", accessTokenExpirationTime, err)
	}
	return &JWTService{
		accessTokenTTL: ttl,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}, nil
}

func (j *JWTService) GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": actor.UserID,
		"role":    string(actor.Role),
		"type":    tokenTypeAccess,
		"exp":     expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(actor user.Actor) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(sseTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": actor.UserID,
		"role":    string(actor.Role),
		"type":    tokenTypeSSE,
		"exp":     expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(sseTokenTTL.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns the actor it was issued to
func (j *JWTService) ValidateSSEToken(tokenString string) (user.Actor, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return user.Actor{}, err
	}

	// Check token type
	tokenType, ok := token.Get("type")
	if !ok || tokenType != tokenTypeSSE {
		return user.Actor{}, jwt.ErrInvalidJWT()
	}

	userIDVal, _ := token.Get("user_id")
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		return user.Actor{}, jwt.ErrInvalidJWT()
	}

	roleVal, _ := token.Get("role")
	roleStr, _ := roleVal.(string)
	role, ok := user.ParseRole(roleStr)
	if !ok {
		return user.Actor{}, jwt.ErrInvalidJWT()
	}

	return user.Actor{UserID: userID, Role: role}, nil
}
