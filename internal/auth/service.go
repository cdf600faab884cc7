package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/trip-expense/internal"
)

type Service struct {
	tokens TokenGenerator
}

func NewService(tokens TokenGenerator) *Service {
	return &Service{tokens: tokens}
}

// NewJWTTokenGenerator signs HS256 tokens with a single shared secret.
func NewJWTTokenGenerator(secret, issuer string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		Issuer:         issuer,
		AccessTokenTTL: ttl,
		now:            time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating tokens.
func (j *JWTTokenGenerator) WithClock(now func() time.Time) *JWTTokenGenerator {
	j.now = now
	return j
}

// IssueToken mints an access token for userID. The server never authenticates users itself; the
// token command and tests use this.
func (s *Service) IssueToken(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", internal.NewValidationFieldError("user", "user id is required", internal.ErrCodeValidationFailed)
	}
	token, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return "", internal.NewInternalError("failed to sign token", err)
	}
	return token, nil
}

// Authenticate returns the actor id carried by a bearer token.
func (s *Service) Authenticate(tokenString string) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", internal.ErrMissingToken
	}
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, errTokenExpired) {
			return "", internal.ErrTokenExpired.WithCause(err)
		}
		return "", internal.ErrInvalidToken.WithCause(err)
	}
	if claims.UserID == "" {
		return "", internal.ErrInvalidToken
	}
	return claims.UserID, nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID string) (string, error) {
	if len(j.Secret) == 0 {
		return "", errNoSecret
	}
	now := j.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	if len(j.Secret) == 0 {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, errNoSecret)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", errTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errInvalidToken
}
