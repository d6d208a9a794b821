package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims carry the subject and, on access tokens, the access level the user
// held when the token was issued. Permissions are still resolved per request.
type Claims struct {
	UserID        uuid.UUID  `json:"user_id"`
	Email         string     `json:"email,omitempty"`
	AccessLevelID *uuid.UUID `json:"access_level_id,omitempty"`
	TokenType     string     `json:"token_type"`

	jwtlib.RegisteredClaims
}

type Subject struct {
	UserID        uuid.UUID
	Email         string
	AccessLevelID *uuid.UUID
}

type Service interface {
	GenerateAccessToken(sub Subject) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (string, error)
	ValidateToken(tokenString string) (Claims, error)
	IsRefreshToken(claims Claims) bool
}

type HMACService struct {
	issuer string

	accessSecret     []byte
	refreshSecret    []byte
	accessExpiresIn  time.Duration
	refreshExpiresIn time.Duration

	now func() time.Time
}

func NewHMACService(issuer, accessSecret, refreshSecret string, accessExpiresIn, refreshExpiresIn time.Duration) *HMACService {
	return &HMACService{
		issuer:           issuer,
		accessSecret:     []byte(accessSecret),
		refreshSecret:    []byte(refreshSecret),
		accessExpiresIn:  accessExpiresIn,
		refreshExpiresIn: refreshExpiresIn,
		now:              time.Now,
	}
}

func (s *HMACService) GenerateAccessToken(sub Subject) (string, error) {
	return s.generate(Claims{
		UserID:        sub.UserID,
		Email:         sub.Email,
		AccessLevelID: sub.AccessLevelID,
		TokenType:     TokenTypeAccess,
	})
}

func (s *HMACService) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	return s.generate(Claims{UserID: userID, TokenType: TokenTypeRefresh})
}

// ValidateToken accepts either token type. Access and refresh tokens are
// signed with different secrets, so the type claim is only trusted after the
// matching secret verified the signature.
func (s *HMACService) ValidateToken(tokenString string) (Claims, error) {
	var expired bool
	for _, tokenType := range []string{TokenTypeAccess, TokenTypeRefresh} {
		secret, _, err := s.secretAndExpiry(tokenType)
		if err != nil {
			continue
		}
		c, err := s.parse(tokenString, secret)
		if err == nil {
			if c.TokenType != tokenType {
				return Claims{}, ErrTokenInvalid
			}
			return c, nil
		}
		if errors.Is(err, ErrTokenExpired) {
			expired = true
		}
	}

	if expired {
		return Claims{}, ErrTokenExpired
	}
	return Claims{}, ErrTokenInvalid
}

func (s *HMACService) IsRefreshToken(claims Claims) bool {
	return claims.TokenType == TokenTypeRefresh
}

func (s *HMACService) generate(c Claims) (string, error) {
	secret, expIn, err := s.secretAndExpiry(c.TokenType)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	c.RegisteredClaims = jwtlib.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   c.UserID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(expIn)),
	}

	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c)
	return t.SignedString(secret)
}

func (s *HMACService) parse(tokenString string, secret []byte) (Claims, error) {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}

	var c Claims
	tok, err := jwtlib.NewParser(opts...).ParseWithClaims(tokenString, &c, func(token *jwtlib.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid || c.UserID == uuid.Nil {
		return Claims{}, ErrTokenInvalid
	}
	return c, nil
}

func (s *HMACService) secretAndExpiry(tokenType string) ([]byte, time.Duration, error) {
	switch tokenType {
	case TokenTypeAccess:
		if len(s.accessSecret) == 0 || s.accessExpiresIn <= 0 {
			return nil, 0, ErrTokenInvalid
		}
		return s.accessSecret, s.accessExpiresIn, nil
	case TokenTypeRefresh:
		if len(s.refreshSecret) == 0 || s.refreshExpiresIn <= 0 {
			return nil, 0, ErrTokenInvalid
		}
		return s.refreshSecret, s.refreshExpiresIn, nil
	default:
		return nil, 0, ErrTokenInvalid
	}
}
