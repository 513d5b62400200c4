package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/goliatone/go-errors"
)

// DefaultTokenExpiration matches the lifetime used by the browser clients
const DefaultTokenExpiration = 7 * 24 * time.Hour

// DefaultImpersonationExpiration bounds impersonated sessions
const DefaultImpersonationExpiration = 2 * time.Hour

// TokenServiceImpl issues and checks HS256 session tokens
type TokenServiceImpl struct {
	signingKey              []byte
	tokenExpiration         time.Duration
	impersonationExpiration time.Duration
	issuer                  string
	audience                jwt.ClaimStrings
	logger                  Logger
	now                     func() time.Time
}

// NewTokenService falls back to DefaultTokenExpiration when tokenExpiration is not positive
func NewTokenService(signingKey []byte, tokenExpiration time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}
	return &TokenServiceImpl{
		signingKey:              signingKey,
		tokenExpiration:         tokenExpiration,
		impersonationExpiration: DefaultImpersonationExpiration,
		issuer:                  issuer,
		audience:                audience,
		logger:                  logger,
		now:                     time.Now,
	}
}

// WithImpersonationExpiration sets the lifetime of impersonation tokens
func (ts *TokenServiceImpl) WithImpersonationExpiration(d time.Duration) *TokenServiceImpl {
	if d > 0 {
		ts.impersonationExpiration = d
	}
	return ts
}

// WithClock overrides the time source
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Generate creates a regular session token for identity
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	return ts.SignClaims(ts.claims(identity, ts.tokenExpiration))
}

// GenerateImpersonation creates a token for identity on behalf of adminID
func (ts *TokenServiceImpl) GenerateImpersonation(identity Identity, adminID string) (string, error) {
	if adminID == "" {
		return "", errors.New("impersonation requires an admin id", errors.CategoryInternal)
	}
	claims := ts.claims(identity, ts.impersonationExpiration)
	claims.ImpersonatedBy = adminID
	return ts.SignClaims(claims)
}

func (ts *TokenServiceImpl) claims(identity Identity, ttl time.Duration) *JWTClaims {
	now := ts.now()
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}
}

// SignClaims signs claims with HS256
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate checks signature, expiry, issuer and audience. Expired tokens map
// to ErrTokenExpired, everything else to ErrTokenMalformed.
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	// tokens carry every configured audience, requiring the first is enough
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token signed with unexpected method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		ts.logger.Error("token claims missing user id")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

var _ TokenService = (*TokenServiceImpl)(nil)
