package utils

import (
	"errors"
	"fmt"
	"time"

	"layercast/models"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidIssuer    = errors.New("invalid issuer")
)

// VerifyConfig selects the keys and registered claims a merge token is
// checked against. At least one of SecretKey (HS256) or PublicKey (RS256,
// *rsa.PublicKey) must be set.
type VerifyConfig struct {
	SecretKey      []byte
	PublicKey      any
	ExpectedIssuer string        // empty accepts any issuer
	ClockSkew      time.Duration // leeway for exp, nbf and iat
}

func (c VerifyConfig) key() (any, []jose.SignatureAlgorithm, error) {
	switch {
	case c.SecretKey != nil:
		return c.SecretKey, []jose.SignatureAlgorithm{jose.HS256}, nil
	case c.PublicKey != nil:
		return c.PublicKey, []jose.SignatureAlgorithm{jose.RS256}, nil
	}
	return nil, nil, errors.New("no verification key provided")
}

// mergeBody is the private claim carrying the run description.
type mergeBody struct {
	Merge models.MergeSpec `json:"merge"`
}

// VerifyMergeJWT checks a merge token's signature and registered claims and
// returns its claims. A token without exp never expires.
func VerifyMergeJWT(tokenString string, cfg VerifyConfig) (*models.MergeJWT, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	key, algs, err := cfg.key()
	if err != nil {
		return nil, err
	}

	tok, err := jwt.ParseSigned(tokenString, algs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var std jwt.Claims
	var body mergeBody
	if err := tok.Claims(key, &std, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	expected := jwt.Expected{Issuer: cfg.ExpectedIssuer, Time: time.Now()}
	if err := std.ValidateWithLeeway(expected, cfg.ClockSkew); err != nil {
		return nil, claimError(err, cfg.ExpectedIssuer, std.Issuer)
	}

	return &models.MergeJWT{
		Issuer:    std.Issuer,
		Subject:   std.Subject,
		IssuedAt:  unixOrZero(std.IssuedAt),
		ExpiresAt: unixOrZero(std.Expiry),
		Merge:     body.Merge,
	}, nil
}

// claimError maps go-jose validation errors onto the package errors.
func claimError(err error, wantIssuer, gotIssuer string) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrNotValidYet), errors.Is(err, jwt.ErrIssuedInTheFuture):
		return ErrTokenNotYetValid
	case errors.Is(err, jwt.ErrInvalidIssuer):
		return fmt.Errorf("%w: expected '%s', got '%s'", ErrInvalidIssuer, wantIssuer, gotIssuer)
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}

func unixOrZero(d *jwt.NumericDate) int64 {
	if d == nil {
		return 0
	}
	return d.Time().Unix()
}

// CreateMergeJWT signs claims with HS256. Zero iat and exp are left out of
// the token.
func CreateMergeJWT(claims *models.MergeJWT, secret []byte) (string, error) {
	if claims == nil {
		return "", errors.New("claims cannot be nil")
	}
	if len(secret) < 32 {
		return "", errors.New("HS256 secret must be at least 32 bytes")
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: secret}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}

	std := jwt.Claims{Issuer: claims.Issuer, Subject: claims.Subject}
	if claims.IssuedAt != 0 {
		std.IssuedAt = jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0))
	}
	if claims.ExpiresAt != 0 {
		std.Expiry = jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0))
	}

	token, err := jwt.Signed(signer).Claims(std).Claims(mergeBody{Merge: claims.Merge}).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to create JWT: %w", err)
	}
	return token, nil
}
