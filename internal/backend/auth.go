package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
)

// Claims fixed by the backend's verifier.
const (
	tokenIssuer   = "gitlab"
	tokenAudience = "gitlab-zoekt"

	// TokenLifetime amortizes verification cost on the backend side;
	// tokens are still minted fresh for every outbound call.
	TokenLifetime = 5 * time.Minute
)

// TokenSigner mints short-lived HS256 tokens for backend calls.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner creates a signer from the process-wide shared secret.
func NewTokenSigner(secret string) (*TokenSigner, error) {
	if secret == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "backend shared secret is not configured")
	}
	return &TokenSigner{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// Sign returns a signed token valid for TokenLifetime.
func (s *TokenSigner) Sign() (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(TokenLifetime).Unix(),
		"iss": tokenIssuer,
		"aud": tokenAudience,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.InternalError("signing backend token", err)
	}
	return signed, nil
}

// AuthorizationHeader returns the value of the Authorization header for
// one outbound call.
func (s *TokenSigner) AuthorizationHeader() (string, error) {
	token, err := s.Sign()
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}
