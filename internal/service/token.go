package service

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/reside-hq/reside/internal/config"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/domain/auth"
)

// tokenClaims is the outer JWT claim set. The credential itself travels in
// Body, sealed with the deployment encryption key: the JWT signature proves
// origin, the cipher keeps the payload opaque to the browser.
type tokenClaims struct {
	Body string `json:"body,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs, verifies and seals bearer tokens.
type TokenService struct {
	secret []byte
	aead   cipher.AEAD
	expiry time.Duration
}

// NewTokenService creates a TokenService from the auth configuration.
func NewTokenService(cfg config.Auth) (*TokenService, error) {
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		aead:   aead,
		expiry: cfg.TokenExpiry,
	}, nil
}

// Issue seals cred and wraps it in a signed JWT.
func (s *TokenService) Issue(cred *auth.Credential) (string, error) {
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("marshal credential: %w", err)
	}

	body, err := s.seal(plaintext)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := tokenClaims{
		Body: body,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "reside-core",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the JWT signature and decrypts the embedded credential.
// A verified token without a decryptable body is an INVALID_TOKEN failure:
// it was signed by us but issued for a different surface.
func (s *TokenService) Decode(tokenStr string) (*auth.Credential, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, domain.ErrInvalidToken()
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || claims.Body == "" {
		return nil, domain.ErrInvalidToken()
	}

	plaintext, err := s.open(claims.Body)
	if err != nil {
		return nil, domain.ErrInvalidToken()
	}

	var cred auth.Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, domain.ErrInvalidToken()
	}
	return &cred, nil
}

// seal encrypts plaintext and returns base64(nonce || ciphertext).
func (s *TokenService) seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// open reverses seal.
func (s *TokenService) open(body string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if len(sealed) < s.aead.NonceSize() {
		return nil, errors.New("body too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open body: %w", err)
	}
	return plaintext, nil
}
