package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var (
	ErrShareInvalid = errors.New("invalid share signature")
	ErrShareExpired = errors.New("share link expired")
)

func SignURL(path string, expiresAt int64, secret string) string {
	signature := computeSignature(path, expiresAt, secret)
	return fmt.Sprintf("%s?exp=%d&sig=%s", path, expiresAt, signature)
}

func ValidateSignature(path string, expiresAt int64, signature, secret string) bool {
	expected := computeSignature(path, expiresAt, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ShareService issues expiring links to the ZIP export of a result.
type ShareService struct {
	secret  string
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewShareService(secret, baseURL string, ttl time.Duration) *ShareService {
	return &ShareService{
		secret:  secret,
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
	}
}

func SharedPath(resultID string) string {
	return "/api/shared/" + resultID
}

func (s *ShareService) Generate(resultID string) (string, time.Time) {
	expiresAt := s.now().Add(s.ttl)
	signedPath := SignURL(SharedPath(resultID), expiresAt.Unix(), s.secret)
	return s.baseURL + signedPath, expiresAt
}

// Validate checks the signature first so that a forged link never learns
// whether it would have expired.
func (s *ShareService) Validate(resultID string, expires int64, signature string) error {
	if !ValidateSignature(SharedPath(resultID), expires, signature, s.secret) {
		return ErrShareInvalid
	}
	if s.now().Unix() > expires {
		return ErrShareExpired
	}
	return nil
}

func computeSignature(path string, expiresAt int64, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(fmt.Sprintf("%s:%d", path, expiresAt)))
	sig := h.Sum(nil)
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sig)
}
