package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Download token validation errors.
var (
	ErrTokenInvalid = errors.New("download token is invalid")
	ErrTokenExpired = errors.New("download token has expired")
)

// DownloadSigner mints and validates HMAC-signed download tokens. A token
// embeds the export id, the expiry and the stored file path, so the server
// needs no download state beyond the signing secret.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer with the provided secret and TTL.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token for the export file at relPath.
func (s *DownloadSigner) Generate(exportID, relPath string) (string, time.Time, error) {
	if exportID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("exportID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	payload := strings.Join([]string{exportID, strconv.FormatInt(expiresAt.Unix(), 10), encodedPath}, ".")
	token := payload + "." + s.sign(payload)
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded metadata. With
// allowExpired set, the expiry check is skipped (used by cleanup routines).
func (s *DownloadSigner) Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	idx := strings.LastIndex(token, ".")
	if idx < 0 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	payload, signature := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(s.sign(payload)), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	parts := strings.Split(payload, ".")
	if len(parts) != 3 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return parts[0], string(rawPath), expiresAt, nil
}

func (s *DownloadSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
