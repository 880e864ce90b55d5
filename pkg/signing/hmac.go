package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// BuildHMACSignature creates an HMAC signature for Level 2 authentication.
// body must be the exact bytes sent on the wire; path must not carry the
// query string.
func BuildHMACSignature(secret string, timestamp int64, method, requestPath, body string) (string, error) {
	decodedSecret, err := decodeSecret(secret)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret: %w", err)
	}

	message := strconv.FormatInt(timestamp, 10) + method + requestPath + body

	h := hmac.New(sha256.New, decodedSecret)
	h.Write([]byte(message))

	return base64.URLEncoding.EncodeToString(h.Sum(nil)), nil
}

// decodeSecret accepts url-safe or standard base64, padded or not
func decodeSecret(secret string) ([]byte, error) {
	s := strings.TrimSpace(secret)
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(s)
}
