package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"strings"
	"time"
)

// ==================== State Token ====================

// StatePayload common fields for signed state tokens.
// Callers embed it and check Expired themselves.
type StatePayload struct {
	ExpiresAt int64 `json:"exp"`
}

// Expired reports whether the payload's expiry has passed
func (p StatePayload) Expired(now time.Time) bool {
	return p.ExpiresAt == 0 || now.Unix() >= p.ExpiresAt
}

func sign(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignState encodes payload as JSON and appends an HMAC-SHA256 signature
func SignState(payload any, secret string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(body) + "." + b64.EncodeToString(sign(body, secret)), nil
}

// VerifyState checks the signature and decodes the payload into out.
// Any malformed input or signature mismatch returns false.
func VerifyState(token string, secret string, out any) bool {
	bodyPart, sigPart, ok := strings.Cut(token, ".")
	if !ok || bodyPart == "" || sigPart == "" || strings.Contains(sigPart, ".") {
		return false
	}

	body, err := b64.DecodeString(bodyPart)
	if err != nil {
		return false
	}
	sig, err := b64.DecodeString(sigPart)
	if err != nil {
		return false
	}

	if !hmac.Equal(sig, sign(body, secret)) {
		return false
	}

	return json.Unmarshal(body, out) == nil
}
