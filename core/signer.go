package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"
)

// SignatureSuffix is the fixed literal fed last into every request signature.
const SignatureSuffix = "sid_request"

// TimestampLayout is the ISO-8601 UTC form sent alongside each signature.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Sign computes base64(HMAC-SHA256(secretKey, timestamp | partnerID | "sid_request")).
// The three chunks are written in that order and must not be reordered.
func Sign(secretKey, timestamp, partnerID string) (string, error) {
	if secretKey == "" {
		return "", NewConfigError("core: signing secret is required", "api_key")
	}
	if strings.TrimSpace(timestamp) == "" {
		return "", NewConfigError("core: signing timestamp is required", "timestamp")
	}
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(partnerID))
	mac.Write([]byte(SignatureSuffix))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature reports whether candidate matches the signature for the
// given timestamp and partner. Malformed inputs yield false.
func VerifySignature(secretKey, timestamp, partnerID, candidate string) bool {
	expected, err := Sign(secretKey, timestamp, partnerID)
	if err != nil || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}

// SignedEnvelope carries the authentication fields every outbound call sends.
type SignedEnvelope struct {
	PartnerID string
	Signature string
	Timestamp string
}

func NewSignedEnvelope(creds Credentials, now time.Time) (SignedEnvelope, error) {
	timestamp := FormatTimestamp(now)
	signature, err := Sign(creds.SecretKey, timestamp, creds.PartnerID)
	if err != nil {
		return SignedEnvelope{}, err
	}
	return SignedEnvelope{
		PartnerID: creds.PartnerID,
		Signature: signature,
		Timestamp: timestamp,
	}, nil
}

// Fields returns the envelope keyed by provider field names.
func (e SignedEnvelope) Fields() map[string]any {
	return map[string]any{
		"partner_id": e.PartnerID,
		"signature":  e.Signature,
		"timestamp":  e.Timestamp,
	}
}

func (e SignedEnvelope) Query() map[string]string {
	return map[string]string{
		"partner_id": e.PartnerID,
		"signature":  e.Signature,
		"timestamp":  e.Timestamp,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
