package webhooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/afrimobile/go-smileid/core"
)

var (
	// SignatureHeaders are tried in order for the callback signature.
	SignatureHeaders = []string{"x-signature", "signature"}
	// TimestampHeaders are tried in order for the signed timestamp.
	TimestampHeaders = []string{"x-timestamp", "timestamp"}
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// SignatureVerifier recomputes the provider signature from the timestamp
// header. With RequireSignature unset, a request lacking either header is
// accepted unverified.
type SignatureVerifier struct {
	PartnerID        string
	SecretKey        string
	RequireSignature bool
}

func NewSignatureVerifier(creds core.Credentials, requireSignature bool) *SignatureVerifier {
	return &SignatureVerifier{
		PartnerID:        creds.PartnerID,
		SecretKey:        creds.SecretKey,
		RequireSignature: requireSignature,
	}
}

// Credentials returns the signature and timestamp headers, empty when absent.
func (v *SignatureVerifier) Credentials(req core.InboundRequest) (signature string, timestamp string) {
	return firstHeader(req.Headers, SignatureHeaders), firstHeader(req.Headers, TimestampHeaders)
}

// Checks reports whether Verify will actually compare a signature for req.
func (v *SignatureVerifier) Checks(req core.InboundRequest) bool {
	signature, timestamp := v.Credentials(req)
	return signature != "" && timestamp != ""
}

func (v *SignatureVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	if v == nil {
		return fmt.Errorf("webhooks: signature verifier is not configured")
	}
	signature, timestamp := v.Credentials(req)
	if signature == "" || timestamp == "" {
		if v.RequireSignature {
			return core.NewSignatureError("Missing signature")
		}
		return nil
	}
	if !core.VerifySignature(v.SecretKey, timestamp, v.PartnerID, signature) {
		return core.NewSignatureError("Invalid signature")
	}
	return nil
}

func firstHeader(headers map[string]string, names []string) string {
	for _, name := range names {
		if value := headerValue(headers, name); value != "" {
			return value
		}
	}
	return ""
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[key]; ok {
		return strings.TrimSpace(value)
	}
	for candidate, value := range headers {
		if strings.EqualFold(strings.TrimSpace(candidate), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var _ Verifier = (*SignatureVerifier)(nil)
