package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"
)

func TestSign_MatchesOrderedHMACRecipe(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret-key"))
	mac.Write([]byte("2026-02-13T12:00:00.000Z"))
	mac.Write([]byte("7790"))
	mac.Write([]byte("sid_request"))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	signature, err := Sign("secret-key", "2026-02-13T12:00:00.000Z", "7790")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signature != expected {
		t.Fatalf("expected %q, got %q", expected, signature)
	}
}

func TestSign_VerifyRoundTrip(t *testing.T) {
	cases := []struct {
		secret    string
		timestamp string
		partner   string
	}{
		{"secret-key", "2026-02-13T12:00:00.000Z", "7790"},
		{"another", "2025-01-01T00:00:00.000Z", ""},
		{"k", "t", "p"},
	}
	for _, tc := range cases {
		signature, err := Sign(tc.secret, tc.timestamp, tc.partner)
		if err != nil {
			t.Fatalf("sign %+v: %v", tc, err)
		}
		if !VerifySignature(tc.secret, tc.timestamp, tc.partner, signature) {
			t.Fatalf("expected signature to verify for %+v", tc)
		}
	}
}

func TestSign_ChangesWithEachInput(t *testing.T) {
	base, _ := Sign("secret-key", "2026-02-13T12:00:00.000Z", "7790")
	variants := map[string][3]string{
		"secret":    {"other-key", "2026-02-13T12:00:00.000Z", "7790"},
		"timestamp": {"secret-key", "2026-02-13T12:00:01.000Z", "7790"},
		"partner":   {"secret-key", "2026-02-13T12:00:00.000Z", "7791"},
	}
	for name, input := range variants {
		signature, err := Sign(input[0], input[1], input[2])
		if err != nil {
			t.Fatalf("sign %s variant: %v", name, err)
		}
		if signature == base {
			t.Fatalf("expected %s change to alter the signature", name)
		}
	}
}

func TestVerifySignature_FalseOnMismatch(t *testing.T) {
	signature, _ := Sign("secret-key", "2026-02-13T12:00:00.000Z", "7790")
	if VerifySignature("secret-key", "2026-02-13T12:00:00.000Z", "7790", signature+"x") {
		t.Fatalf("expected tampered signature to fail")
	}
	if VerifySignature("secret-key", "2026-02-13T12:00:00.000Z", "7790", "not-base64") {
		t.Fatalf("expected garbage signature to fail")
	}
	if VerifySignature("", "2026-02-13T12:00:00.000Z", "7790", signature) {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestSign_RejectsMissingSecretOrTimestamp(t *testing.T) {
	if _, err := Sign("", "2026-02-13T12:00:00.000Z", "7790"); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := Sign("secret-key", " ", "7790"); err == nil {
		t.Fatalf("expected error for empty timestamp")
	}
}

func TestNewSignedEnvelope_FormatsTimestamp(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	envelope, err := NewSignedEnvelope(Credentials{PartnerID: "7790", SecretKey: "secret-key"}, now)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	if envelope.Timestamp != "2026-02-13T12:00:00.000Z" {
		t.Fatalf("unexpected timestamp %q", envelope.Timestamp)
	}
	if !VerifySignature("secret-key", envelope.Timestamp, "7790", envelope.Signature) {
		t.Fatalf("expected envelope signature to verify")
	}
	fields := envelope.Fields()
	if fields["partner_id"] != "7790" || fields["signature"] != envelope.Signature {
		t.Fatalf("unexpected envelope fields %#v", fields)
	}
}
