package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Credentials select the provider account and hosts. They never change for
// the lifetime of a client.
type Credentials struct {
	PartnerID   string
	SecretKey   string
	Environment Environment
}

// IDTypeSpec is one accepted document for a link.
type IDTypeSpec struct {
	Country            string `json:"country"`
	IDType             string `json:"id_type"`
	VerificationMethod string `json:"verification_method"`
}

// LinkRequest is the caller-supplied part of a link creation call. Zero
// values are replaced with configured defaults.
type LinkRequest struct {
	Name             string         `json:"name,omitempty"`
	CompanyName      string         `json:"company_name,omitempty"`
	IDTypes          []IDTypeSpec   `json:"id_types,omitempty"`
	CallbackURL      string         `json:"callback_url,omitempty"`
	PrivacyPolicyURL string         `json:"data_privacy_policy_url,omitempty"`
	LogoURL          string         `json:"logo_url,omitempty"`
	SingleUse        *bool          `json:"is_single_use,omitempty"`
	UserID           string         `json:"user_id,omitempty"`
	PartnerParams    map[string]any `json:"partner_params,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
}

type LinkResult struct {
	Success         bool             `json:"success"`
	LinkID          string           `json:"link_id,omitempty"`
	PersonalLinkURL string           `json:"personal_link,omitempty"`
	UserID          string           `json:"user_id,omitempty"`
	ExpiresAt       string           `json:"expires_at,omitempty"`
	RawResponse     ProviderResponse `json:"full_response,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// BatchUser is one entry of a batch issuance run.
type BatchUser struct {
	UserID       string         `json:"user_id"`
	Name         string         `json:"name,omitempty"`
	Email        string         `json:"email,omitempty"`
	CompanyName  string         `json:"company_name,omitempty"`
	CallbackURL  string         `json:"callback_url,omitempty"`
	IDTypes      []IDTypeSpec   `json:"id_types,omitempty"`
	CustomParams map[string]any `json:"custom_params,omitempty"`
}

type BatchLinkResult struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	LinkResult
}

// ProviderResponse is a decoded provider JSON object, passed through as-is.
type ProviderResponse map[string]any

// ErrorMessage returns the "error" entry of a failed update or lookup.
func (r ProviderResponse) ErrorMessage() (string, bool) {
	if r == nil {
		return "", false
	}
	value, ok := r["error"]
	if !ok {
		return "", false
	}
	text, _ := value.(string)
	return text, true
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeOther   Outcome = "other"
)

// VerificationRecord is the canonical form of one webhook callback. Field
// spelling variants are already collapsed when a record is built.
type VerificationRecord struct {
	UserID        string         `json:"user_id"`
	JobID         string         `json:"job_id"`
	SmileJobID    string         `json:"smile_job_id,omitempty"`
	JobType       string         `json:"job_type,omitempty"`
	ResultType    string         `json:"result_type,omitempty"`
	ResultCode    string         `json:"result_code,omitempty"`
	ResultText    string         `json:"result_text,omitempty"`
	Confidence    any            `json:"confidence,omitempty"`
	IDType        string         `json:"id_type,omitempty"`
	Country       string         `json:"country,omitempty"`
	IDNumber      string         `json:"id_number,omitempty"`
	PartnerParams map[string]any `json:"partner_params,omitempty"`
	Actions       map[string]any `json:"actions,omitempty"`
	JobTimestamp  string         `json:"timestamp,omitempty"`
	Outcome       Outcome        `json:"outcome"`
	ReceivedAt    time.Time      `json:"received_at"`
	Raw           map[string]any `json:"raw"`
}

// OutcomeSink receives classified verification results. Implementations
// persist or notify; the default one only logs.
type OutcomeSink interface {
	Success(ctx context.Context, record VerificationRecord) error
	Failure(ctx context.Context, record VerificationRecord) error
	Other(ctx context.Context, record VerificationRecord) error
}

// IssuedLink is the stored form of a successfully issued link.
type IssuedLink struct {
	LinkID          string         `json:"link_id"`
	UserID          string         `json:"user_id"`
	PersonalLinkURL string         `json:"personal_link,omitempty"`
	Name            string         `json:"name,omitempty"`
	CallbackURL     string         `json:"callback_url,omitempty"`
	SingleUse       bool           `json:"is_single_use"`
	PartnerParams   map[string]any `json:"partner_params,omitempty"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// LinkRecorder observes every successfully issued link.
type LinkRecorder interface {
	RecordLink(ctx context.Context, result LinkResult, request LinkRequest) error
}

type ReplayLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ReplayReleaser is implemented by ledgers that can drop a claim, letting a
// delivery whose dispatch failed be retried.
type ReplayReleaser interface {
	Release(ctx context.Context, key string) error
}

type TransportRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Query    map[string]string
	Body     []byte
	Metadata map[string]any
	Timeout  time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type InboundRequest struct {
	Surface  string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Outcome    Outcome
	Record     *VerificationRecord
	Metadata   map[string]any
}

type Clock func() time.Time

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type IDGenerator func() string
