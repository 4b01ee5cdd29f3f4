package sqlstore

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/afrimobile/go-smileid/core"
	"github.com/uptrace/bun"
)

type linkRecord struct {
	bun.BaseModel `bun:"table:smileid_links,alias:sl"`

	ID              string         `bun:"id,pk"`
	LinkID          string         `bun:"link_id,notnull"`
	UserID          string         `bun:"user_id,notnull"`
	PersonalLinkURL string         `bun:"personal_link_url,notnull"`
	Name            string         `bun:"name,notnull"`
	CallbackURL     string         `bun:"callback_url,notnull"`
	SingleUse       bool           `bun:"single_use,notnull"`
	PartnerParams   map[string]any `bun:"partner_params,type:jsonb,notnull"`
	ExpiresAt       *time.Time     `bun:"expires_at,nullzero"`
	CreatedAt       time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type outcomeRecord struct {
	bun.BaseModel `bun:"table:smileid_verification_outcomes,alias:svo"`

	ID            string         `bun:"id,pk"`
	JobID         string         `bun:"job_id,notnull"`
	UserID        string         `bun:"user_id,notnull"`
	SmileJobID    string         `bun:"smile_job_id,notnull"`
	JobType       string         `bun:"job_type,notnull"`
	ResultType    string         `bun:"result_type,notnull"`
	ResultCode    string         `bun:"result_code,notnull"`
	ResultText    string         `bun:"result_text,notnull"`
	Confidence    string         `bun:"confidence,notnull"`
	IDType        string         `bun:"id_type,notnull"`
	Country       string         `bun:"country,notnull"`
	IDNumber      string         `bun:"id_number,notnull"`
	PartnerParams map[string]any `bun:"partner_params,type:jsonb,notnull"`
	Actions       map[string]any `bun:"actions,type:jsonb,notnull"`
	JobTimestamp  string         `bun:"job_timestamp,notnull"`
	Outcome       string         `bun:"outcome,notnull"`
	Raw           map[string]any `bun:"raw,type:jsonb,notnull"`
	DeliveryCount int            `bun:"delivery_count,notnull"`
	ReceivedAt    time.Time      `bun:"received_at,notnull"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newLinkRecord(id string, result core.LinkResult, req core.LinkRequest, now time.Time) *linkRecord {
	singleUse := true
	if req.SingleUse != nil {
		singleUse = *req.SingleUse
	}
	userID := strings.TrimSpace(result.UserID)
	if userID == "" {
		userID = strings.TrimSpace(req.UserID)
	}
	return &linkRecord{
		ID:              id,
		LinkID:          strings.TrimSpace(result.LinkID),
		UserID:          userID,
		PersonalLinkURL: result.PersonalLinkURL,
		Name:            req.Name,
		CallbackURL:     req.CallbackURL,
		SingleUse:       singleUse,
		PartnerParams:   copyAnyMap(req.PartnerParams),
		ExpiresAt:       resolveExpiry(result.ExpiresAt, req.ExpiresAt),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (r *linkRecord) toDomain() core.IssuedLink {
	if r == nil {
		return core.IssuedLink{}
	}
	return core.IssuedLink{
		LinkID:          r.LinkID,
		UserID:          r.UserID,
		PersonalLinkURL: r.PersonalLinkURL,
		Name:            r.Name,
		CallbackURL:     r.CallbackURL,
		SingleUse:       r.SingleUse,
		PartnerParams:   copyAnyMap(r.PartnerParams),
		ExpiresAt:       copyTimePointer(r.ExpiresAt),
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

// apply copies the callback fields of record onto r, keeping its identity.
func (r *outcomeRecord) apply(record core.VerificationRecord) {
	r.UserID = record.UserID
	r.SmileJobID = record.SmileJobID
	r.JobType = record.JobType
	r.ResultType = record.ResultType
	r.ResultCode = record.ResultCode
	r.ResultText = record.ResultText
	r.Confidence = encodeConfidence(record.Confidence)
	r.IDType = record.IDType
	r.Country = record.Country
	r.IDNumber = record.IDNumber
	r.PartnerParams = copyAnyMap(record.PartnerParams)
	r.Actions = copyAnyMap(record.Actions)
	r.JobTimestamp = record.JobTimestamp
	r.Outcome = string(record.Outcome)
	r.Raw = copyAnyMap(record.Raw)
	r.ReceivedAt = record.ReceivedAt.UTC()
}

func (r *outcomeRecord) toDomain() core.VerificationRecord {
	if r == nil {
		return core.VerificationRecord{}
	}
	return core.VerificationRecord{
		UserID:        r.UserID,
		JobID:         r.JobID,
		SmileJobID:    r.SmileJobID,
		JobType:       r.JobType,
		ResultType:    r.ResultType,
		ResultCode:    r.ResultCode,
		ResultText:    r.ResultText,
		Confidence:    decodeConfidence(r.Confidence),
		IDType:        r.IDType,
		Country:       r.Country,
		IDNumber:      r.IDNumber,
		PartnerParams: copyAnyMap(r.PartnerParams),
		Actions:       copyAnyMap(r.Actions),
		JobTimestamp:  r.JobTimestamp,
		Outcome:       core.Outcome(r.Outcome),
		ReceivedAt:    r.ReceivedAt.UTC(),
		Raw:           copyAnyMap(r.Raw),
	}
}

// encodeConfidence keeps numbers numeric on the way back out; anything else
// is stored as its JSON text.
func encodeConfidence(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func decodeConfidence(value string) any {
	if value == "" {
		return nil
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return parsed
	}
	return value
}

func resolveExpiry(formatted string, fallback *time.Time) *time.Time {
	if parsed, err := time.Parse(core.TimestampLayout, strings.TrimSpace(formatted)); err == nil {
		value := parsed.UTC()
		return &value
	}
	return copyTimePointer(fallback)
}

func copyTimePointer(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	value := in.UTC()
	return &value
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
