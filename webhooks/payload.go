package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/afrimobile/go-smileid/core"
)

const (
	ResultCodeSuccess = "2814"
	ResultCodeFailure = "2815"
)

// DecodePayload parses a callback body into a JSON object.
func DecodePayload(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, core.NewDecodeError(nil, "webhooks: payload is empty")
	}
	payload := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, core.NewDecodeError(err, "webhooks: payload is not a json object")
	}
	return payload, nil
}

// Normalize collapses the provider's field spelling variants into one record
// and classifies it.
func Normalize(payload map[string]any, receivedAt time.Time) core.VerificationRecord {
	record := core.VerificationRecord{
		UserID:        readString(payload, "user_id"),
		JobID:         readString(payload, "job_id"),
		SmileJobID:    readString(payload, "smile_job_id", "SmileJobID"),
		JobType:       readString(payload, "job_type"),
		ResultType:    readString(payload, "result_type"),
		ResultCode:    readString(payload, "result_code", "ResultCode"),
		ResultText:    readString(payload, "result_text", "ResultText"),
		Confidence:    readScalar(payload, "confidence", "ConfidenceValue"),
		IDType:        readString(payload, "id_type"),
		Country:       readString(payload, "country"),
		IDNumber:      readString(payload, "id_number"),
		PartnerParams: readObject(payload, "partner_params", "PartnerParams"),
		Actions:       readObject(payload, "Actions", "actions"),
		JobTimestamp:  readString(payload, "timestamp"),
		ReceivedAt:    receivedAt.UTC(),
		Raw:           payload,
	}
	if record.UserID == "" {
		record.UserID = readString(record.PartnerParams, "user_id")
	}
	if record.JobID == "" {
		record.JobID = readString(record.PartnerParams, "job_id")
	}
	record.Outcome = ClassifyCodes(readString(payload, "result_code"), readString(payload, "ResultCode"))
	switch record.Outcome {
	case core.OutcomeSuccess:
		record.ResultCode = ResultCodeSuccess
	case core.OutcomeFailure:
		record.ResultCode = ResultCodeFailure
	}
	return record
}

// Classify maps a result code to an outcome. Anything but the two terminal
// codes, including an empty code, is OutcomeOther.
func Classify(resultCode string) core.Outcome {
	switch strings.TrimSpace(resultCode) {
	case ResultCodeSuccess:
		return core.OutcomeSuccess
	case ResultCodeFailure:
		return core.OutcomeFailure
	default:
		return core.OutcomeOther
	}
}

// ClassifyCodes classifies a callback that may carry its result code under
// more than one field. A success code in any field wins, then a failure code.
func ClassifyCodes(codes ...string) core.Outcome {
	outcome := core.OutcomeOther
	for _, code := range codes {
		switch Classify(code) {
		case core.OutcomeSuccess:
			return core.OutcomeSuccess
		case core.OutcomeFailure:
			outcome = core.OutcomeFailure
		}
	}
	return outcome
}

func readString(values map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := values[key]
		if !ok || value == nil {
			continue
		}
		var text string
		switch typed := value.(type) {
		case string:
			text = typed
		case json.Number:
			text = typed.String()
		case float64, int, int64, bool:
			text = fmt.Sprint(typed)
		default:
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return ""
}

func readScalar(values map[string]any, keys ...string) any {
	for _, key := range keys {
		value, ok := values[key]
		if !ok || value == nil {
			continue
		}
		if number, isNumber := value.(json.Number); isNumber {
			if parsed, err := number.Float64(); err == nil {
				return parsed
			}
			return number.String()
		}
		return value
	}
	return nil
}

func readObject(values map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if object, ok := values[key].(map[string]any); ok {
			return object
		}
	}
	return nil
}
