package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorConfigInvalid    = "SMILEID_CONFIG_INVALID"
	ErrorBadInput         = "SMILEID_BAD_INPUT"
	ErrorSignatureInvalid = "SMILEID_SIGNATURE_INVALID"
	ErrorProvider         = "SMILEID_PROVIDER_ERROR"
	ErrorTransportFailed  = "SMILEID_TRANSPORT_FAILED"
	ErrorDecodeFailed     = "SMILEID_DECODE_FAILED"
	ErrorNotFound         = "SMILEID_NOT_FOUND"
	ErrorInternal         = "SMILEID_INTERNAL_ERROR"
)

// NewConfigError reports a configuration value that would otherwise produce
// a silently wrong signature or request.
func NewConfigError(message string, fields ...string) *goerrors.Error {
	var err *goerrors.Error
	if len(fields) == 0 {
		err = goerrors.New(message, goerrors.CategoryValidation)
	} else {
		fieldErrors := make([]goerrors.FieldError, 0, len(fields))
		for _, field := range fields {
			fieldErrors = append(fieldErrors, goerrors.FieldError{Field: field, Message: "invalid or missing"})
		}
		err = goerrors.NewValidation(message, fieldErrors...)
	}
	return ensureErrorEnvelope(err.WithTextCode(ErrorConfigInvalid))
}

func NewBadInputError(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryBadInput).WithTextCode(ErrorBadInput)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return ensureErrorEnvelope(err)
}

func NewSignatureError(message string) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = "Invalid signature"
	}
	return ensureErrorEnvelope(
		goerrors.New(message, goerrors.CategoryAuth).WithTextCode(ErrorSignatureInvalid),
	)
}

func NewProviderError(message string, statusCode int, metadata map[string]any) *goerrors.Error {
	fields := cloneFields(metadata)
	fields["status_code"] = statusCode
	return ensureErrorEnvelope(
		goerrors.New(message, goerrors.CategoryExternal).
			WithTextCode(ErrorProvider).
			WithMetadata(fields),
	)
}

func NewDecodeError(source error, message string) *goerrors.Error {
	if source == nil {
		return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryBadInput).WithTextCode(ErrorDecodeFailed))
	}
	return ensureErrorEnvelope(
		goerrors.Wrap(source, goerrors.CategoryBadInput, message).WithTextCode(ErrorDecodeFailed),
	)
}

func NewNotFoundError(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryNotFound).WithTextCode(ErrorNotFound)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return ensureErrorEnvelope(err)
}

func NewInternalError(source error, message string) *goerrors.Error {
	if source == nil {
		return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryInternal).WithTextCode(ErrorInternal))
	}
	return ensureErrorEnvelope(
		goerrors.Wrap(source, goerrors.CategoryInternal, message).WithTextCode(ErrorInternal),
	)
}

// MapError converts any error into the module's go-errors envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryAuth).WithTextCode(ErrorSignatureInvalid))
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryBadInput).WithTextCode(ErrorBadInput))
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	mapped := MapError(err)
	if mapped == nil {
		return http.StatusOK
	}
	return mapped.Code
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ErrorBadInput
	case goerrors.CategoryValidation:
		return ErrorConfigInvalid
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorSignatureInvalid
	case goerrors.CategoryExternal:
		return ErrorProvider
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryOperation:
		return ErrorTransportFailed
	default:
		return ErrorInternal
	}
}

func httpStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
