package links

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/afrimobile/go-smileid/core"
	"github.com/afrimobile/go-smileid/transport"
)

const defaultLinkNamePrefix = "Personal Link - "

// Issuer builds signed requests against the smile_links endpoint.
type Issuer struct {
	config    core.Config
	creds     core.Credentials
	endpoints core.Endpoints
	transport core.TransportAdapter
	logger    core.Logger
	observer  core.Observer
	clock     core.Clock
	sleeper   core.Sleeper
	newUserID core.IDGenerator
	recorder  core.LinkRecorder
}

type Option func(*Issuer)

func WithTransport(adapter core.TransportAdapter) Option {
	return func(i *Issuer) {
		if adapter != nil {
			i.transport = adapter
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(i *Issuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(i *Issuer) {
		if recorder != nil {
			i.observer.Metrics = recorder
		}
	}
}

func WithClock(clock core.Clock) Option {
	return func(i *Issuer) {
		if clock != nil {
			i.clock = clock
		}
	}
}

func WithSleeper(sleeper core.Sleeper) Option {
	return func(i *Issuer) {
		if sleeper != nil {
			i.sleeper = sleeper
		}
	}
}

func WithIDGenerator(generator core.IDGenerator) Option {
	return func(i *Issuer) {
		if generator != nil {
			i.newUserID = generator
		}
	}
}

func WithLinkRecorder(recorder core.LinkRecorder) Option {
	return func(i *Issuer) {
		i.recorder = recorder
	}
}

// NewIssuer validates cfg and binds the issuer to its credentials and
// environment.
func NewIssuer(cfg core.Config, opts ...Option) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	issuer := &Issuer{
		config:    cfg,
		creds:     cfg.Credentials(),
		endpoints: cfg.Endpoints(),
		logger:    glog.Nop(),
		observer:  core.NewObserver(nil, nil),
		clock:     core.SystemClock,
		sleeper:   core.ContextSleep,
		newUserID: core.NewUserID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	if issuer.transport == nil {
		issuer.transport = transport.NewRESTAdapter(nil, transport.WithTimeout(cfg.HTTPTimeout()))
	}
	issuer.observer.Logger = issuer.logger
	return issuer, nil
}

func (i *Issuer) Config() core.Config {
	if i == nil {
		return core.Config{}
	}
	return i.config
}

// PersonalLinkURL returns {linkBaseUrl}/{partnerId}/{linkId}.
func (i *Issuer) PersonalLinkURL(linkID string) string {
	if i == nil {
		return ""
	}
	return strings.TrimRight(i.endpoints.LinkBaseURL, "/") + "/" +
		url.PathEscape(i.creds.PartnerID) + "/" + url.PathEscape(linkID)
}

type createLinkBody struct {
	PartnerID        string            `json:"partner_id"`
	Signature        string            `json:"signature"`
	Timestamp        string            `json:"timestamp"`
	Name             string            `json:"name"`
	CompanyName      string            `json:"company_name"`
	IDTypes          []core.IDTypeSpec `json:"id_types"`
	CallbackURL      string            `json:"callback_url,omitempty"`
	PrivacyPolicyURL string            `json:"data_privacy_policy_url,omitempty"`
	LogoURL          string            `json:"logo_url,omitempty"`
	SingleUse        bool              `json:"is_single_use"`
	UserID           string            `json:"user_id"`
	PartnerParams    map[string]any    `json:"partner_params"`
	ExpiresAt        string            `json:"expires_at"`
}

// ResolveRequest fills every unset field of req with its configured default.
func (i *Issuer) ResolveRequest(req core.LinkRequest, now time.Time) core.LinkRequest {
	resolved := req
	if strings.TrimSpace(resolved.Name) == "" {
		resolved.Name = defaultLinkNamePrefix + now.UTC().Format("2006-01-02")
	}
	if strings.TrimSpace(resolved.CompanyName) == "" {
		resolved.CompanyName = i.config.CompanyName()
	}
	if len(resolved.IDTypes) == 0 {
		resolved.IDTypes = i.config.DefaultIDTypes()
	} else {
		resolved.IDTypes = append([]core.IDTypeSpec(nil), req.IDTypes...)
	}
	if strings.TrimSpace(resolved.CallbackURL) == "" {
		resolved.CallbackURL = strings.TrimSpace(i.config.Webhook.URL)
	}
	if strings.TrimSpace(resolved.PrivacyPolicyURL) == "" {
		resolved.PrivacyPolicyURL = strings.TrimSpace(i.config.Company.PrivacyPolicyURL)
	}
	if strings.TrimSpace(resolved.LogoURL) == "" {
		resolved.LogoURL = strings.TrimSpace(i.config.Company.LogoURL)
	}
	if resolved.SingleUse == nil {
		singleUse := true
		resolved.SingleUse = &singleUse
	}
	if strings.TrimSpace(resolved.UserID) == "" {
		resolved.UserID = i.newUserID()
	}
	resolved.PartnerParams = copyParams(req.PartnerParams)
	if resolved.ExpiresAt == nil {
		expiresAt := i.config.ExpiryFrom(now)
		resolved.ExpiresAt = &expiresAt
	}
	return resolved
}

// CreateSingleUseLink creates one personal link. The returned error is
// reserved for a misconfigured issuer; provider and transport failures come
// back as a LinkResult with Success false.
func (i *Issuer) CreateSingleUseLink(ctx context.Context, req core.LinkRequest) (core.LinkResult, error) {
	if i == nil || i.transport == nil {
		return core.LinkResult{}, fmt.Errorf("links: issuer is not configured")
	}
	startedAt := time.Now()
	now := i.clock()
	resolved := i.ResolveRequest(req, now)
	envelope, err := core.NewSignedEnvelope(i.creds, now)
	if err != nil {
		return core.LinkResult{}, err
	}
	expiresAt := core.FormatTimestamp(*resolved.ExpiresAt)

	payload, err := transport.EncodeJSON(createLinkBody{
		PartnerID:        envelope.PartnerID,
		Signature:        envelope.Signature,
		Timestamp:        envelope.Timestamp,
		Name:             resolved.Name,
		CompanyName:      resolved.CompanyName,
		IDTypes:          resolved.IDTypes,
		CallbackURL:      resolved.CallbackURL,
		PrivacyPolicyURL: resolved.PrivacyPolicyURL,
		LogoURL:          resolved.LogoURL,
		SingleUse:        *resolved.SingleUse,
		UserID:           resolved.UserID,
		PartnerParams:    resolved.PartnerParams,
		ExpiresAt:        expiresAt,
	})
	if err != nil {
		return i.failLink(ctx, startedAt, resolved.UserID, err, 0), nil
	}

	res, err := i.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    i.endpoints.APIBaseURL,
		Body:   payload,
	})
	if err != nil {
		return i.failLink(ctx, startedAt, resolved.UserID, err, 0), nil
	}
	decoded, err := transport.DecodeObject(res.Body)
	if err != nil {
		return i.failLink(ctx, startedAt, resolved.UserID, err, res.StatusCode), nil
	}
	if !transport.IsSuccess(res.StatusCode) {
		message := ExtractErrorMessage(decoded)
		core.LogWithFields(ctx, i.logger, "warn", "smileid rejected link request", map[string]any{
			"status_code": res.StatusCode,
			"user_id":     resolved.UserID,
			"response":    decoded,
		})
		providerErr := core.NewProviderError(message, res.StatusCode, map[string]any{"user_id": resolved.UserID})
		result := i.failLink(ctx, startedAt, resolved.UserID, providerErr, res.StatusCode)
		result.Error = message
		return result, nil
	}

	result := core.LinkResult{
		Success:     true,
		UserID:      resolved.UserID,
		ExpiresAt:   expiresAt,
		RawResponse: core.ProviderResponse(decoded),
	}
	if linkID, ok := ExtractLinkID(decoded); ok {
		result.LinkID = linkID
		result.PersonalLinkURL = i.PersonalLinkURL(linkID)
	} else {
		core.LogWithFields(ctx, i.logger, "warn", "link id missing from smileid response", map[string]any{
			"available_keys": ResponseKeys(decoded),
			"response":       decoded,
			"user_id":        resolved.UserID,
		})
	}

	if i.recorder != nil {
		if recordErr := i.recorder.RecordLink(ctx, result, resolved); recordErr != nil {
			core.LogWithFields(ctx, i.logger, "warn", "record issued link failed", map[string]any{
				"user_id": resolved.UserID,
				"link_id": result.LinkID,
				"error":   recordErr.Error(),
			})
		}
	}

	i.observer.Observe(ctx, startedAt, "link.create", nil, map[string]any{
		"user_id":     resolved.UserID,
		"link_id":     result.LinkID,
		"status_code": res.StatusCode,
		"environment": string(i.creds.Environment),
	})
	return result, nil
}

func (i *Issuer) failLink(ctx context.Context, startedAt time.Time, userID string, err error, statusCode int) core.LinkResult {
	fields := map[string]any{
		"user_id":     userID,
		"environment": string(i.creds.Environment),
	}
	if statusCode > 0 {
		fields["status_code"] = statusCode
	}
	i.observer.Observe(ctx, startedAt, "link.create", err, fields)
	return core.LinkResult{
		Success: false,
		UserID:  userID,
		Error:   errorText(err),
	}
}

// UpdateLink sends a PUT with the signed envelope merged over updates.
// Envelope fields replace caller keys of the same name.
func (i *Issuer) UpdateLink(ctx context.Context, linkID string, updates map[string]any) (core.ProviderResponse, error) {
	if i == nil || i.transport == nil {
		return nil, fmt.Errorf("links: issuer is not configured")
	}
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, core.NewBadInputError("links: link id is required", nil)
	}
	startedAt := time.Now()
	envelope, err := core.NewSignedEnvelope(i.creds, i.clock())
	if err != nil {
		return nil, err
	}
	body := copyParams(updates)
	for key, value := range envelope.Fields() {
		body[key] = value
	}
	payload, err := transport.EncodeJSON(body)
	if err != nil {
		return i.failProvider(ctx, startedAt, "link.update", linkID, err), nil
	}
	return i.roundTrip(ctx, startedAt, "link.update", linkID, core.TransportRequest{
		Method: http.MethodPut,
		URL:    i.linkURL(linkID),
		Body:   payload,
	}), nil
}

// GetLinkInfo fetches link status with the envelope as query parameters.
func (i *Issuer) GetLinkInfo(ctx context.Context, linkID string) (core.ProviderResponse, error) {
	if i == nil || i.transport == nil {
		return nil, fmt.Errorf("links: issuer is not configured")
	}
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, core.NewBadInputError("links: link id is required", nil)
	}
	startedAt := time.Now()
	envelope, err := core.NewSignedEnvelope(i.creds, i.clock())
	if err != nil {
		return nil, err
	}
	return i.roundTrip(ctx, startedAt, "link.info", linkID, core.TransportRequest{
		Method: http.MethodGet,
		URL:    i.linkURL(linkID),
		Query:  envelope.Query(),
	}), nil
}

func (i *Issuer) roundTrip(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	linkID string,
	req core.TransportRequest,
) core.ProviderResponse {
	res, err := i.transport.Do(ctx, req)
	if err != nil {
		return i.failProvider(ctx, startedAt, operation, linkID, err)
	}
	decoded, err := transport.DecodeObject(res.Body)
	if err != nil {
		return i.failProvider(ctx, startedAt, operation, linkID, err)
	}
	if !transport.IsSuccess(res.StatusCode) {
		message := ExtractErrorMessage(decoded)
		return i.failProvider(ctx, startedAt, operation, linkID,
			core.NewProviderError(message, res.StatusCode, map[string]any{"link_id": linkID}),
		)
	}
	i.observer.Observe(ctx, startedAt, operation, nil, map[string]any{
		"link_id":     linkID,
		"status_code": res.StatusCode,
	})
	return core.ProviderResponse(decoded)
}

func (i *Issuer) failProvider(ctx context.Context, startedAt time.Time, operation, linkID string, err error) core.ProviderResponse {
	i.observer.Observe(ctx, startedAt, operation, err, map[string]any{"link_id": linkID})
	return core.ProviderResponse{"error": errorText(err)}
}

func (i *Issuer) linkURL(linkID string) string {
	return strings.TrimRight(i.endpoints.APIBaseURL, "/") + "/" + url.PathEscape(linkID)
}

// errorText returns the underlying failure description: the provider's own
// message, or the cause beneath a go-errors envelope.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return err.Error()
	}
	if rich.TextCode != core.ErrorProvider && rich.Source != nil {
		return errorText(rich.Source)
	}
	if message := strings.TrimSpace(rich.Message); message != "" {
		return message
	}
	return err.Error()
}

func copyParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
