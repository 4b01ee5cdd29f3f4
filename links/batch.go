package links

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/afrimobile/go-smileid/core"
)

// BatchRequest builds the link request for one batch entry.
func BatchRequest(user core.BatchUser) core.LinkRequest {
	label := strings.TrimSpace(user.Name)
	if label == "" {
		label = strings.TrimSpace(user.UserID)
	}
	params := map[string]any{}
	if name := strings.TrimSpace(user.Name); name != "" {
		params["user_name"] = name
	}
	if email := strings.TrimSpace(user.Email); email != "" {
		params["user_email"] = email
	}
	for key, value := range user.CustomParams {
		params[key] = value
	}
	return core.LinkRequest{
		Name:          defaultLinkNamePrefix + label,
		UserID:        strings.TrimSpace(user.UserID),
		CompanyName:   user.CompanyName,
		CallbackURL:   user.CallbackURL,
		IDTypes:       user.IDTypes,
		PartnerParams: params,
	}
}

// CreateMultiplePersonalLinks issues one link per user, strictly in order,
// pausing the configured batch delay after every call. A failed entry never
// stops the run. When ctx ends, every remaining user gets a failed entry
// carrying the context error.
func (i *Issuer) CreateMultiplePersonalLinks(ctx context.Context, users []core.BatchUser) ([]core.BatchLinkResult, error) {
	if i == nil || i.transport == nil {
		return nil, fmt.Errorf("links: issuer is not configured")
	}
	startedAt := time.Now()
	results := make([]core.BatchLinkResult, 0, len(users))
	delay := i.config.BatchDelay()
	succeeded := 0

	for index, user := range users {
		if err := ctx.Err(); err != nil {
			results = append(results, cancelledEntries(users[index:], err)...)
			break
		}
		result, err := i.CreateSingleUseLink(ctx, BatchRequest(user))
		if err != nil {
			return nil, err
		}
		if result.Success {
			succeeded++
		}
		userID := strings.TrimSpace(user.UserID)
		if userID == "" {
			userID = result.UserID
		}
		results = append(results, core.BatchLinkResult{
			UserID:     userID,
			UserName:   user.Name,
			LinkResult: result,
		})

		if err := i.sleeper(ctx, delay); err != nil {
			results = append(results, cancelledEntries(users[index+1:], err)...)
			break
		}
	}

	i.observer.Observe(ctx, startedAt, "link.batch", nil, map[string]any{
		"requested": len(users),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
	return results, nil
}

func cancelledEntries(users []core.BatchUser, cause error) []core.BatchLinkResult {
	entries := make([]core.BatchLinkResult, 0, len(users))
	for _, user := range users {
		entries = append(entries, core.BatchLinkResult{
			UserID:   strings.TrimSpace(user.UserID),
			UserName: user.Name,
			LinkResult: core.LinkResult{
				Success: false,
				UserID:  strings.TrimSpace(user.UserID),
				Error:   cause.Error(),
			},
		})
	}
	return entries
}
