package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/afrimobile/go-smileid/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LinkStore persists issued links keyed by the provider link id.
type LinkStore struct {
	db   *bun.DB
	repo repository.Repository[*linkRecord]
	now  func() time.Time
}

func NewLinkStore(db *bun.DB) (*LinkStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*linkRecord](db, linkHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid link repository wiring: %w", err)
		}
	}
	return &LinkStore{db: db, repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// RecordLink stores a successful issuance. Results without a link id cannot
// be looked up later and are skipped. Re-recording a link id overwrites it.
func (s *LinkStore) RecordLink(ctx context.Context, result core.LinkResult, req core.LinkRequest) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: link store is not configured")
	}
	if !result.Success || strings.TrimSpace(result.LinkID) == "" {
		return nil
	}
	now := s.now()
	record := newLinkRecord(uuid.NewString(), result, req, now)

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findLinkTx(ctx, tx, record.LinkID)
		if err != nil {
			return err
		}
		if existing == nil {
			_, err = tx.NewInsert().Model(record).Exec(ctx)
			return err
		}
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		_, err = tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx)
		return err
	})
}

func (s *LinkStore) Get(ctx context.Context, linkID string) (core.IssuedLink, error) {
	if s == nil || s.repo == nil {
		return core.IssuedLink{}, fmt.Errorf("sqlstore: link store is not configured")
	}
	trimmed := strings.TrimSpace(linkID)
	if trimmed == "" {
		return core.IssuedLink{}, core.NewBadInputError("sqlstore: link id is required", nil)
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("link_id", "=", trimmed),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.IssuedLink{}, err
	}
	if len(records) == 0 {
		return core.IssuedLink{}, core.NewNotFoundError("sqlstore: link not found", map[string]any{"link_id": trimmed})
	}
	return records[0].toDomain(), nil
}

// ListByUser returns the user's links, newest first. A zero limit returns all.
func (s *LinkStore) ListByUser(ctx context.Context, userID string, limit int) ([]core.IssuedLink, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: link store is not configured")
	}
	criteria := []repository.SelectCriteria{
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.OrderBy("created_at DESC"),
	}
	if limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]core.IssuedLink, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func findLinkTx(ctx context.Context, tx bun.Tx, linkID string) (*linkRecord, error) {
	record := &linkRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.link_id = ?", linkID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
