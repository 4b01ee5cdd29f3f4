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

// OutcomeStore keeps the latest verification result per job. It doubles as
// an OutcomeSink so the webhook processor can write to it directly.
type OutcomeStore struct {
	db   *bun.DB
	repo repository.Repository[*outcomeRecord]
	now  func() time.Time
}

func NewOutcomeStore(db *bun.DB) (*OutcomeStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*outcomeRecord](db, outcomeHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid outcome repository wiring: %w", err)
		}
	}
	return &OutcomeStore{db: db, repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *OutcomeStore) Success(ctx context.Context, record core.VerificationRecord) error {
	return s.Save(ctx, record)
}

func (s *OutcomeStore) Failure(ctx context.Context, record core.VerificationRecord) error {
	return s.Save(ctx, record)
}

func (s *OutcomeStore) Other(ctx context.Context, record core.VerificationRecord) error {
	return s.Save(ctx, record)
}

// Save upserts record by job id and counts repeated deliveries. A record
// without a job id falls back to the provider job id, then to a fresh id.
func (s *OutcomeStore) Save(ctx context.Context, record core.VerificationRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: outcome store is not configured")
	}
	jobID := outcomeKey(record)
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = s.now()
	}
	if record.Outcome == "" {
		record.Outcome = core.OutcomeOther
	}
	now := s.now()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findOutcomeTx(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if existing == nil {
			created := &outcomeRecord{
				ID:            uuid.NewString(),
				JobID:         jobID,
				DeliveryCount: 1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			created.apply(record)
			_, err = tx.NewInsert().Model(created).Exec(ctx)
			return err
		}
		existing.apply(record)
		existing.DeliveryCount++
		existing.UpdatedAt = now
		_, err = tx.NewUpdate().
			Model(existing).
			Where("id = ?", existing.ID).
			Exec(ctx)
		return err
	})
}

func (s *OutcomeStore) GetOutcome(ctx context.Context, jobID string) (core.VerificationRecord, error) {
	record, err := s.get(ctx, jobID)
	if err != nil {
		return core.VerificationRecord{}, err
	}
	return record.toDomain(), nil
}

// DeliveryCount reports how many callbacks were stored for jobID.
func (s *OutcomeStore) DeliveryCount(ctx context.Context, jobID string) (int, error) {
	record, err := s.get(ctx, jobID)
	if err != nil {
		return 0, err
	}
	return record.DeliveryCount, nil
}

func (s *OutcomeStore) ListOutcomesByUser(ctx context.Context, userID string, limit int) ([]core.VerificationRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: outcome store is not configured")
	}
	criteria := []repository.SelectCriteria{
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.OrderBy("received_at DESC"),
	}
	if limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]core.VerificationRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *OutcomeStore) get(ctx context.Context, jobID string) (*outcomeRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: outcome store is not configured")
	}
	trimmed := strings.TrimSpace(jobID)
	if trimmed == "" {
		return nil, core.NewBadInputError("sqlstore: job id is required", nil)
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("job_id", "=", trimmed),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.NewNotFoundError("sqlstore: verification outcome not found", map[string]any{"job_id": trimmed})
	}
	return records[0], nil
}

func outcomeKey(record core.VerificationRecord) string {
	if jobID := strings.TrimSpace(record.JobID); jobID != "" {
		return jobID
	}
	if smileJobID := strings.TrimSpace(record.SmileJobID); smileJobID != "" {
		return smileJobID
	}
	return "unkeyed_" + uuid.NewString()
}

func findOutcomeTx(ctx context.Context, tx bun.Tx, jobID string) (*outcomeRecord, error) {
	record := &outcomeRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.job_id = ?", jobID).
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
