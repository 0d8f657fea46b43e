package draftrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/pkg/instrument"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const table = "redis:loan_draft"

func Key(userID uint64) string {
	return fmt.Sprintf("loan:draft:%d", userID)
}

type draftRepository struct {
	client redis.Cmdable
	ttl    time.Duration
	ins    *instrument.Instruments
	log    *zap.Logger
}

// Get implements repository.DraftRepository.
func (d *draftRepository) Get(ctx context.Context, userID uint64) (*domain.LoanDraft, error) {
	ctx, q := d.ins.BeginQuery(ctx, "repository.draft.Get", table, "get")

	raw, err := d.client.Get(ctx, Key(userID)).Bytes()
	q.End(err)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		d.log.Error("Error reading loan draft", q.Fields(zap.Uint64("user_id", userID), zap.Error(err))...)
		return nil, err
	}

	var draft domain.LoanDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		d.log.Warn("Discarding unreadable loan draft", q.Fields(zap.Uint64("user_id", userID), zap.Error(err))...)
		return nil, nil
	}

	return &draft, nil
}

// Save implements repository.DraftRepository. Every save refreshes the TTL.
func (d *draftRepository) Save(ctx context.Context, draft *domain.LoanDraft) error {
	ctx, q := d.ins.BeginQuery(ctx, "repository.draft.Save", table, "set")

	raw, err := json.Marshal(draft)
	if err != nil {
		q.End(err)
		return fmt.Errorf("encode loan draft: %w", err)
	}

	err = d.client.Set(ctx, Key(draft.UserID), raw, d.ttl).Err()
	q.End(err)
	if err != nil {
		d.log.Error("Failed to save loan draft", q.Fields(zap.Uint64("user_id", draft.UserID), zap.Error(err))...)
		return err
	}

	d.log.Debug("Loan draft saved", q.Fields(
		zap.Uint64("user_id", draft.UserID),
		zap.String("completed", string(draft.Completed)),
	)...)
	return nil
}

// Delete implements repository.DraftRepository.
func (d *draftRepository) Delete(ctx context.Context, userID uint64) error {
	ctx, q := d.ins.BeginQuery(ctx, "repository.draft.Delete", table, "del")

	err := d.client.Del(ctx, Key(userID)).Err()
	q.End(err)
	if err != nil {
		d.log.Error("Failed to delete loan draft", q.Fields(zap.Uint64("user_id", userID), zap.Error(err))...)
		return err
	}

	return nil
}

func NewDraftRepository(
	client redis.Cmdable,
	ttl time.Duration,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.DraftRepository {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	return &draftRepository{
		client: client,
		ttl:    ttl,
		ins:    repository.NewInstruments(meter, tracer),
		log:    log,
	}
}
