package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	draftrepo "github.com/greenfina/greenfina/internal/repository/draft"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noop_metric "go.opentelemetry.io/otel/metric/noop"
	noop_trace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func TestDraftRepository(t *testing.T) {
	ctx := context.Background()
	ttl := 72 * time.Hour
	meter := noop_metric.NewMeterProvider().Meter("test-draft-repository-meter")
	tracer := noop_trace.NewTracerProvider().Tracer("test-draft-repository-tracer")

	draft := &domain.LoanDraft{
		UserID:    42,
		Completed: domain.StepDetails,
		Details:   &domain.DraftDetails{Category: "personal", Principal: 50000, TermMonths: 24, Purpose: "car"},
		UpdatedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(draft)
	require.NoError(t, err)

	t.Run("save then get", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := draftrepo.NewDraftRepository(client, ttl, meter, tracer, zap.NewNop())

		mock.ExpectSet("loan:draft:42", raw, ttl).SetVal("OK")
		mock.ExpectGet("loan:draft:42").SetVal(string(raw))

		require.NoError(t, repo.Save(ctx, draft))

		got, err := repo.Get(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.StepDetails, got.Completed)
		assert.Equal(t, 50000.0, got.Details.Principal)
		assert.True(t, draft.UpdatedAt.Equal(got.UpdatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing draft", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := draftrepo.NewDraftRepository(client, ttl, meter, tracer, zap.NewNop())

		mock.ExpectGet("loan:draft:7").RedisNil()

		got, err := repo.Get(ctx, 7)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt draft is dropped", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := draftrepo.NewDraftRepository(client, ttl, meter, tracer, zap.NewNop())

		mock.ExpectGet("loan:draft:8").SetVal("{not json")

		got, err := repo.Get(ctx, 8)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("redis failure surfaces", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := draftrepo.NewDraftRepository(client, ttl, meter, tracer, zap.NewNop())

		mock.ExpectGet("loan:draft:9").SetErr(errors.New("i/o timeout"))
		mock.ExpectDel("loan:draft:9").SetVal(1)

		_, err := repo.Get(ctx, 9)
		assert.Error(t, err)
		assert.NoError(t, repo.Delete(ctx, 9))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
