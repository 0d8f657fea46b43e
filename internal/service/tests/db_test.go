package service_test

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	noop_metric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	noop_trace "go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, model.AutoMigrate(db))
	return db
}

func resetTables(db *gorm.DB) {
	for _, table := range []string{
		"stokvela_payments",
		"stokvela_members",
		"stokvela_groups",
		"investments",
		"investment_indices",
		"loan_applications",
		"users",
	} {
		db.Exec("DELETE FROM " + table)
	}
}

func telemetry(name string) (metric.Meter, trace.Tracer) {
	return noop_metric.NewMeterProvider().Meter("test-" + name + "-service-meter"),
		noop_trace.NewTracerProvider().Tracer("test-" + name + "-service-tracer")
}

func seedUser(t *testing.T, db *gorm.DB, email string) model.User {
	u := model.User{FullName: "Test User", Email: email, Password: "hash", Role: "user"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// fakeMedia returns a URL per upload, or err when set.
type fakeMedia struct {
	mu      sync.Mutex
	err     error
	folders []string
	names   []string
}

func (f *fakeMedia) Upload(_ context.Context, file *multipart.FileHeader, folder string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.folders = append(f.folders, folder)
	f.names = append(f.names, file.Filename)
	return "https://res.cloudinary.com/greenfina/" + folder + "/" + file.Filename, nil
}

// memoryDrafts is an in-process DraftRepository.
type memoryDrafts struct {
	mu     sync.Mutex
	drafts map[uint64]domain.LoanDraft
}

func newMemoryDrafts() *memoryDrafts {
	return &memoryDrafts{drafts: map[uint64]domain.LoanDraft{}}
}

func (m *memoryDrafts) Get(_ context.Context, userID uint64) (*domain.LoanDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[userID]
	if !ok {
		return nil, nil
	}
	snapshot := d.Snapshot()
	return &snapshot, nil
}

func (m *memoryDrafts) Save(_ context.Context, draft *domain.LoanDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[draft.UserID] = draft.Snapshot()
	return nil
}

func (m *memoryDrafts) Delete(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, userID)
	return nil
}

// recordingPublisher keeps every published index.
type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	published []domain.InvestmentIndex
}

func (r *recordingPublisher) Publish(_ context.Context, index domain.InvestmentIndex) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, index)
	return r.err
}

var errBroker = errors.New("broker unavailable")
