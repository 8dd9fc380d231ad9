package outboxrelay

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bank-transfer-engine/internal/config"
	"github.com/bank-transfer-engine/internal/domain/outbox"
)

type FakeTxRunner struct{}

func (f *FakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, event *outbox.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepo) ClaimPendingBatch(ctx context.Context, limit int) ([]*outbox.Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Event), args.Error(1)
}

func (m *MockOutboxRepo) MarkProcessed(ctx context.Context, event *outbox.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepo) RecordFailure(ctx context.Context, event *outbox.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testRelay(repo *MockOutboxRepo, publisher *MockPublisher) *Relay {
	cfg := &config.OutboxConfig{
		PollInterval:   time.Second,
		InitialDelay:   time.Millisecond,
		BatchSize:      2,
		PublishTimeout: time.Second,
	}
	return NewRelay(cfg, &FakeTxRunner{}, repo, publisher, slog.Default())
}

func pendingEvent(aggregateID string) *outbox.Event {
	return outbox.NewPending("Transaction", aggregateID, "TransferCompletedEvent", []byte(`{"transferId":"`+aggregateID+`"}`))
}

func TestRelay_DrainPending_PublishesAndMarksProcessed(t *testing.T) {
	repo := &MockOutboxRepo{}
	publisher := &MockPublisher{}
	relay := testRelay(repo, publisher)

	event := pendingEvent("transfer-1")

	repo.On("WithTx", mock.Anything).Return()
	repo.On("ClaimPendingBatch", mock.Anything, 2).Return([]*outbox.Event{event}, nil).Once()
	publisher.On("Publish", mock.Anything, "transfer-1", []byte(event.Payload)).Return(nil)
	repo.On("MarkProcessed", mock.Anything, mock.MatchedBy(func(e *outbox.Event) bool {
		return e.Status == outbox.StatusProcessed && e.AttemptCount == 1 && e.PublishedAt != nil
	})).Return(nil)

	err := relay.DrainPending(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRelay_DrainPending_FailureKeepsEventPending(t *testing.T) {
	repo := &MockOutboxRepo{}
	publisher := &MockPublisher{}
	relay := testRelay(repo, publisher)

	event := pendingEvent("transfer-1")
	publishErr := errors.New("broker unavailable")

	repo.On("WithTx", mock.Anything).Return()
	repo.On("ClaimPendingBatch", mock.Anything, 2).Return([]*outbox.Event{event}, nil).Once()
	publisher.On("Publish", mock.Anything, "transfer-1", mock.Anything).Return(publishErr)
	repo.On("RecordFailure", mock.Anything, mock.MatchedBy(func(e *outbox.Event) bool {
		return e.Status == outbox.StatusPending && e.AttemptCount == 1 && e.LastError == "broker unavailable"
	})).Return(nil)

	err := relay.DrainPending(context.Background())

	// A publish failure never fails the batch; the event just waits for
	// the next tick.
	require.NoError(t, err)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestRelay_DrainPending_OneFailureDoesNotBlockOthers(t *testing.T) {
	repo := &MockOutboxRepo{}
	publisher := &MockPublisher{}
	relay := testRelay(repo, publisher)

	failing := pendingEvent("transfer-1")
	succeeding := pendingEvent("transfer-2")

	repo.On("WithTx", mock.Anything).Return()
	repo.On("ClaimPendingBatch", mock.Anything, 2).Return([]*outbox.Event{failing, succeeding}, nil).Once()
	repo.On("ClaimPendingBatch", mock.Anything, 2).Return([]*outbox.Event{}, nil).Once()
	publisher.On("Publish", mock.Anything, "transfer-1", mock.Anything).Return(errors.New("broker unavailable"))
	publisher.On("Publish", mock.Anything, "transfer-2", mock.Anything).Return(nil)
	repo.On("RecordFailure", mock.Anything, failing).Return(nil)
	repo.On("MarkProcessed", mock.Anything, succeeding).Return(nil)

	err := relay.DrainPending(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRelay_DrainPending_DrainsBacklogInOneTick(t *testing.T) {
	repo := &MockOutboxRepo{}
	publisher := &MockPublisher{}
	relay := testRelay(repo, publisher)

	first := pendingEvent("transfer-1")
	second := pendingEvent("transfer-2")
	third := pendingEvent("transfer-3")

	// Full batch claimed, so the relay loops and claims again.
	repo.On("WithTx", mock.Anything).Return()
	repo.On("ClaimPendingBatch", mock.Anything, 2).Return([]*outbox.Event{first, second}, nil).Once()
	repo.On("ClaimPendingBatch", mock.Anything, 2).Return([]*outbox.Event{third}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkProcessed", mock.Anything, mock.Anything).Return(nil)

	err := relay.DrainPending(context.Background())

	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ClaimPendingBatch", 2)
	repo.AssertNumberOfCalls(t, "MarkProcessed", 3)
}

func TestRelay_DrainPending_ClaimError(t *testing.T) {
	repo := &MockOutboxRepo{}
	publisher := &MockPublisher{}
	relay := testRelay(repo, publisher)

	repo.On("WithTx", mock.Anything).Return()
	repo.On("ClaimPendingBatch", mock.Anything, 2).Return(nil, errors.New("connection reset"))

	err := relay.DrainPending(context.Background())

	assert.Error(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRelay_Start_StopsOnContextCancel(t *testing.T) {
	repo := &MockOutboxRepo{}
	publisher := &MockPublisher{}
	relay := testRelay(repo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after context cancellation")
	}
}
